package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type batchRepo struct {
	q   querier
	now func() time.Time
}

const batchColumns = `id, resource_id, location, batch_number, purchase_date, unit, conversion_factor, unit_price,
	quantity_purchased, quantity_remaining, supplier, notes, created_at`

func (r *batchRepo) Create(ctx context.Context, b *entity.Batch) error {
	if err := b.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	loc, projectID := locationArgs(b.Location)
	b.PurchaseDate = entity.Day(b.PurchaseDate)
	b.CreatedAt = r.now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO batches (resource_id, location, project_id, batch_number, purchase_date, unit, conversion_factor,
			unit_price, quantity_purchased, quantity_remaining, supplier, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ResourceID, loc, projectID, b.BatchNumber, b.PurchaseDate.Format(dateLayout), b.Unit, b.ConversionFactor,
		b.UnitPrice, b.QuantityPurchased, b.QuantityRemaining, b.Supplier, b.Notes, b.CreatedAt.Format(tsLayout))
	if err != nil {
		return mapError("crear lote "+b.BatchNumber, err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return mapError("id del lote", err)
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id int64) (*entity.Batch, error) {
	list, err := r.query(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListAvailable filtra el saldo en Go: las cantidades son TEXT y no se comparan bien en SQL.
func (r *batchRepo) ListAvailable(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	list, err := r.query(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE resource_id = ? AND location = ?
		ORDER BY purchase_date, id`, resourceID, loc.String())
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, b := range list {
		if b.QuantityRemaining.IsPositive() {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListAvailableForUpdate es igual a ListAvailable: BEGIN IMMEDIATE ya reserva la escritura.
func (r *batchRepo) ListAvailableForUpdate(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	return r.ListAvailable(ctx, resourceID, loc)
}

func (r *batchRepo) ListByResource(ctx context.Context, resourceID string) ([]*entity.Batch, error) {
	return r.query(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE resource_id = ?
		ORDER BY location, purchase_date, id`, resourceID)
}

func (r *batchRepo) CountByResource(ctx context.Context, resourceID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM batches WHERE resource_id = ?`, resourceID).Scan(&n); err != nil {
		return 0, mapError("contar lotes", err)
	}
	return n, nil
}

func (r *batchRepo) UpdateRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	if remaining.IsNegative() || remaining.GreaterThan(b.QuantityPurchased) {
		return domain.Invalid("saldo %s fuera de rango para el lote %s", remaining, b.BatchNumber)
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE batches SET quantity_remaining = ? WHERE id = ?`, remaining, id); err != nil {
		return mapError(fmt.Sprintf("actualizar saldo del lote %d", id), err)
	}
	return nil
}

func (r *batchRepo) UpdateDetails(ctx context.Context, id int64, supplier, notes string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE batches SET supplier = ?, notes = ? WHERE id = ?`, supplier, notes, id)
	if err != nil {
		return mapError(fmt.Sprintf("actualizar lote %d", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return mapError(fmt.Sprintf("borrar lote %d", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *batchRepo) RecordDraws(ctx context.Context, draws []entity.BatchDraw) error {
	for i, d := range draws {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO batch_draws (movement_id, seq, batch_id, quantity_native, quantity_base, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.MovementID, i, d.BatchID, d.QuantityNative, d.QuantityBase, d.UnitPrice); err != nil {
			return mapError(fmt.Sprintf("registrar consumo del lote %d", d.BatchID), err)
		}
	}
	return nil
}

func (r *batchRepo) DrawsByMovement(ctx context.Context, movementID string) ([]entity.BatchDraw, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT movement_id, batch_id, quantity_native, quantity_base, unit_price, reversed_by
		FROM batch_draws WHERE movement_id = ? ORDER BY seq`, movementID)
	if err != nil {
		return nil, mapError("listar consumos de lotes", err)
	}
	defer rows.Close()
	var out []entity.BatchDraw
	for rows.Next() {
		var d entity.BatchDraw
		if err := rows.Scan(&d.MovementID, &d.BatchID, &d.QuantityNative, &d.QuantityBase, &d.UnitPrice, &d.ReversedBy); err != nil {
			return nil, mapError("leer consumo de lote", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *batchRepo) MarkDrawsReversed(ctx context.Context, movementID, reversalID string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE batch_draws SET reversed_by = ? WHERE movement_id = ? AND reversed_by = ''`,
		reversalID, movementID)
	if err != nil {
		return mapError("revertir movimiento "+movementID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM batch_draws WHERE movement_id = ?`, movementID).Scan(&total); err != nil {
		return mapError("revertir movimiento "+movementID, err)
	}
	if total == 0 {
		return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: el movimiento %s ya fue revertido", domain.ErrImmutable, movementID)
}

func (r *batchRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar lotes", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		var (
			b                      entity.Batch
			loc, purchase, created string
		)
		if err := rows.Scan(&b.ID, &b.ResourceID, &loc, &b.BatchNumber, &purchase, &b.Unit, &b.ConversionFactor,
			&b.UnitPrice, &b.QuantityPurchased, &b.QuantityRemaining, &b.Supplier, &b.Notes, &created); err != nil {
			return nil, mapError("leer lote", err)
		}
		if b.Location, err = entity.ParseLocation(loc); err != nil {
			return nil, fmt.Errorf("lote %d: %w", b.ID, err)
		}
		if b.PurchaseDate, err = parseDate(purchase); err != nil {
			return nil, fmt.Errorf("lote %d: %w", b.ID, err)
		}
		b.CreatedAt = parseTS(created)
		list = append(list, &b)
	}
	return list, rows.Err()
}
