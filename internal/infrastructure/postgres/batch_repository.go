package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo persiste lotes. El trigger trg_batches_frozen protege los campos congelados.
type BatchRepo struct {
	q Querier
}

func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, resource_id, location, batch_number, purchase_date, unit, conversion_factor, unit_price,
	quantity_purchased, quantity_remaining, supplier, notes, created_at`

func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	if err := b.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	loc, projectID := locationArgs(b.Location)
	b.PurchaseDate = entity.Day(b.PurchaseDate)
	query := `
		INSERT INTO batches (resource_id, location, project_id, batch_number, purchase_date, unit, conversion_factor,
			unit_price, quantity_purchased, quantity_remaining, supplier, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		b.ResourceID, loc, projectID, b.BatchNumber, b.PurchaseDate, b.Unit, b.ConversionFactor,
		b.UnitPrice, b.QuantityPurchased, b.QuantityRemaining, b.Supplier, b.Notes,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return mapError("crear lote "+b.BatchNumber, err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, id int64) (*entity.Batch, error) {
	list, err := r.list(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *BatchRepo) ListAvailable(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE resource_id = $1 AND location = $2 AND quantity_remaining > 0
		ORDER BY purchase_date, id`, resourceID, loc.String())
}

func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE resource_id = $1 AND location = $2 AND quantity_remaining > 0
		ORDER BY purchase_date, id
		FOR UPDATE`, resourceID, loc.String())
}

func (r *BatchRepo) ListByResource(ctx context.Context, resourceID string) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE resource_id = $1
		ORDER BY location, purchase_date, id`, resourceID)
}

func (r *BatchRepo) CountByResource(ctx context.Context, resourceID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM batches WHERE resource_id = $1`, resourceID).Scan(&n); err != nil {
		return 0, mapError("contar lotes", err)
	}
	return n, nil
}

// UpdateRemaining fuera de [0, quantity_purchased] lo rechaza la restricción batches_remaining_range.
func (r *BatchRepo) UpdateRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE batches SET quantity_remaining = $2 WHERE id = $1`, id, remaining)
	if err != nil {
		return mapError(fmt.Sprintf("actualizar saldo del lote %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *BatchRepo) UpdateDetails(ctx context.Context, id int64, supplier, notes string) error {
	tag, err := r.q.Exec(ctx, `UPDATE batches SET supplier = $2, notes = $3 WHERE id = $1`, id, supplier, notes)
	if err != nil {
		return mapError(fmt.Sprintf("actualizar lote %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *BatchRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Sprintf("borrar lote %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *BatchRepo) RecordDraws(ctx context.Context, draws []entity.BatchDraw) error {
	for i, d := range draws {
		_, err := r.q.Exec(ctx, `
			INSERT INTO batch_draws (movement_id, seq, batch_id, quantity_native, quantity_base, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			d.MovementID, i, d.BatchID, d.QuantityNative, d.QuantityBase, d.UnitPrice)
		if err != nil {
			return mapError(fmt.Sprintf("registrar consumo del lote %d", d.BatchID), err)
		}
	}
	return nil
}

func (r *BatchRepo) DrawsByMovement(ctx context.Context, movementID string) ([]entity.BatchDraw, error) {
	rows, err := r.q.Query(ctx, `
		SELECT movement_id, batch_id, quantity_native, quantity_base, unit_price, reversed_by
		FROM batch_draws WHERE movement_id = $1 ORDER BY seq`, movementID)
	if err != nil {
		return nil, mapError("listar consumos de lotes", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.BatchDraw, error) {
		var d entity.BatchDraw
		err := row.Scan(&d.MovementID, &d.BatchID, &d.QuantityNative, &d.QuantityBase, &d.UnitPrice, &d.ReversedBy)
		return d, err
	})
	if err != nil {
		return nil, mapError("leer consumos de lotes", err)
	}
	return out, nil
}

func (r *BatchRepo) MarkDrawsReversed(ctx context.Context, movementID, reversalID string) error {
	tag, err := r.q.Exec(ctx, `UPDATE batch_draws SET reversed_by = $2 WHERE movement_id = $1 AND reversed_by = ''`,
		movementID, reversalID)
	if err != nil {
		return mapError("revertir movimiento "+movementID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM batch_draws WHERE movement_id = $1`, movementID).Scan(&total); err != nil {
		return mapError("revertir movimiento "+movementID, err)
	}
	if total == 0 {
		return fmt.Errorf("movimiento %s: %w", movementID, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: el movimiento %s ya fue revertido", domain.ErrImmutable, movementID)
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar lotes", err)
	}
	return collectBatches(rows)
}

func collectBatches(rows pgx.Rows) ([]*entity.Batch, error) {
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		var (
			b   entity.Batch
			loc string
		)
		if err := rows.Scan(&b.ID, &b.ResourceID, &loc, &b.BatchNumber, &b.PurchaseDate, &b.Unit,
			&b.ConversionFactor, &b.UnitPrice, &b.QuantityPurchased, &b.QuantityRemaining,
			&b.Supplier, &b.Notes, &b.CreatedAt); err != nil {
			return nil, mapError("leer lote", err)
		}
		l, err := entity.ParseLocation(loc)
		if err != nil {
			return nil, fmt.Errorf("lote %d: %w", b.ID, err)
		}
		b.Location = l
		list = append(list, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("leer lotes", err)
	}
	return list, nil
}
