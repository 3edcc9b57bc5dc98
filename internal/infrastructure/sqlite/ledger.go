package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

type ledgerRepo struct {
	q   querier
	now func() time.Time
}

const entryColumns = `id, movement_id, resource_id, location, type, quantity, unit_price, total_value,
	transaction_date, notes, supplier, invoice_number, goods_receipt_id, consumption_reason, created_by, created_at`

func (r *ledgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) (int64, error) {
	loc, projectID := locationArgs(e.Location)
	e.TransactionDate = entity.Day(e.TransactionDate)
	e.CreatedAt = r.now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (movement_id, resource_id, location, project_id, type, quantity, unit_price,
			total_value, transaction_date, notes, supplier, invoice_number, goods_receipt_id, consumption_reason,
			created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MovementID, e.ResourceID, loc, projectID, string(e.Type), e.Quantity, e.UnitPrice, e.TotalValue,
		e.TransactionDate.Format(dateLayout), e.Notes, e.Supplier, e.InvoiceNumber, nullString(e.GoodsReceiptID),
		e.ConsumptionReason, e.CreatedBy, e.CreatedAt.Format(tsLayout))
	if err != nil {
		return 0, mapError("insertar asiento", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, mapError("id del asiento", err)
	}
	e.ID = id
	return id, nil
}

func (r *ledgerRepo) GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	list, err := r.query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *ledgerRepo) List(ctx context.Context, f repository.EntryFilter) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE 1 = 1`
	var args []any
	if f.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, f.ResourceID)
	}
	if f.Location != nil {
		query += " AND location = ?"
		args = append(args, f.Location.String())
	}
	if !f.Range.From.IsZero() {
		query += " AND transaction_date >= ?"
		args = append(args, entity.Day(f.Range.From).Format(dateLayout))
	}
	if !f.Range.To.IsZero() {
		query += " AND transaction_date <= ?"
		args = append(args, entity.Day(f.Range.To).Format(dateLayout))
	}
	if len(f.Types) > 0 {
		query += " AND type IN (?" + strings.Repeat(", ?", len(f.Types)-1) + ")"
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	if f.GoodsReceiptID != "" {
		query += " AND goods_receipt_id = ?"
		args = append(args, f.GoodsReceiptID)
	}
	query += " ORDER BY transaction_date, id"
	return r.query(ctx, query, args...)
}

func (r *ledgerRepo) CountByGoodsReceipt(ctx context.Context, goodsReceiptID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM ledger_entries WHERE goods_receipt_id = ?`, goodsReceiptID).Scan(&n)
	if err != nil {
		return 0, mapError("contar asientos de la nota", err)
	}
	return n, nil
}

func (r *ledgerRepo) query(ctx context.Context, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar asientos", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var (
			e              entity.LedgerEntry
			loc, typ, date string
			created        string
			grnID          sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.MovementID, &e.ResourceID, &loc, &typ, &e.Quantity, &e.UnitPrice,
			&e.TotalValue, &date, &e.Notes, &e.Supplier, &e.InvoiceNumber, &grnID, &e.ConsumptionReason,
			&e.CreatedBy, &created); err != nil {
			return nil, mapError("leer asiento", err)
		}
		if e.Location, err = entity.ParseLocation(loc); err != nil {
			return nil, fmt.Errorf("asiento %d: %w", e.ID, err)
		}
		if e.TransactionDate, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("asiento %d: %w", e.ID, err)
		}
		e.Type = entity.MovementType(typ)
		e.GoodsReceiptID = grnID.String
		e.CreatedAt = parseTS(created)
		list = append(list, &e)
	}
	return list, rows.Err()
}
