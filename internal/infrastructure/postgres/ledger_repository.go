package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo guarda asientos en ledger_entries. Solo inserta; el trigger rechaza UPDATE y DELETE.
type LedgerRepo struct {
	q Querier
}

func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const entryColumns = `id, movement_id, resource_id, location, type, quantity, unit_price, total_value,
	transaction_date, notes, supplier, invoice_number, goods_receipt_id, consumption_reason, created_by, created_at`

func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) (int64, error) {
	loc, projectID := locationArgs(e.Location)
	query := `
		INSERT INTO ledger_entries (movement_id, resource_id, location, project_id, type, quantity, unit_price,
			total_value, transaction_date, notes, supplier, invoice_number, goods_receipt_id, consumption_reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`
	e.TransactionDate = entity.Day(e.TransactionDate)
	err := r.q.QueryRow(ctx, query,
		e.MovementID, e.ResourceID, loc, projectID, string(e.Type), e.Quantity, e.UnitPrice,
		e.TotalValue, e.TransactionDate, e.Notes, e.Supplier, e.InvoiceNumber, nullString(e.GoodsReceiptID),
		e.ConsumptionReason, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, mapError("insertar asiento", err)
	}
	return e.ID, nil
}

func (r *LedgerRepo) GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("obtener asiento", err)
	}
	list, err := collectEntries(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// List aplica el filtro y ordena por fecha y luego por id.
func (r *LedgerRepo) List(ctx context.Context, f repository.EntryFilter) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE true`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ResourceID != "" {
		query += " AND resource_id = " + arg(f.ResourceID)
	}
	if f.Location != nil {
		query += " AND location = " + arg(f.Location.String())
	}
	if !f.Range.From.IsZero() {
		query += " AND transaction_date >= " + arg(entity.Day(f.Range.From))
	}
	if !f.Range.To.IsZero() {
		query += " AND transaction_date <= " + arg(entity.Day(f.Range.To))
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		query += " AND type = ANY(" + arg(types) + ")"
	}
	if f.GoodsReceiptID != "" {
		query += " AND goods_receipt_id = " + arg(f.GoodsReceiptID)
	}
	query += " ORDER BY transaction_date, id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar asientos", err)
	}
	return collectEntries(rows)
}

func (r *LedgerRepo) CountByGoodsReceipt(ctx context.Context, goodsReceiptID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM ledger_entries WHERE goods_receipt_id = $1`, goodsReceiptID).Scan(&n)
	if err != nil {
		return 0, mapError("contar asientos de la nota", err)
	}
	return n, nil
}

func collectEntries(rows pgx.Rows) ([]*entity.LedgerEntry, error) {
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("leer asientos", err)
	}
	return list, nil
}

func scanEntry(s scanner) (*entity.LedgerEntry, error) {
	var (
		e     entity.LedgerEntry
		loc   string
		typ   string
		grnID *string
	)
	if err := s.Scan(&e.ID, &e.MovementID, &e.ResourceID, &loc, &typ, &e.Quantity, &e.UnitPrice, &e.TotalValue,
		&e.TransactionDate, &e.Notes, &e.Supplier, &e.InvoiceNumber, &grnID, &e.ConsumptionReason,
		&e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, mapError("leer asiento", err)
	}
	l, err := entity.ParseLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("asiento %d: %w", e.ID, err)
	}
	e.Location = l
	e.Type = entity.MovementType(typ)
	e.GoodsReceiptID = deref(grnID)
	return &e, nil
}
