package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

var _ repository.GoodsReceiptRepository = (*GoodsReceiptRepo)(nil)

// GoodsReceiptRepo guarda notas de recepción con sus líneas.
type GoodsReceiptRepo struct {
	q Querier
}

func NewGoodsReceiptRepository(q Querier) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{q: q}
}

const receiptColumns = `id, number, supplier_name, location, delivery_reference, receipt_date, notes, created_by, created_at`

// Create inserta cabecera y líneas en una transacción (o savepoint si q ya es una tx).
func (r *GoodsReceiptRepo) Create(ctx context.Context, g *entity.GoodsReceipt) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	loc, projectID := locationArgs(g.Destination)
	g.ReceiptDate = entity.Day(g.ReceiptDate)
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO goods_receipts (id, number, supplier_name, location, project_id, delivery_reference,
				receipt_date, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at`,
			g.ID, g.Number, g.SupplierName, loc, projectID, g.DeliveryReference, g.ReceiptDate, g.Notes, g.CreatedBy,
		).Scan(&g.CreatedAt)
		if err != nil {
			return mapError("crear nota "+g.Number, err)
		}
		for _, l := range g.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO goods_receipt_lines (goods_receipt_id, line_no, resource_id, quantity_received, receipt_unit, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				g.ID, l.LineNo, l.ResourceID, l.QuantityReceived, l.ReceiptUnit, l.UnitPrice)
			if err != nil {
				return mapError(fmt.Sprintf("crear línea %d de %s", l.LineNo, g.Number), err)
			}
		}
		return nil
	})
}

func (r *GoodsReceiptRepo) GetByID(ctx context.Context, id string) (*entity.GoodsReceipt, error) {
	return r.getOne(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE id = $1`, id)
}

func (r *GoodsReceiptRepo) GetByNumber(ctx context.Context, number string) (*entity.GoodsReceipt, error) {
	return r.getOne(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE number = $1`, number)
}

func (r *GoodsReceiptRepo) List(ctx context.Context) ([]*entity.GoodsReceipt, error) {
	rows, err := r.q.Query(ctx, `SELECT `+receiptColumns+` FROM goods_receipts ORDER BY number`)
	if err != nil {
		return nil, mapError("listar notas", err)
	}
	var list []*entity.GoodsReceipt
	byID := make(map[string]*entity.GoodsReceipt)
	for rows.Next() {
		g, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, g)
		byID[g.ID] = g
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("leer notas", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]string, 0, len(list))
	for _, g := range list {
		ids = append(ids, g.ID)
	}
	lines, err := r.q.Query(ctx, `
		SELECT goods_receipt_id, line_no, resource_id, quantity_received, receipt_unit, unit_price
		FROM goods_receipt_lines WHERE goods_receipt_id = ANY($1)
		ORDER BY goods_receipt_id, line_no`, ids)
	if err != nil {
		return nil, mapError("listar líneas", err)
	}
	defer lines.Close()
	for lines.Next() {
		var (
			grnID string
			l     entity.GoodsReceiptLine
		)
		if err := lines.Scan(&grnID, &l.LineNo, &l.ResourceID, &l.QuantityReceived, &l.ReceiptUnit, &l.UnitPrice); err != nil {
			return nil, mapError("leer línea", err)
		}
		if g, ok := byID[grnID]; ok {
			g.Lines = append(g.Lines, l)
		}
	}
	return list, lines.Err()
}

// CountByYear cuenta las notas numeradas GRN-<año>-.
func (r *GoodsReceiptRepo) CountByYear(ctx context.Context, year int) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM goods_receipts WHERE number LIKE $1`, fmt.Sprintf("GRN-%d-%%", year)).Scan(&n)
	if err != nil {
		return 0, mapError("contar notas", err)
	}
	return n, nil
}

func (r *GoodsReceiptRepo) getOne(ctx context.Context, query string, arg string) (*entity.GoodsReceipt, error) {
	g, err := scanReceipt(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT line_no, resource_id, quantity_received, receipt_unit, unit_price
		FROM goods_receipt_lines WHERE goods_receipt_id = $1 ORDER BY line_no`, g.ID)
	if err != nil {
		return nil, mapError("listar líneas", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.GoodsReceiptLine
		if err := rows.Scan(&l.LineNo, &l.ResourceID, &l.QuantityReceived, &l.ReceiptUnit, &l.UnitPrice); err != nil {
			return nil, mapError("leer línea", err)
		}
		g.Lines = append(g.Lines, l)
	}
	return g, rows.Err()
}

func scanReceipt(s scanner) (*entity.GoodsReceipt, error) {
	var (
		g   entity.GoodsReceipt
		loc string
	)
	if err := s.Scan(&g.ID, &g.Number, &g.SupplierName, &loc, &g.DeliveryReference, &g.ReceiptDate,
		&g.Notes, &g.CreatedBy, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, mapError("leer nota", err)
	}
	dest, err := entity.ParseLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("nota %s: %w", g.Number, err)
	}
	g.Destination = dest
	return &g, nil
}
