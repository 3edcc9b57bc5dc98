package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

type resourceRepo struct {
	q   querier
	now func() time.Time
}

func (r *resourceRepo) Create(ctx context.Context, res *entity.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := r.now()
	res.CreatedAt, res.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO resources (id, name, sku, base_unit, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.Name, res.SKU, res.BaseUnit, now.Format(tsLayout), now.Format(tsLayout))
	return mapError("crear recurso "+res.SKU, err)
}

func (r *resourceRepo) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	list, err := r.query(ctx, `SELECT id, name, sku, base_unit, created_at, updated_at FROM resources WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *resourceRepo) List(ctx context.Context) ([]*entity.Resource, error) {
	return r.query(ctx, `SELECT id, name, sku, base_unit, created_at, updated_at FROM resources ORDER BY sku`)
}

func (r *resourceRepo) UpdateBaseUnit(ctx context.Context, id, baseUnit string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE resources SET base_unit = ?, updated_at = ?
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM batches WHERE resource_id = ?)`,
		baseUnit, r.now().Format(tsLayout), id, id)
	if err != nil {
		return mapError("actualizar unidad base", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: el recurso %s ya tiene lotes", domain.ErrImmutable, existing.SKU)
}

func (r *resourceRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Resource, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar recursos", err)
	}
	defer rows.Close()
	var list []*entity.Resource
	for rows.Next() {
		var (
			res              entity.Resource
			created, updated string
		)
		if err := rows.Scan(&res.ID, &res.Name, &res.SKU, &res.BaseUnit, &created, &updated); err != nil {
			return nil, mapError("leer recurso", err)
		}
		res.CreatedAt, res.UpdatedAt = parseTS(created), parseTS(updated)
		list = append(list, &res)
	}
	return list, rows.Err()
}

type projectRepo struct {
	q   querier
	now func() time.Time
}

func (r *projectRepo) Create(ctx context.Context, p *entity.ProjectInfo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.now()
	_, err := r.q.ExecContext(ctx, `INSERT INTO projects (id, code, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Code, p.Name, p.CreatedAt.Format(tsLayout))
	return mapError("crear proyecto "+p.Code, err)
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*entity.ProjectInfo, error) {
	var (
		p       entity.ProjectInfo
		created string
	)
	err := r.q.QueryRowContext(ctx, `SELECT id, code, name, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Code, &p.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("obtener proyecto", err)
	}
	p.CreatedAt = parseTS(created)
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]*entity.ProjectInfo, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, code, name, created_at FROM projects ORDER BY code`)
	if err != nil {
		return nil, mapError("listar proyectos", err)
	}
	defer rows.Close()
	var list []*entity.ProjectInfo
	for rows.Next() {
		var (
			p       entity.ProjectInfo
			created string
		)
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &created); err != nil {
			return nil, mapError("leer proyecto", err)
		}
		p.CreatedAt = parseTS(created)
		list = append(list, &p)
	}
	return list, rows.Err()
}

type receiptRepo struct {
	db  *sql.DB
	now func() time.Time
}

const receiptColumns = `id, number, supplier_name, location, delivery_reference, receipt_date, notes, created_by, created_at`

// Create guarda cabecera y líneas en una sola transacción.
func (r *receiptRepo) Create(ctx context.Context, g *entity.GoodsReceipt) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.ReceiptDate = entity.Day(g.ReceiptDate)
	g.CreatedAt = r.now()
	loc, projectID := locationArgs(g.Destination)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goods_receipts (id, number, supplier_name, location, project_id, delivery_reference,
			receipt_date, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Number, g.SupplierName, loc, projectID, g.DeliveryReference,
		g.ReceiptDate.Format(dateLayout), g.Notes, g.CreatedBy, g.CreatedAt.Format(tsLayout))
	if err != nil {
		return mapError("crear nota "+g.Number, err)
	}
	for _, l := range g.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goods_receipt_lines (goods_receipt_id, line_no, resource_id, quantity_received, receipt_unit, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, l.LineNo, l.ResourceID, l.QuantityReceived, l.ReceiptUnit, l.UnitPrice)
		if err != nil {
			return mapError(fmt.Sprintf("crear línea %d de %s", l.LineNo, g.Number), err)
		}
	}
	return mapError("commit transaction", tx.Commit())
}

func (r *receiptRepo) GetByID(ctx context.Context, id string) (*entity.GoodsReceipt, error) {
	return r.one(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE id = ?`, id)
}

func (r *receiptRepo) GetByNumber(ctx context.Context, number string) (*entity.GoodsReceipt, error) {
	return r.one(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE number = ?`, number)
}

func (r *receiptRepo) List(ctx context.Context) ([]*entity.GoodsReceipt, error) {
	return r.query(ctx, `SELECT `+receiptColumns+` FROM goods_receipts ORDER BY number`)
}

func (r *receiptRepo) CountByYear(ctx context.Context, year int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM goods_receipts WHERE number LIKE ?`,
		fmt.Sprintf("GRN-%d-%%", year)).Scan(&n)
	if err != nil {
		return 0, mapError("contar notas", err)
	}
	return n, nil
}

func (r *receiptRepo) one(ctx context.Context, query string, arg string) (*entity.GoodsReceipt, error) {
	list, err := r.query(ctx, query, arg)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// query lee las cabeceras y después las líneas; con :memory: hay una sola conexión y no
// se pueden anidar cursores.
func (r *receiptRepo) query(ctx context.Context, query string, args ...any) ([]*entity.GoodsReceipt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("listar notas", err)
	}
	var list []*entity.GoodsReceipt
	for rows.Next() {
		var (
			g                  entity.GoodsReceipt
			loc, date, created string
		)
		if err := rows.Scan(&g.ID, &g.Number, &g.SupplierName, &loc, &g.DeliveryReference, &date,
			&g.Notes, &g.CreatedBy, &created); err != nil {
			rows.Close()
			return nil, mapError("leer nota", err)
		}
		if g.Destination, err = entity.ParseLocation(loc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("nota %s: %w", g.Number, err)
		}
		if g.ReceiptDate, err = parseDate(date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("nota %s: %w", g.Number, err)
		}
		g.CreatedAt = parseTS(created)
		list = append(list, &g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("leer notas", err)
	}
	for _, g := range list {
		if err := r.lines(ctx, g); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *receiptRepo) lines(ctx context.Context, g *entity.GoodsReceipt) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT line_no, resource_id, quantity_received, receipt_unit, unit_price
		FROM goods_receipt_lines WHERE goods_receipt_id = ? ORDER BY line_no`, g.ID)
	if err != nil {
		return mapError("listar líneas", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.GoodsReceiptLine
		if err := rows.Scan(&l.LineNo, &l.ResourceID, &l.QuantityReceived, &l.ReceiptUnit, &l.UnitPrice); err != nil {
			return mapError("leer línea", err)
		}
		g.Lines = append(g.Lines, l)
	}
	return rows.Err()
}
