package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

var (
	_ repository.ResourceRepository = (*ResourceRepo)(nil)
	_ repository.ProjectRepository  = (*ProjectRepo)(nil)
)

// ResourceRepo catálogo de recursos.
type ResourceRepo struct {
	q Querier
}

func NewResourceRepository(q Querier) *ResourceRepo {
	return &ResourceRepo{q: q}
}

func (r *ResourceRepo) Create(ctx context.Context, res *entity.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	query := `
		INSERT INTO resources (id, name, sku, base_unit)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query, res.ID, res.Name, res.SKU, res.BaseUnit).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return mapError("crear recurso "+res.SKU, err)
	}
	return nil
}

func (r *ResourceRepo) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	var res entity.Resource
	err := r.q.QueryRow(ctx, `
		SELECT id, name, sku, base_unit, created_at, updated_at
		FROM resources WHERE id = $1`, id,
	).Scan(&res.ID, &res.Name, &res.SKU, &res.BaseUnit, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("obtener recurso", err)
	}
	return &res, nil
}

func (r *ResourceRepo) List(ctx context.Context) ([]*entity.Resource, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, sku, base_unit, created_at, updated_at FROM resources ORDER BY sku`)
	if err != nil {
		return nil, mapError("listar recursos", err)
	}
	defer rows.Close()
	var list []*entity.Resource
	for rows.Next() {
		var res entity.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.SKU, &res.BaseUnit, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, mapError("leer recurso", err)
		}
		list = append(list, &res)
	}
	return list, rows.Err()
}

// UpdateBaseUnit solo procede mientras el recurso no tenga lotes.
func (r *ResourceRepo) UpdateBaseUnit(ctx context.Context, id, baseUnit string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE resources SET base_unit = $2, updated_at = now()
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM batches WHERE resource_id = $1)`, id, baseUnit)
	if err != nil {
		return mapError("actualizar unidad base", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	res, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res == nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: el recurso %s ya tiene lotes", domain.ErrImmutable, res.SKU)
}

// ProjectRepo catálogo de proyectos.
type ProjectRepo struct {
	q Querier
}

func NewProjectRepository(q Querier) *ProjectRepo {
	return &ProjectRepo{q: q}
}

func (r *ProjectRepo) Create(ctx context.Context, p *entity.ProjectInfo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO projects (id, code, name) VALUES ($1, $2, $3)
		RETURNING created_at`, p.ID, p.Code, p.Name,
	).Scan(&p.CreatedAt)
	if err != nil {
		return mapError("crear proyecto "+p.Code, err)
	}
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*entity.ProjectInfo, error) {
	var p entity.ProjectInfo
	err := r.q.QueryRow(ctx, `SELECT id, code, name, created_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("obtener proyecto", err)
	}
	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*entity.ProjectInfo, error) {
	rows, err := r.q.Query(ctx, `SELECT id, code, name, created_at FROM projects ORDER BY code`)
	if err != nil {
		return nil, mapError("listar proyectos", err)
	}
	defer rows.Close()
	var list []*entity.ProjectInfo
	for rows.Next() {
		var p entity.ProjectInfo
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.CreatedAt); err != nil {
			return nil, mapError("leer proyecto", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
