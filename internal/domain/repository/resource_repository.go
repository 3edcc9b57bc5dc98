package repository

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

// ResourceRepository define el puerto para los datos maestros de recursos.
type ResourceRepository interface {
	Create(ctx context.Context, r *entity.Resource) error
	GetByID(ctx context.Context, id string) (*entity.Resource, error)
	List(ctx context.Context) ([]*entity.Resource, error)
	// UpdateBaseUnit falla con domain.ErrImmutable si el recurso ya tiene lotes.
	UpdateBaseUnit(ctx context.Context, id, baseUnit string) error
}

// ProjectRepository define el puerto para proyectos.
type ProjectRepository interface {
	Create(ctx context.Context, p *entity.ProjectInfo) error
	GetByID(ctx context.Context, id string) (*entity.ProjectInfo, error)
	List(ctx context.Context) ([]*entity.ProjectInfo, error)
}
