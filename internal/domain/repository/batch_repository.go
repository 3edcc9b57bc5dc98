package repository

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchRepository define el puerto de persistencia de lotes.
// La única actualización de cantidades es QuantityRemaining; los campos congelados no tienen setter.
type BatchRepository interface {
	// Create asigna ID; un número de lote repetido devuelve domain.ErrConflict.
	Create(ctx context.Context, batch *entity.Batch) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Batch, error)
	// ListAvailable devuelve los lotes con saldo > 0 en orden FIFO.
	ListAvailable(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error)
	// ListAvailableForUpdate es ListAvailable bloqueando las filas hasta el fin de la transacción.
	ListAvailableForUpdate(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error)
	ListByResource(ctx context.Context, resourceID string) ([]*entity.Batch, error)
	CountByResource(ctx context.Context, resourceID string) (int, error)
	UpdateRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error
	UpdateDetails(ctx context.Context, id int64, supplier, notes string) error
	Delete(ctx context.Context, id int64) error

	// RecordDraws guarda el desglose por lote de un consumo.
	RecordDraws(ctx context.Context, draws []entity.BatchDraw) error
	// DrawsByMovement devuelve el desglose en el orden en que se registró; vacío si no hay.
	DrawsByMovement(ctx context.Context, movementID string) ([]entity.BatchDraw, error)
	// MarkDrawsReversed anota reversalID en el desglose; si ya estaba revertido devuelve domain.ErrImmutable.
	MarkDrawsReversed(ctx context.Context, movementID, reversalID string) error
}
