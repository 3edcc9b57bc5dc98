package repository

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

// EntryFilter restringe una consulta del libro mayor. Campos vacíos no filtran.
type EntryFilter struct {
	ResourceID     string
	Location       *entity.Location
	Range          entity.DateRange
	Types          []entity.MovementType
	GoodsReceiptID string
}

// LedgerRepository define el puerto de persistencia del libro mayor.
// Solo inserta: no existe camino de actualización ni de borrado.
type LedgerRepository interface {
	// Append asigna ID y CreatedAt y persiste el asiento.
	Append(ctx context.Context, entry *entity.LedgerEntry) (int64, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error)
	// List devuelve los asientos ordenados por (TransactionDate, ID).
	List(ctx context.Context, filter EntryFilter) ([]*entity.LedgerEntry, error)
	CountByGoodsReceipt(ctx context.Context, goodsReceiptID string) (int, error)
}
