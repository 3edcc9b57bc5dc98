package repository

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

// GoodsReceiptRepository persiste notas de recepción con sus líneas.
type GoodsReceiptRepository interface {
	Create(ctx context.Context, grn *entity.GoodsReceipt) error
	GetByID(ctx context.Context, id string) (*entity.GoodsReceipt, error)
	GetByNumber(ctx context.Context, number string) (*entity.GoodsReceipt, error)
	List(ctx context.Context) ([]*entity.GoodsReceipt, error)
	// CountByYear cuenta las notas cuyo número pertenece al año dado (para numerar).
	CountByYear(ctx context.Context, year int) (int, error)
}
