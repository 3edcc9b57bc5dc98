package fifo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Result es el costo real FIFO de una consumición y su desglose por lote.
type Result struct {
	Quantity  decimal.Decimal
	Cost      decimal.Decimal
	Breakdown []inventory.Draw
}

// Engine aplica los planes FIFO sobre el repositorio de lotes que recibe,
// normalmente el de la transacción en curso.
type Engine struct {
	newID func() string
}

func NewEngine() *Engine {
	return &Engine{newID: uuid.NewString}
}

// BatchNumber genera un número de lote con prefijo, p. ej. ALLOC-1F3A9C2B7D10.
func (e *Engine) BatchNumber(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(e.newID(), "-", ""))
	return prefix + "-" + id[:12]
}

// Create valida y persiste un lote nuevo.
func (e *Engine) Create(ctx context.Context, batches repository.BatchRepository, b *entity.Batch) error {
	if err := b.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	if err := batches.Create(ctx, b); err != nil {
		return fmt.Errorf("crear lote %s: %w", b.BatchNumber, err)
	}
	return nil
}

// Consume descuenta quantity (unidades base) de los lotes de la ubicación en orden FIFO.
// Si no alcanza no toca ningún lote.
func (e *Engine) Consume(
	ctx context.Context,
	batches repository.BatchRepository,
	resourceID string,
	loc entity.Location,
	quantity decimal.Decimal,
) (*Result, error) {
	available, err := batches.ListAvailableForUpdate(ctx, resourceID, loc)
	if err != nil {
		return nil, err
	}
	plan, err := inventory.PlanConsumption(available, quantity)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			stockErr.Location = loc.String()
		}
		return nil, err
	}
	for _, d := range plan.Draws {
		if err := batches.UpdateRemaining(ctx, d.BatchID, d.RemainingAfter); err != nil {
			return nil, fmt.Errorf("actualizar lote %s: %w", d.BatchNumber, err)
		}
	}
	return &Result{Quantity: plan.Quantity, Cost: plan.Cost, Breakdown: plan.Draws}, nil
}

// Restore repone qtyNative (unidad del lote) a un lote; nunca supera lo comprado.
func (e *Engine) Restore(ctx context.Context, batches repository.BatchRepository, batchID int64, qtyNative decimal.Decimal) error {
	b, err := batches.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.ErrNotFound
	}
	next, err := inventory.RestoreQuantity(b, qtyNative)
	if err != nil {
		return err
	}
	return batches.UpdateRemaining(ctx, batchID, next)
}

// Move consume FIFO en from y recrea lo tomado como lotes nuevos en to, conservando
// unidad, factor, precio y fecha de compra de cada lote de origen.
func (e *Engine) Move(
	ctx context.Context,
	batches repository.BatchRepository,
	resourceID string,
	from, to entity.Location,
	quantity decimal.Decimal,
	prefix string,
) (*Result, []*entity.Batch, error) {
	if from.Equal(to) {
		return nil, nil, domain.Invalid("origen y destino son la misma ubicación")
	}
	res, err := e.Consume(ctx, batches, resourceID, from, quantity)
	if err != nil {
		return nil, nil, err
	}
	created := make([]*entity.Batch, 0, len(res.Breakdown))
	for _, d := range res.Breakdown {
		if !d.QuantityNative.IsPositive() {
			continue
		}
		nb := &entity.Batch{
			ResourceID:        resourceID,
			Location:          to,
			BatchNumber:       e.BatchNumber(prefix),
			PurchaseDate:      d.PurchaseDate,
			Unit:              d.Unit,
			ConversionFactor:  d.ConversionFactor,
			UnitPrice:         d.UnitPrice,
			QuantityPurchased: d.QuantityNative,
			QuantityRemaining: d.QuantityNative,
			Notes:             "origen " + d.BatchNumber,
		}
		if err := e.Create(ctx, batches, nb); err != nil {
			return nil, nil, err
		}
		created = append(created, nb)
	}
	return res, created, nil
}

// Void elimina un lote sin uso. Devuelve el lote borrado para que el llamador registre el ajuste.
func (e *Engine) Void(ctx context.Context, batches repository.BatchRepository, batchID int64) (*entity.Batch, error) {
	b, err := batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if !b.IsUnused() {
		return nil, fmt.Errorf("%w: el lote %s ya fue consumido", domain.ErrImmutable, b.BatchNumber)
	}
	if err := batches.Delete(ctx, batchID); err != nil {
		return nil, err
	}
	return b, nil
}
