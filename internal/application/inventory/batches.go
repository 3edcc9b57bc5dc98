package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

// UpdateBatch edita proveedor y notas de un lote. Tocar un campo congelado devuelve
// *domain.ImmutableFieldError.
func (s *Service) UpdateBatch(ctx context.Context, actor entity.Actor, batchID int64, patch entity.BatchPatch) (*entity.Batch, error) {
	const op = "batch.update"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	var updated *entity.Batch
	err := s.txRunner.Run(ctx, nil, func(_ repository.LedgerRepository, batches repository.BatchRepository) error {
		b, err := batches.GetByID(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.ErrNotFound
		}
		if field, frozen := patch.FrozenField(b); frozen {
			return &domain.ImmutableFieldError{Field: field}
		}
		if patch.Supplier != nil {
			b.Supplier = *patch.Supplier
		}
		if patch.Notes != nil {
			b.Notes = *patch.Notes
		}
		if err := batches.UpdateDetails(ctx, b.ID, b.Supplier, b.Notes); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	return updated, nil
}

// DeleteUnusedBatch anula un lote que no se ha tocado y registra el ADJUSTMENT que lo compensa
// en la misma unidad de trabajo.
func (s *Service) DeleteUnusedBatch(ctx context.Context, actor entity.Actor, batchID int64, reason string) (*MovementResult, error) {
	const op = "batch.delete"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if reason == "" {
		return nil, s.fail(op, actor, domain.Invalid("motivo requerido para anular un lote"))
	}

	// Primero se lee el lote para saber qué ubicación bloquear.
	var peek *entity.Batch
	err := s.txRunner.Run(ctx, nil, func(_ repository.LedgerRepository, batches repository.BatchRepository) error {
		b, err := batches.GetByID(ctx, batchID)
		peek = b
		return err
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	if peek == nil {
		return nil, s.fail(op, actor, domain.ErrNotFound)
	}

	keys := []entity.StockKey{{ResourceID: peek.ResourceID, Location: peek.Location}}
	out, err := s.run(ctx, keys, func(u *unit) error {
		b, err := s.engine.Void(u.ctx, u.batch, batchID)
		if err != nil {
			return err
		}
		base := inventory.ToBase(b.QuantityPurchased, b.ConversionFactor)
		price := inventory.BaseUnitPrice(b.UnitPrice, b.ConversionFactor)
		avail, err := u.calc.CurrentBalance(u.ctx, b.ResourceID, b.Location)
		if err != nil {
			return err
		}
		if avail.LessThan(base) {
			return &domain.InsufficientStockError{Location: b.Location.String(), Available: avail, Requested: base}
		}
		u.result.UnitPrice = price
		return u.post(&entity.LedgerEntry{
			ResourceID:      b.ResourceID,
			Location:        b.Location,
			Type:            entity.MovementAdjustment,
			Quantity:        base.Neg(),
			UnitPrice:       price,
			TransactionDate: entity.Day(s.now()),
			Notes:           joinNote("Anulación lote "+b.BatchNumber, reason),
			CreatedBy:       actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}
