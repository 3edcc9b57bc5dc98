package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/fifo"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

// ReversalInput identifica el consumo a revertir.
type ReversalInput struct {
	MovementID string
	Date       time.Time
	Reason     string
}

// ReverseConsumption repone a cada lote lo que el consumo le tomó y registra un ADJUSTMENT
// positivo por la misma cantidad y al mismo precio. El consumo original no se modifica.
func (s *Service) ReverseConsumption(ctx context.Context, actor entity.Actor, in ReversalInput) (*MovementResult, error) {
	const op = "reverse_consumption"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if strings.TrimSpace(in.MovementID) == "" {
		return nil, s.fail(op, actor, domain.Invalid("movimiento requerido"))
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, s.fail(op, actor, domain.Invalid("la reversa requiere motivo"))
	}

	// La ubicación a bloquear sale del propio consumo.
	var key entity.StockKey
	err := s.txRunner.Run(ctx, nil, func(l repository.LedgerRepository, b repository.BatchRepository) error {
		orig, _, err := consumptionOf(ctx, l, b, in.MovementID)
		if err != nil {
			return err
		}
		key = entity.StockKey{ResourceID: orig.ResourceID, Location: orig.Location}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	date := s.day(in.Date)

	out, err := s.run(ctx, []entity.StockKey{key}, func(u *unit) error {
		orig, draws, err := consumptionOf(u.ctx, u.entries, u.batch, in.MovementID)
		if err != nil {
			return err
		}
		if err := u.batch.MarkDrawsReversed(u.ctx, in.MovementID, u.result.MovementID); err != nil {
			return err
		}
		for _, d := range draws {
			if err := s.engine.Restore(u.ctx, u.batch, d.BatchID, d.QuantityNative); err != nil {
				return fmt.Errorf("reponer lote %d: %w", d.BatchID, err)
			}
		}
		u.result.UnitPrice = orig.UnitPrice
		return u.post(&entity.LedgerEntry{
			ResourceID:      orig.ResourceID,
			Location:        orig.Location,
			Type:            entity.MovementAdjustment,
			Quantity:        orig.Quantity.Neg(),
			UnitPrice:       orig.UnitPrice,
			TransactionDate: date,
			Notes:           joinNote("Reversa de "+in.MovementID, in.Reason),
			CreatedBy:       actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}

// consumptionOf devuelve el asiento de consumo de movementID y su desglose vigente.
func consumptionOf(
	ctx context.Context,
	ledgerRepo repository.LedgerRepository,
	batches repository.BatchRepository,
	movementID string,
) (*entity.LedgerEntry, []entity.BatchDraw, error) {
	draws, err := batches.DrawsByMovement(ctx, movementID)
	if err != nil {
		return nil, nil, err
	}
	if len(draws) == 0 {
		return nil, nil, fmt.Errorf("%w: el movimiento %s no consumió lotes", domain.ErrNotFound, movementID)
	}
	if draws[0].ReversedBy != "" {
		return nil, nil, fmt.Errorf("%w: el movimiento %s ya fue revertido por %s",
			domain.ErrImmutable, movementID, draws[0].ReversedBy)
	}
	b, err := batches.GetByID(ctx, draws[0].BatchID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("%w: lote %d del movimiento %s", domain.ErrNotFound, draws[0].BatchID, movementID)
	}
	entries, err := ledgerRepo.List(ctx, repository.EntryFilter{
		ResourceID: b.ResourceID,
		Location:   &b.Location,
		Types:      []entity.MovementType{entity.MovementConsumption, entity.MovementDirectConsumption},
	})
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.MovementID == movementID {
			return e, draws, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: consumo %s", domain.ErrNotFound, movementID)
}

// drawsOf convierte el desglose FIFO de un consumo en registros persistibles.
func drawsOf(movementID string, res *fifo.Result) []entity.BatchDraw {
	out := make([]entity.BatchDraw, 0, len(res.Breakdown))
	for _, d := range res.Breakdown {
		if !d.QuantityNative.IsPositive() {
			continue
		}
		out = append(out, entity.BatchDraw{
			MovementID:     movementID,
			BatchID:        d.BatchID,
			QuantityNative: d.QuantityNative,
			QuantityBase:   d.QuantityBase,
			UnitPrice:      d.UnitPrice,
		})
	}
	return out
}
