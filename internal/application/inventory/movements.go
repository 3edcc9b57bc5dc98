package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PurchaseInput registra una compra manual en el Hub, en la unidad base del recurso.
type PurchaseInput struct {
	ResourceID    string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Date          time.Time
	Supplier      string
	InvoiceNumber string
	BatchNumber   string // opcional; se genera si está vacío
	Notes         string
}

// RecordPurchase crea un asiento PURCHASE y un lote en el Hub.
func (s *Service) RecordPurchase(ctx context.Context, actor entity.Actor, in PurchaseInput) (*MovementResult, error) {
	const op = "purchase"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := requirePositive(in.Quantity, "la cantidad"); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if in.UnitPrice.IsNegative() {
		return nil, s.fail(op, actor, domain.Invalid("el precio unitario no puede ser negativo"))
	}
	res, err := s.resource(ctx, in.ResourceID)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	date := s.day(in.Date)
	hub := entity.Hub()

	out, err := s.run(ctx, []entity.StockKey{{ResourceID: res.ID, Location: hub}}, func(u *unit) error {
		number := in.BatchNumber
		if number == "" {
			number = s.engine.BatchNumber("PUR")
		}
		b := &entity.Batch{
			ResourceID:        res.ID,
			Location:          hub,
			BatchNumber:       number,
			PurchaseDate:      date,
			Unit:              res.BaseUnit,
			ConversionFactor:  decimal.NewFromInt(1),
			UnitPrice:         in.UnitPrice,
			QuantityPurchased: in.Quantity,
			QuantityRemaining: in.Quantity,
			Supplier:          in.Supplier,
			Notes:             in.Notes,
		}
		if err := s.engine.Create(u.ctx, u.batch, b); err != nil {
			return err
		}
		u.result.Batches = append(u.result.Batches, b)
		u.result.UnitPrice = in.UnitPrice
		return u.post(&entity.LedgerEntry{
			ResourceID:      res.ID,
			Location:        hub,
			Type:            entity.MovementPurchase,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			TransactionDate: date,
			Supplier:        in.Supplier,
			InvoiceNumber:   in.InvoiceNumber,
			Notes:           in.Notes,
			CreatedBy:       actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}

// AllocationInput asigna stock del Hub a un proyecto.
type AllocationInput struct {
	ResourceID string
	ProjectID  string
	Quantity   decimal.Decimal
	Date       time.Time
	Notes      string
}

// RecordAllocation mueve stock del Hub al proyecto al precio promedio del Hub.
func (s *Service) RecordAllocation(ctx context.Context, actor entity.Actor, in AllocationInput) (*MovementResult, error) {
	return s.move(ctx, actor, "allocation", moveSpec{
		resourceID: in.ResourceID,
		from:       entity.Hub(),
		to:         entity.Project(in.ProjectID),
		quantity:   in.Quantity,
		date:       in.Date,
		notes:      in.Notes,
		outType:    entity.MovementAllocationOut,
		inType:     entity.MovementAllocationIn,
		prefix:     "ALLOC",
	})
}

// TransferInput mueve stock desde un proyecto hacia otro proyecto o hacia el Hub.
type TransferInput struct {
	ResourceID string
	From       entity.Location
	To         entity.Location
	Quantity   decimal.Decimal
	Date       time.Time
	Notes      string
}

// RecordTransfer registra TRANSFER_OUT en origen y TRANSFER_IN en destino al precio promedio del origen.
func (s *Service) RecordTransfer(ctx context.Context, actor entity.Actor, in TransferInput) (*MovementResult, error) {
	if in.From.IsHub() {
		return nil, s.fail("transfer", actor, domain.Invalid("desde el Hub se asigna, no se transfiere"))
	}
	return s.move(ctx, actor, "transfer", moveSpec{
		resourceID: in.ResourceID,
		from:       in.From,
		to:         in.To,
		quantity:   in.Quantity,
		date:       in.Date,
		notes:      in.Notes,
		outType:    entity.MovementTransferOut,
		inType:     entity.MovementTransferIn,
		prefix:     "TRF",
	})
}

// ReturnInput devuelve stock de un proyecto al Hub.
type ReturnInput struct {
	ResourceID string
	ProjectID  string
	Quantity   decimal.Decimal
	Date       time.Time
	Notes      string
}

// RecordReturn es una transferencia del proyecto al Hub.
func (s *Service) RecordReturn(ctx context.Context, actor entity.Actor, in ReturnInput) (*MovementResult, error) {
	return s.move(ctx, actor, "return", moveSpec{
		resourceID: in.ResourceID,
		from:       entity.Project(in.ProjectID),
		to:         entity.Hub(),
		quantity:   in.Quantity,
		date:       in.Date,
		notes:      in.Notes,
		outType:    entity.MovementTransferOut,
		inType:     entity.MovementTransferIn,
		prefix:     "RET",
	})
}

type moveSpec struct {
	resourceID string
	from, to   entity.Location
	quantity   decimal.Decimal
	date       time.Time
	notes      string
	outType    entity.MovementType
	inType     entity.MovementType
	prefix     string
}

// move escribe las dos patas con el mismo precio y mueve los lotes FIFO; o todo o nada.
func (s *Service) move(ctx context.Context, actor entity.Actor, op string, m moveSpec) (*MovementResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := requirePositive(m.quantity, "la cantidad"); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if m.from.Equal(m.to) {
		return nil, s.fail(op, actor, domain.Invalid("origen y destino deben ser distintos"))
	}
	res, err := s.resource(ctx, m.resourceID)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	for _, loc := range []entity.Location{m.from, m.to} {
		if err := s.location(ctx, loc); err != nil {
			return nil, s.fail(op, actor, err)
		}
	}
	date := s.day(m.date)
	keys := []entity.StockKey{{ResourceID: res.ID, Location: m.from}, {ResourceID: res.ID, Location: m.to}}

	out, err := s.run(ctx, keys, func(u *unit) error {
		price, err := u.requireStock(res.ID, m.from, m.quantity)
		if err != nil {
			return err
		}
		fifoRes, created, err := s.engine.Move(u.ctx, u.batch, res.ID, m.from, m.to, m.quantity, m.prefix)
		if err != nil {
			return err
		}
		u.result.FIFO = fifoRes
		u.result.Batches = created
		u.result.UnitPrice = price

		note := joinNote(fmt.Sprintf("%s → %s", m.from, m.to), m.notes)
		if err := u.post(&entity.LedgerEntry{
			ResourceID:      res.ID,
			Location:        m.from,
			Type:            m.outType,
			Quantity:        m.quantity.Neg(),
			UnitPrice:       price,
			TransactionDate: date,
			Notes:           note,
			CreatedBy:       actor.UserID,
		}); err != nil {
			return err
		}
		return u.post(&entity.LedgerEntry{
			ResourceID:      res.ID,
			Location:        m.to,
			Type:            m.inType,
			Quantity:        m.quantity,
			UnitPrice:       price,
			TransactionDate: date,
			Notes:           note,
			CreatedBy:       actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}

// ConsumptionInput consume stock en un proyecto o, con motivo, directamente en el Hub.
type ConsumptionInput struct {
	ResourceID string
	Location   entity.Location
	Quantity   decimal.Decimal
	Date       time.Time
	Reason     string // obligatorio en el Hub
	Notes      string
}

// RecordConsumption registra la salida al precio promedio de la ubicación y devuelve además
// el costo real FIFO de los lotes consumidos.
func (s *Service) RecordConsumption(ctx context.Context, actor entity.Actor, in ConsumptionInput) (*MovementResult, error) {
	const op = "consumption"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := requirePositive(in.Quantity, "la cantidad"); err != nil {
		return nil, s.fail(op, actor, err)
	}
	typ := entity.MovementConsumption
	note := in.Notes
	if in.Location.IsHub() {
		if in.Reason == "" {
			return nil, s.fail(op, actor, domain.Invalid("el consumo directo en el Hub requiere motivo"))
		}
		typ = entity.MovementDirectConsumption
	}
	if in.Reason != "" {
		note = joinNote("Motivo: "+in.Reason, in.Notes)
	}
	res, err := s.resource(ctx, in.ResourceID)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := s.location(ctx, in.Location); err != nil {
		return nil, s.fail(op, actor, err)
	}
	date := s.day(in.Date)

	out, err := s.run(ctx, []entity.StockKey{{ResourceID: res.ID, Location: in.Location}}, func(u *unit) error {
		price, err := u.requireStock(res.ID, in.Location, in.Quantity)
		if err != nil {
			return err
		}
		fifoRes, err := s.engine.Consume(u.ctx, u.batch, res.ID, in.Location, in.Quantity)
		if err != nil {
			return err
		}
		if err := u.batch.RecordDraws(u.ctx, drawsOf(u.result.MovementID, fifoRes)); err != nil {
			return err
		}
		u.result.FIFO = fifoRes
		u.result.UnitPrice = price
		return u.post(&entity.LedgerEntry{
			ResourceID:        res.ID,
			Location:          in.Location,
			Type:              typ,
			Quantity:          in.Quantity.Neg(),
			UnitPrice:         price,
			TransactionDate:   date,
			Notes:             note,
			ConsumptionReason: in.Reason,
			CreatedBy:         actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}

// AdjustmentInput corrige el saldo de una ubicación. Quantity lleva signo.
type AdjustmentInput struct {
	ResourceID string
	Location   entity.Location
	Quantity   decimal.Decimal
	UnitPrice  *decimal.Decimal // solo para ajustes positivos; por defecto el promedio de la ubicación
	Date       time.Time
	Notes      string
}

// RecordAdjustment agrega un asiento ADJUSTMENT: positivo crea un lote, negativo consume FIFO.
func (s *Service) RecordAdjustment(ctx context.Context, actor entity.Actor, in AdjustmentInput) (*MovementResult, error) {
	const op = "adjustment"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if in.Quantity.IsZero() {
		return nil, s.fail(op, actor, domain.Invalid("la cantidad del ajuste no puede ser cero"))
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, s.fail(op, actor, domain.Invalid("el precio unitario no puede ser negativo"))
	}
	res, err := s.resource(ctx, in.ResourceID)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := s.location(ctx, in.Location); err != nil {
		return nil, s.fail(op, actor, err)
	}
	date := s.day(in.Date)

	out, err := s.run(ctx, []entity.StockKey{{ResourceID: res.ID, Location: in.Location}}, func(u *unit) error {
		var price decimal.Decimal
		if in.Quantity.IsPositive() {
			if in.UnitPrice != nil {
				price = *in.UnitPrice
			} else {
				avg, err := u.calc.WeightedAveragePrice(u.ctx, res.ID, in.Location)
				if err != nil {
					return err
				}
				price = avg
			}
			b := &entity.Batch{
				ResourceID:        res.ID,
				Location:          in.Location,
				BatchNumber:       s.engine.BatchNumber("ADJ"),
				PurchaseDate:      date,
				Unit:              res.BaseUnit,
				ConversionFactor:  decimal.NewFromInt(1),
				UnitPrice:         price,
				QuantityPurchased: in.Quantity,
				QuantityRemaining: in.Quantity,
				Notes:             in.Notes,
			}
			if err := s.engine.Create(u.ctx, u.batch, b); err != nil {
				return err
			}
			u.result.Batches = append(u.result.Batches, b)
		} else {
			qty := in.Quantity.Abs()
			avg, err := u.requireStock(res.ID, in.Location, qty)
			if err != nil {
				return err
			}
			fifoRes, err := s.engine.Consume(u.ctx, u.batch, res.ID, in.Location, qty)
			if err != nil {
				return err
			}
			u.result.FIFO = fifoRes
			price = avg
		}
		u.result.UnitPrice = price
		return u.post(&entity.LedgerEntry{
			ResourceID:      res.ID,
			Location:        in.Location,
			Type:            entity.MovementAdjustment,
			Quantity:        in.Quantity,
			UnitPrice:       price,
			TransactionDate: date,
			Notes:           in.Notes,
			CreatedBy:       actor.UserID,
		})
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}
