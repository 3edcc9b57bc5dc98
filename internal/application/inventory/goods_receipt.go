package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// GoodsReceiptInput describe una nota de recepción antes de numerarla.
type GoodsReceiptInput struct {
	Number            string // opcional; por defecto GRN-<año>-<00001>
	SupplierName      string
	ProjectID         string // opcional; asigna la recepción directo al proyecto
	DeliveryReference string
	ReceiptDate       time.Time
	Notes             string
	Lines             []GoodsReceiptLineInput
}

type GoodsReceiptLineInput struct {
	ResourceID       string
	QuantityReceived decimal.Decimal
	ReceiptUnit      string // vacío = unidad base del recurso
	UnitPrice        decimal.Decimal
}

// CreateGoodsReceipt valida y guarda una nota de recepción; no mueve inventario.
func (s *Service) CreateGoodsReceipt(ctx context.Context, actor entity.Actor, in GoodsReceiptInput) (*entity.GoodsReceipt, error) {
	const op = "goods_receipt.create"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	grn := &entity.GoodsReceipt{
		Number:            strings.TrimSpace(in.Number),
		SupplierName:      strings.TrimSpace(in.SupplierName),
		DeliveryReference: in.DeliveryReference,
		ReceiptDate:       s.day(in.ReceiptDate),
		Notes:             in.Notes,
		CreatedBy:         actor.UserID,
	}
	if in.ProjectID != "" {
		grn.Destination = entity.Project(in.ProjectID)
	}
	for i, l := range in.Lines {
		grn.Lines = append(grn.Lines, entity.GoodsReceiptLine{
			LineNo:           i + 1,
			ResourceID:       l.ResourceID,
			QuantityReceived: l.QuantityReceived,
			ReceiptUnit:      strings.TrimSpace(l.ReceiptUnit),
			UnitPrice:        l.UnitPrice,
		})
	}
	if _, err := s.checkGoodsReceipt(ctx, grn); err != nil {
		return nil, s.fail(op, actor, err)
	}
	if err := s.saveGoodsReceipt(ctx, grn); err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.log.Info().Str("op", op).Str("grn", grn.Number).Int("lines", len(grn.Lines)).Msg("nota de recepción creada")
	return grn, nil
}

// maxNumberAttempts acota los reintentos de numeración automática ante números ocupados.
const maxNumberAttempts = 50

// saveGoodsReceipt guarda la nota. Sin número asignado numera GRN-<año>-<n> empezando por
// el conteo del año y avanza mientras el número ya exista.
func (s *Service) saveGoodsReceipt(ctx context.Context, grn *entity.GoodsReceipt) error {
	if grn.Number != "" {
		if err := s.receipts.Create(ctx, grn); err != nil {
			return fmt.Errorf("guardar nota %s: %w", grn.Number, err)
		}
		return nil
	}
	year := grn.ReceiptDate.Year()
	n, err := s.receipts.CountByYear(ctx, year)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		grn.Number = fmt.Sprintf("GRN-%d-%05d", year, n+attempt)
		err := s.receipts.Create(ctx, grn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxNumberAttempts {
			grn.Number = ""
			return fmt.Errorf("numerar nota del año %d: %w", year, err)
		}
	}
}

// receiptLine es una línea ya convertida a unidades base.
type receiptLine struct {
	line      entity.GoodsReceiptLine
	resource  *entity.Resource
	factor    decimal.Decimal
	baseQty   decimal.Decimal
	basePrice decimal.Decimal
}

// checkGoodsReceipt valida la nota y completa unidades vacías con la unidad base del recurso.
func (s *Service) checkGoodsReceipt(ctx context.Context, grn *entity.GoodsReceipt) ([]receiptLine, error) {
	if grn.SupplierName == "" {
		return nil, domain.Invalid("proveedor requerido")
	}
	if len(grn.Lines) == 0 {
		return nil, domain.Invalid("la nota de recepción no tiene líneas")
	}
	if err := s.location(ctx, grn.Destination); err != nil {
		return nil, err
	}
	out := make([]receiptLine, 0, len(grn.Lines))
	for i := range grn.Lines {
		l := &grn.Lines[i]
		if err := requirePositive(l.QuantityReceived, fmt.Sprintf("la cantidad de la línea %d", l.LineNo)); err != nil {
			return nil, err
		}
		if l.UnitPrice.IsNegative() {
			return nil, domain.Invalid("precio negativo en la línea %d", l.LineNo)
		}
		res, err := s.resource(ctx, l.ResourceID)
		if err != nil {
			return nil, err
		}
		if l.ReceiptUnit == "" {
			l.ReceiptUnit = res.BaseUnit
		}
		factor, err := inventory.ConversionFactor(l.ReceiptUnit, res.BaseUnit)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", l.LineNo, err)
		}
		out = append(out, receiptLine{
			line:      *l,
			resource:  res,
			factor:    factor,
			baseQty:   inventory.ToBase(l.QuantityReceived, factor),
			basePrice: inventory.BaseUnitPrice(l.UnitPrice, factor),
		})
	}
	return out, nil
}

// RecordGoodsReceipt procesa una nota: un GOODS_RECEIPT en el Hub y un lote por línea; si la nota
// va a un proyecto, además un par de asignación por línea al precio de la línea.
// Una nota ya procesada devuelve domain.ErrConflict.
func (s *Service) RecordGoodsReceipt(ctx context.Context, actor entity.Actor, grnID string) (*MovementResult, error) {
	const op = "goods_receipt"
	if err := requireActor(actor); err != nil {
		return nil, s.fail(op, actor, err)
	}
	grn, err := s.receipts.GetByID(ctx, grnID)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	if grn == nil {
		return nil, s.fail(op, actor, fmt.Errorf("%w: nota de recepción %s", domain.ErrNotFound, grnID))
	}
	lines, err := s.checkGoodsReceipt(ctx, grn)
	if err != nil {
		return nil, s.fail(op, actor, err)
	}

	hub := entity.Hub()
	dest := grn.Destination
	keys := make([]entity.StockKey, 0, 2*len(lines))
	for _, l := range lines {
		keys = append(keys, entity.StockKey{ResourceID: l.resource.ID, Location: hub})
		if !dest.IsHub() {
			keys = append(keys, entity.StockKey{ResourceID: l.resource.ID, Location: dest})
		}
	}

	out, err := s.run(ctx, keys, func(u *unit) error {
		// Dos procesamientos de la misma nota piden las mismas claves y quedan en serie.
		n, err := u.entries.CountByGoodsReceipt(u.ctx, grn.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: la nota %s ya fue procesada", domain.ErrConflict, grn.Number)
		}
		for _, l := range lines {
			b := &entity.Batch{
				ResourceID:        l.resource.ID,
				Location:          dest,
				BatchNumber:       fmt.Sprintf("%s-L%d", grn.Number, l.line.LineNo),
				PurchaseDate:      grn.ReceiptDate,
				Unit:              l.line.ReceiptUnit,
				ConversionFactor:  l.factor,
				UnitPrice:         l.line.UnitPrice,
				QuantityPurchased: l.line.QuantityReceived,
				QuantityRemaining: l.line.QuantityReceived,
				Supplier:          grn.SupplierName,
				Notes:             grn.Notes,
			}
			if err := s.engine.Create(u.ctx, u.batch, b); err != nil {
				return err
			}
			u.result.Batches = append(u.result.Batches, b)

			base := entity.LedgerEntry{
				ResourceID:      l.resource.ID,
				Quantity:        l.baseQty,
				UnitPrice:       l.basePrice,
				TransactionDate: grn.ReceiptDate,
				Supplier:        grn.SupplierName,
				InvoiceNumber:   grn.DeliveryReference,
				GoodsReceiptID:  grn.ID,
				CreatedBy:       actor.UserID,
			}
			receipt := base
			receipt.Location = hub
			receipt.Type = entity.MovementGoodsReceipt
			receipt.Notes = joinNote(fmt.Sprintf("Recepción %s: %s %s", grn.Number, l.line.QuantityReceived, l.line.ReceiptUnit), grn.Notes)
			if err := u.post(&receipt); err != nil {
				return err
			}
			if dest.IsHub() {
				continue
			}
			note := fmt.Sprintf("Asignación directa %s → %s", grn.Number, dest)
			allocOut := base
			allocOut.Location = hub
			allocOut.Type = entity.MovementAllocationOut
			allocOut.Quantity = l.baseQty.Neg()
			allocOut.Notes = note
			if err := u.post(&allocOut); err != nil {
				return err
			}
			allocIn := base
			allocIn.Location = dest
			allocIn.Type = entity.MovementAllocationIn
			allocIn.Notes = note
			if err := u.post(&allocIn); err != nil {
				return err
			}
		}
		if len(lines) == 1 {
			u.result.UnitPrice = lines[0].basePrice
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, actor, err)
	}
	s.committed(op, actor, out)
	return out, nil
}

// ProcessReport resume una corrida de ProcessPendingGoodsReceipts.
type ProcessReport struct {
	Processed []string
	Skipped   []string
	Failed    map[string]error
}

// ProcessPendingGoodsReceipts procesa las notas sin asientos. Con number no vacío procesa solo esa.
// Las notas ya procesadas se omiten; los fallos se devuelven por nota y no detienen la corrida.
func (s *Service) ProcessPendingGoodsReceipts(ctx context.Context, actor entity.Actor, number string) (*ProcessReport, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	grns, err := s.receipts.List(ctx)
	if err != nil {
		return nil, err
	}
	if number != "" {
		var only []*entity.GoodsReceipt
		for _, g := range grns {
			if g.Number == number {
				only = append(only, g)
			}
		}
		if len(only) == 0 {
			return nil, fmt.Errorf("%w: nota de recepción %s", domain.ErrNotFound, number)
		}
		grns = only
	}

	report := &ProcessReport{Failed: make(map[string]error)}
	for _, g := range grns {
		_, err := s.RecordGoodsReceipt(ctx, actor, g.ID)
		switch {
		case err == nil:
			report.Processed = append(report.Processed, g.Number)
		case errors.Is(err, domain.ErrConflict):
			report.Skipped = append(report.Skipped, g.Number)
		default:
			report.Failed[g.Number] = err
		}
	}
	s.log.Info().
		Int("processed", len(report.Processed)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("procesamiento de notas de recepción terminado")
	return report, nil
}
