package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Draw es lo que una consumición toma de un lote.
type Draw struct {
	BatchID          int64
	BatchNumber      string
	PurchaseDate     time.Time
	Unit             string
	ConversionFactor decimal.Decimal
	UnitPrice        decimal.Decimal
	QuantityNative   decimal.Decimal
	QuantityBase     decimal.Decimal
	Cost             decimal.Decimal
	RemainingAfter   decimal.Decimal
}

// Plan es el resultado de planificar una consumición FIFO; no modifica los lotes.
type Plan struct {
	Quantity decimal.Decimal
	Cost     decimal.Decimal
	Draws    []Draw
}

// SortFIFO ordena por fecha de compra y luego por id de lote.
func SortFIFO(batches []*entity.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.PurchaseDate.Equal(b.PurchaseDate) {
			return a.PurchaseDate.Before(b.PurchaseDate)
		}
		return a.ID < b.ID
	})
}

// Available suma el saldo en unidades base de los lotes.
func Available(batches []*entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.QuantityRemaining.IsPositive() {
			total = total.Add(b.RemainingBase())
		}
	}
	return total
}

// PlanConsumption decide cuánto tomar de cada lote para cubrir quantity (unidades base).
// Falla sin plan parcial si el total disponible no alcanza.
func PlanConsumption(batches []*entity.Batch, quantity decimal.Decimal) (*Plan, error) {
	if !quantity.IsPositive() {
		return nil, domain.Invalid("la cantidad a consumir debe ser positiva")
	}
	sorted := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.QuantityRemaining.IsPositive() {
			sorted = append(sorted, b)
		}
	}
	SortFIFO(sorted)

	allowance := decimal.Zero
	for _, b := range sorted {
		allowance = allowance.Add(slack(b.ConversionFactor))
	}
	if available := Available(sorted); available.Add(allowance).LessThan(quantity) {
		loc := ""
		if len(sorted) > 0 {
			loc = sorted[0].Location.String()
		}
		return nil, &domain.InsufficientStockError{Location: loc, Available: available, Requested: quantity}
	}

	plan := &Plan{Quantity: quantity, Cost: decimal.Zero}
	needed := quantity
	for _, b := range sorted {
		if needed.LessThanOrEqual(Tolerance) {
			break
		}
		avail := b.RemainingBase()

		// Un retiro que deja menos que la holgura agota el lote; el parcial trunca
		// la unidad nativa para que el lote no pierda más de lo registrado.
		var take, native, after decimal.Decimal
		if needed.GreaterThanOrEqual(avail.Sub(slack(b.ConversionFactor))) {
			take = avail
			native = b.QuantityRemaining
			after = decimal.Zero
		} else {
			take = needed
			native = FloorFromBase(take, b.ConversionFactor)
			if !native.IsPositive() {
				break
			}
			after = b.QuantityRemaining.Sub(native)
		}
		cost := native.Mul(b.UnitPrice)

		plan.Draws = append(plan.Draws, Draw{
			BatchID:          b.ID,
			BatchNumber:      b.BatchNumber,
			PurchaseDate:     b.PurchaseDate,
			Unit:             b.Unit,
			ConversionFactor: b.ConversionFactor,
			UnitPrice:        b.UnitPrice,
			QuantityNative:   native,
			QuantityBase:     take,
			Cost:             cost,
			RemainingAfter:   after,
		})
		plan.Cost = plan.Cost.Add(cost)
		needed = decimal.Max(decimal.Zero, needed.Sub(take))
	}
	return plan, nil
}

// RestoreQuantity devuelve el nuevo saldo de un lote tras reponerle qtyNative.
// Nunca supera la cantidad comprada.
func RestoreQuantity(b *entity.Batch, qtyNative decimal.Decimal) (decimal.Decimal, error) {
	if !qtyNative.IsPositive() {
		return decimal.Zero, domain.Invalid("la cantidad a reponer debe ser positiva")
	}
	next := b.QuantityRemaining.Add(qtyNative)
	if next.GreaterThan(b.QuantityPurchased) {
		return decimal.Zero, domain.Invalid("el lote %s no puede superar lo comprado (%s)",
			b.BatchNumber, b.QuantityPurchased.String())
	}
	return next, nil
}
