package balance

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Calculator deriva saldos y precios del libro mayor en cada llamada; no guarda nada en caché.
type Calculator struct {
	ledger    repository.LedgerRepository
	batches   repository.BatchRepository
	resources repository.ResourceRepository
}

// NewCalculator construye la calculadora. batches y resources solo se usan en
// Reconcile y para enriquecer reportes; pueden ser nil.
func NewCalculator(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
	resourceRepo repository.ResourceRepository,
) *Calculator {
	return &Calculator{ledger: ledgerRepo, batches: batchRepo, resources: resourceRepo}
}

// Totals acumula cantidad y valor.
type Totals struct {
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

func (t *Totals) add(e *entity.LedgerEntry) {
	t.Quantity = t.Quantity.Add(e.Quantity)
	t.Value = t.Value.Add(e.TotalValue)
}

func (t Totals) AveragePrice() decimal.Decimal {
	return inventory.WeightedAveragePrice(t.Value, t.Quantity)
}

func sum(entries []*entity.LedgerEntry) Totals {
	t := Totals{Quantity: decimal.Zero, Value: decimal.Zero}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

func (c *Calculator) list(ctx context.Context, resourceID string, loc entity.Location, rng entity.DateRange) ([]*entity.LedgerEntry, error) {
	return c.ledger.List(ctx, repository.EntryFilter{ResourceID: resourceID, Location: &loc, Range: rng})
}

func requireResource(resourceID string) error {
	if resourceID == "" {
		return domain.Invalid("recurso requerido")
	}
	return nil
}

// OpeningBalance es la suma de los asientos con fecha anterior a date.
func (c *Calculator) OpeningBalance(ctx context.Context, resourceID string, loc entity.Location, date time.Time) (decimal.Decimal, error) {
	if err := requireResource(resourceID); err != nil {
		return decimal.Zero, err
	}
	entries, err := c.list(ctx, resourceID, loc, entity.DateRange{To: entity.Day(date).AddDate(0, 0, -1)})
	if err != nil {
		return decimal.Zero, err
	}
	return sum(entries).Quantity, nil
}

// ClosingBalance es la suma de los asientos con fecha hasta date inclusive.
func (c *Calculator) ClosingBalance(ctx context.Context, resourceID string, loc entity.Location, date time.Time) (decimal.Decimal, error) {
	if err := requireResource(resourceID); err != nil {
		return decimal.Zero, err
	}
	entries, err := c.list(ctx, resourceID, loc, entity.DateRange{To: entity.Day(date)})
	if err != nil {
		return decimal.Zero, err
	}
	return sum(entries).Quantity, nil
}

// TotalIn suma las entradas (cantidad positiva) del día.
func (c *Calculator) TotalIn(ctx context.Context, resourceID string, loc entity.Location, date time.Time) (decimal.Decimal, error) {
	r, err := c.DailyReport(ctx, resourceID, loc, date)
	if err != nil {
		return decimal.Zero, err
	}
	return r.In, nil
}

// TotalOut suma el valor absoluto de las salidas del día.
func (c *Calculator) TotalOut(ctx context.Context, resourceID string, loc entity.Location, date time.Time) (decimal.Decimal, error) {
	r, err := c.DailyReport(ctx, resourceID, loc, date)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Out, nil
}

// CurrentBalance es el saldo con todos los asientos registrados.
func (c *Calculator) CurrentBalance(ctx context.Context, resourceID string, loc entity.Location) (decimal.Decimal, error) {
	t, err := c.totals(ctx, resourceID, loc)
	return t.Quantity, err
}

// WeightedAveragePrice es Σ valor / Σ cantidad en la ubicación; cero si la cantidad no es positiva.
func (c *Calculator) WeightedAveragePrice(ctx context.Context, resourceID string, loc entity.Location) (decimal.Decimal, error) {
	t, err := c.totals(ctx, resourceID, loc)
	if err != nil {
		return decimal.Zero, err
	}
	return t.AveragePrice(), nil
}

func (c *Calculator) totals(ctx context.Context, resourceID string, loc entity.Location) (Totals, error) {
	if err := requireResource(resourceID); err != nil {
		return Totals{}, err
	}
	entries, err := c.list(ctx, resourceID, loc, entity.DateRange{})
	if err != nil {
		return Totals{}, err
	}
	return sum(entries), nil
}

// DailyReport resume un día. Siempre cumple Closing = Opening + In − Out.
type DailyReport struct {
	ResourceID string
	Location   entity.Location
	Date       time.Time
	Opening    decimal.Decimal
	In         decimal.Decimal
	Out        decimal.Decimal
	Closing    decimal.Decimal
	Entries    []*entity.LedgerEntry
}

func (c *Calculator) DailyReport(ctx context.Context, resourceID string, loc entity.Location, date time.Time) (*DailyReport, error) {
	if err := requireResource(resourceID); err != nil {
		return nil, err
	}
	day := entity.Day(date)
	entries, err := c.list(ctx, resourceID, loc, entity.DateRange{To: day})
	if err != nil {
		return nil, err
	}
	r := &DailyReport{
		ResourceID: resourceID,
		Location:   loc,
		Date:       day,
		Opening:    decimal.Zero,
		In:         decimal.Zero,
		Out:        decimal.Zero,
	}
	for _, e := range entries {
		if entity.Day(e.TransactionDate).Before(day) {
			r.Opening = r.Opening.Add(e.Quantity)
			continue
		}
		r.Entries = append(r.Entries, e)
		if e.IsIncoming() {
			r.In = r.In.Add(e.Quantity)
		} else {
			r.Out = r.Out.Add(e.Quantity.Abs())
		}
	}
	r.Closing = r.Opening.Add(r.In).Sub(r.Out)
	return r, nil
}
