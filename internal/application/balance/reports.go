package balance

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// StockLine es el saldo de un recurso en una ubicación.
type StockLine struct {
	ResourceID   string
	Name         string
	SKU          string
	BaseUnit     string
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	Value        decimal.Decimal
}

// Valuation es el inventario valorizado de una ubicación a una fecha.
type Valuation struct {
	Location   entity.Location
	Date       time.Time
	Items      []StockLine
	TotalValue decimal.Decimal
}

// InventoryValuation valoriza cada recurso con saldo positivo al promedio ponderado.
func (c *Calculator) InventoryValuation(ctx context.Context, loc entity.Location, date time.Time) (*Valuation, error) {
	day := entity.Day(date)
	entries, err := c.ledger.List(ctx, repository.EntryFilter{Location: &loc, Range: entity.DateRange{To: day}})
	if err != nil {
		return nil, err
	}
	items, err := c.stockLines(ctx, entries)
	if err != nil {
		return nil, err
	}
	v := &Valuation{Location: loc, Date: day, Items: items, TotalValue: decimal.Zero}
	for _, it := range items {
		v.TotalValue = v.TotalValue.Add(it.Value)
	}
	return v, nil
}

// ProjectStocks lista los recursos con saldo positivo en un proyecto.
func (c *Calculator) ProjectStocks(ctx context.Context, projectID string) ([]StockLine, error) {
	if projectID == "" {
		return nil, domain.Invalid("proyecto requerido")
	}
	loc := entity.Project(projectID)
	entries, err := c.ledger.List(ctx, repository.EntryFilter{Location: &loc})
	if err != nil {
		return nil, err
	}
	return c.stockLines(ctx, entries)
}

func (c *Calculator) stockLines(ctx context.Context, entries []*entity.LedgerEntry) ([]StockLine, error) {
	byResource := make(map[string]*Totals)
	for _, e := range entries {
		t, ok := byResource[e.ResourceID]
		if !ok {
			t = &Totals{Quantity: decimal.Zero, Value: decimal.Zero}
			byResource[e.ResourceID] = t
		}
		t.add(e)
	}
	lines := make([]StockLine, 0, len(byResource))
	for id, t := range byResource {
		if !t.Quantity.IsPositive() {
			continue
		}
		avg := t.AveragePrice()
		line := StockLine{
			ResourceID:   id,
			Quantity:     t.Quantity,
			AveragePrice: avg,
			Value:        t.Quantity.Mul(avg),
		}
		if c.resources != nil {
			res, err := c.resources.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if res != nil {
				line.Name, line.SKU, line.BaseUnit = res.Name, res.SKU, res.BaseUnit
			}
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].SKU != lines[j].SKU {
			return lines[i].SKU < lines[j].SKU
		}
		return lines[i].ResourceID < lines[j].ResourceID
	})
	return lines, nil
}

// MovementLine es un asiento con el saldo acumulado después de aplicarlo.
type MovementLine struct {
	Entry   *entity.LedgerEntry
	Balance decimal.Decimal
}

// MovementHistory devuelve los asientos del rango con saldo corrido desde la apertura.
func (c *Calculator) MovementHistory(ctx context.Context, resourceID string, loc entity.Location, rng entity.DateRange) ([]MovementLine, error) {
	if err := requireResource(resourceID); err != nil {
		return nil, err
	}
	running := decimal.Zero
	if !rng.From.IsZero() {
		opening, err := c.OpeningBalance(ctx, resourceID, loc, rng.From)
		if err != nil {
			return nil, err
		}
		running = opening
	}
	entries, err := c.list(ctx, resourceID, loc, rng)
	if err != nil {
		return nil, err
	}
	out := make([]MovementLine, 0, len(entries))
	for _, e := range entries {
		running = running.Add(e.Quantity)
		out = append(out, MovementLine{Entry: e, Balance: running})
	}
	return out, nil
}

// TypeTotals resume un tipo de movimiento en un período.
type TypeTotals struct {
	Count    int
	Quantity decimal.Decimal
	Value    decimal.Decimal
}

// PeriodSummary agrupa los movimientos de una ubicación por tipo.
type PeriodSummary struct {
	Location entity.Location
	Range    entity.DateRange
	ByType   map[entity.MovementType]TypeTotals
	In       Totals
	Out      Totals
}

func (c *Calculator) PeriodSummary(ctx context.Context, loc entity.Location, rng entity.DateRange) (*PeriodSummary, error) {
	entries, err := c.ledger.List(ctx, repository.EntryFilter{Location: &loc, Range: rng})
	if err != nil {
		return nil, err
	}
	s := &PeriodSummary{
		Location: loc,
		Range:    rng,
		ByType:   make(map[entity.MovementType]TypeTotals),
		In:       Totals{Quantity: decimal.Zero, Value: decimal.Zero},
		Out:      Totals{Quantity: decimal.Zero, Value: decimal.Zero},
	}
	for _, e := range entries {
		tt, ok := s.ByType[e.Type]
		if !ok {
			tt = TypeTotals{Quantity: decimal.Zero, Value: decimal.Zero}
		}
		tt.Count++
		tt.Quantity = tt.Quantity.Add(e.Quantity)
		tt.Value = tt.Value.Add(e.TotalValue)
		s.ByType[e.Type] = tt

		if e.IsIncoming() {
			s.In.add(e)
		} else {
			s.Out.Quantity = s.Out.Quantity.Add(e.Quantity.Abs())
			s.Out.Value = s.Out.Value.Add(e.TotalValue.Abs())
		}
	}
	return s, nil
}

// DefaultLowStockThreshold es el umbral de LowStock cuando no se indica otro.
var DefaultLowStockThreshold = decimal.NewFromInt(10)

// Estados de LowStockLine.
const (
	StatusOutOfStock = "OUT_OF_STOCK"
	StatusLowStock   = "LOW_STOCK"
)

// LowStockLine es un recurso con saldo entre cero y el umbral en una ubicación.
type LowStockLine struct {
	ResourceID string
	Name       string
	SKU        string
	BaseUnit   string
	Quantity   decimal.Decimal
	Threshold  decimal.Decimal
	Status     string
}

// LowStock lista los recursos cuyo saldo en loc está en [0, threshold], incluidos los que
// nunca tuvieron movimientos. threshold nil usa DefaultLowStockThreshold.
func (c *Calculator) LowStock(ctx context.Context, loc entity.Location, threshold *decimal.Decimal) ([]LowStockLine, error) {
	limit := DefaultLowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	if limit.IsNegative() {
		return nil, domain.Invalid("el umbral no puede ser negativo")
	}
	resources, err := c.allResources(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := c.ledger.List(ctx, repository.EntryFilter{Location: &loc})
	if err != nil {
		return nil, err
	}
	stock := make(map[string]decimal.Decimal, len(resources))
	for _, e := range entries {
		stock[e.ResourceID] = stock[e.ResourceID].Add(e.Quantity)
	}

	var out []LowStockLine
	for _, r := range resources {
		qty := stock[r.ID]
		if qty.IsNegative() || qty.GreaterThan(limit) {
			continue
		}
		status := StatusLowStock
		if qty.IsZero() {
			status = StatusOutOfStock
		}
		out = append(out, LowStockLine{
			ResourceID: r.ID, Name: r.Name, SKU: r.SKU, BaseUnit: r.BaseUnit,
			Quantity: qty, Threshold: limit, Status: status,
		})
	}
	return out, nil
}

// ResourceConsumption totaliza los consumos de un recurso en el período.
type ResourceConsumption struct {
	ResourceID string
	Name       string
	SKU        string
	BaseUnit   string
	Quantity   decimal.Decimal
	Value      decimal.Decimal
	Count      int
}

// ConsumptionReport son los consumos de un proyecto agrupados por recurso.
type ConsumptionReport struct {
	ProjectID    string
	Range        entity.DateRange
	ByResource   []ResourceConsumption
	TotalValue   decimal.Decimal
	Transactions int
}

// ProjectConsumption agrupa por recurso los asientos CONSUMPTION del proyecto en el rango.
// Cantidades y valores se informan en positivo.
func (c *Calculator) ProjectConsumption(ctx context.Context, projectID string, rng entity.DateRange) (*ConsumptionReport, error) {
	if projectID == "" {
		return nil, domain.Invalid("proyecto requerido")
	}
	loc := entity.Project(projectID)
	entries, err := c.ledger.List(ctx, repository.EntryFilter{
		Location: &loc,
		Range:    rng,
		Types:    []entity.MovementType{entity.MovementConsumption},
	})
	if err != nil {
		return nil, err
	}
	rep := &ConsumptionReport{ProjectID: projectID, Range: rng, TotalValue: decimal.Zero}
	byResource := make(map[string]*ResourceConsumption)
	for _, e := range entries {
		rc, ok := byResource[e.ResourceID]
		if !ok {
			rc = &ResourceConsumption{ResourceID: e.ResourceID, Quantity: decimal.Zero, Value: decimal.Zero}
			byResource[e.ResourceID] = rc
		}
		rc.Quantity = rc.Quantity.Add(e.Quantity.Abs())
		rc.Value = rc.Value.Add(e.TotalValue.Abs())
		rc.Count++
		rep.TotalValue = rep.TotalValue.Add(e.TotalValue.Abs())
		rep.Transactions++
	}
	for _, rc := range byResource {
		if c.resources != nil {
			res, err := c.resources.GetByID(ctx, rc.ResourceID)
			if err != nil {
				return nil, err
			}
			if res != nil {
				rc.Name, rc.SKU, rc.BaseUnit = res.Name, res.SKU, res.BaseUnit
			}
		}
		rep.ByResource = append(rep.ByResource, *rc)
	}
	sort.Slice(rep.ByResource, func(i, j int) bool {
		a, b := rep.ByResource[i], rep.ByResource[j]
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.ResourceID < b.ResourceID
	})
	return rep, nil
}

// DailyReportAll arma el reporte diario de cada recurso en loc y omite los que no tienen
// saldo de apertura ni movimientos ese día.
func (c *Calculator) DailyReportAll(ctx context.Context, loc entity.Location, date time.Time) ([]*DailyReport, error) {
	resources, err := c.allResources(ctx)
	if err != nil {
		return nil, err
	}
	var out []*DailyReport
	for _, r := range resources {
		rep, err := c.DailyReport(ctx, r.ID, loc, date)
		if err != nil {
			return nil, err
		}
		if rep.Opening.IsPositive() || rep.In.IsPositive() || rep.Out.IsPositive() {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (c *Calculator) allResources(ctx context.Context) ([]*entity.Resource, error) {
	if c.resources == nil {
		return nil, errors.New("reporte: repositorio de recursos no configurado")
	}
	return c.resources.List(ctx)
}
