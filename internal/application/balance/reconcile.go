package balance

import (
	"context"
	"errors"
	"sort"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Tolerance absorbe el redondeo de convertir entre unidad de lote y unidad base.
var Tolerance = decimal.New(1, -6)

// ReconcileLine compara el saldo del libro mayor con el de los lotes en una ubicación.
type ReconcileLine struct {
	Location       entity.Location
	LedgerQuantity decimal.Decimal
	BatchQuantity  decimal.Decimal
	Difference     decimal.Decimal
}

type Reconciliation struct {
	ResourceID string
	Lines      []ReconcileLine
	Balanced   bool
}

// Reconcile verifica la conservación: Σ saldos por ubicación == Σ restante × factor de los lotes.
func (c *Calculator) Reconcile(ctx context.Context, resourceID string) (*Reconciliation, error) {
	if err := requireResource(resourceID); err != nil {
		return nil, err
	}
	if c.batches == nil {
		return nil, errors.New("reconcile: repositorio de lotes no configurado")
	}
	entries, err := c.ledger.List(ctx, repository.EntryFilter{ResourceID: resourceID})
	if err != nil {
		return nil, err
	}
	batches, err := c.batches.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	lines := make(map[string]*ReconcileLine)
	line := func(loc entity.Location) *ReconcileLine {
		l, ok := lines[loc.String()]
		if !ok {
			l = &ReconcileLine{Location: loc, LedgerQuantity: decimal.Zero, BatchQuantity: decimal.Zero}
			lines[loc.String()] = l
		}
		return l
	}
	for _, e := range entries {
		l := line(e.Location)
		l.LedgerQuantity = l.LedgerQuantity.Add(e.Quantity)
	}
	for _, b := range batches {
		l := line(b.Location)
		l.BatchQuantity = l.BatchQuantity.Add(b.RemainingBase())
	}

	r := &Reconciliation{ResourceID: resourceID, Balanced: true}
	for _, l := range lines {
		l.Difference = l.LedgerQuantity.Sub(l.BatchQuantity)
		if l.Difference.Abs().GreaterThan(Tolerance) {
			r.Balanced = false
		}
		r.Lines = append(r.Lines, *l)
	}
	sort.Slice(r.Lines, func(i, j int) bool { return r.Lines[i].Location.String() < r.Lines[j].Location.String() })
	return r, nil
}
