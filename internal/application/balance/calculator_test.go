package balance_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	store *memory.Store
	led   *ledger.Ledger
	calc  *balance.Calculator
}

func newFixture() *fixture {
	s := memory.NewStore(nil)
	return &fixture{
		store: s,
		led:   ledger.New(s.Ledger()),
		calc:  balance.NewCalculator(s.Ledger(), s.Batches(), s.Resources()),
	}
}

func (f *fixture) post(t *testing.T, typ entity.MovementType, loc entity.Location, date time.Time, qty, price string) {
	t.Helper()
	_, err := f.led.Append(context.Background(), &entity.LedgerEntry{
		MovementID:      "m",
		ResourceID:      "cement",
		Location:        loc,
		Type:            typ,
		Quantity:        d(qty),
		UnitPrice:       d(price),
		TransactionDate: date,
		CreatedBy:       "u1",
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// saldos y reporte diario
// ──────────────────────────────────────────────────────────────────────────────

func TestDailyReport_OpeningInOutClosing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := entity.Hub()
	f.post(t, entity.MovementPurchase, hub, day(1), "1000", "0.25")
	f.post(t, entity.MovementAllocationOut, hub, day(2), "-200", "0.25")
	f.post(t, entity.MovementPurchase, hub, day(2), "50", "0.30")
	f.post(t, entity.MovementDirectConsumption, hub, day(3), "-10", "0.25")

	r, err := f.calc.DailyReport(ctx, "cement", hub, day(2).Add(14*time.Hour))
	require.NoError(t, err)
	assert.True(t, r.Opening.Equal(d("1000")))
	assert.True(t, r.In.Equal(d("50")))
	assert.True(t, r.Out.Equal(d("200")))
	assert.True(t, r.Closing.Equal(d("850")))
	assert.Len(t, r.Entries, 2)

	opening, _ := f.calc.OpeningBalance(ctx, "cement", hub, day(2))
	closing, _ := f.calc.ClosingBalance(ctx, "cement", hub, day(2))
	in, _ := f.calc.TotalIn(ctx, "cement", hub, day(2))
	out, _ := f.calc.TotalOut(ctx, "cement", hub, day(2))
	assert.True(t, closing.Equal(opening.Add(in).Sub(out)))

	current, _ := f.calc.CurrentBalance(ctx, "cement", hub)
	assert.True(t, current.Equal(d("840")))
}

func TestBalanceIdentity_RandomLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	rng := rand.New(rand.NewSource(42))
	locs := []entity.Location{entity.Hub(), entity.Project("a"), entity.Project("b")}
	for i := 0; i < 200; i++ {
		loc := locs[rng.Intn(len(locs))]
		qty := decimal.NewFromInt(int64(rng.Intn(200) - 100))
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		typ := entity.MovementAdjustment
		f.post(t, typ, loc, day(1+rng.Intn(20)), qty.String(), "1.5")
	}
	for _, loc := range locs {
		for n := 1; n <= 21; n++ {
			r, err := f.calc.DailyReport(ctx, "cement", loc, day(n))
			require.NoError(t, err)
			closing, err := f.calc.ClosingBalance(ctx, "cement", loc, day(n))
			require.NoError(t, err)
			assert.True(t, r.Closing.Equal(closing), "%s día %d", loc, n)
			assert.True(t, r.Closing.Equal(r.Opening.Add(r.In).Sub(r.Out)))
		}
	}
}

func TestWeightedAveragePrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := entity.Hub()

	avg, err := f.calc.WeightedAveragePrice(ctx, "cement", hub)
	require.NoError(t, err)
	assert.True(t, avg.IsZero(), "sin asientos el precio es cero")

	f.post(t, entity.MovementPurchase, hub, day(1), "1000", "0.25")
	f.post(t, entity.MovementAllocationOut, hub, day(2), "-200", "0.25")
	f.post(t, entity.MovementPurchase, hub, day(3), "400", "0.125")

	avg, err = f.calc.WeightedAveragePrice(ctx, "cement", hub)
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("0.208333")), "avg=%s", avg)

	f.post(t, entity.MovementDirectConsumption, hub, day(4), "-1200", "0.208333")
	avg, _ = f.calc.WeightedAveragePrice(ctx, "cement", hub)
	assert.True(t, avg.IsZero())
}

func TestCalculator_RequiresResource(t *testing.T) {
	_, err := newFixture().calc.CurrentBalance(context.Background(), "", entity.Hub())
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// reportes
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryValuation_OnlyPositive(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.store.Resources().Create(ctx, &entity.Resource{ID: "cement", Name: "Cemento", SKU: "CEM", BaseUnit: "kg"}))
	p := entity.Project("p1")
	f.post(t, entity.MovementAllocationIn, p, day(1), "100", "2")
	_, err := f.led.Append(ctx, &entity.LedgerEntry{
		MovementID: "x", ResourceID: "sand", Location: p, Type: entity.MovementAllocationIn,
		Quantity: d("5"), UnitPrice: d("1"), TransactionDate: day(1), CreatedBy: "u1",
	})
	require.NoError(t, err)
	_, err = f.led.Append(ctx, &entity.LedgerEntry{
		MovementID: "y", ResourceID: "sand", Location: p, Type: entity.MovementConsumption,
		Quantity: d("-5"), UnitPrice: d("1"), TransactionDate: day(2), CreatedBy: "u1",
	})
	require.NoError(t, err)

	v, err := f.calc.InventoryValuation(ctx, p, day(1))
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.True(t, v.TotalValue.Equal(d("205")))

	v, err = f.calc.InventoryValuation(ctx, p, day(2))
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "CEM", v.Items[0].SKU)
	assert.True(t, v.Items[0].Value.Equal(d("200")))

	stocks, err := f.calc.ProjectStocks(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "Cemento", stocks[0].Name)
}

func TestMovementHistory_RunningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := entity.Hub()
	f.post(t, entity.MovementPurchase, hub, day(1), "10", "1")
	f.post(t, entity.MovementPurchase, hub, day(2), "5", "1")
	f.post(t, entity.MovementDirectConsumption, hub, day(3), "-3", "1")

	lines, err := f.calc.MovementHistory(ctx, "cement", hub, entity.DateRange{From: day(2), To: day(3)})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Balance.Equal(d("15")))
	assert.True(t, lines[1].Balance.Equal(d("12")))
}

func TestPeriodSummary_ByType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := entity.Hub()
	f.post(t, entity.MovementPurchase, hub, day(1), "10", "2")
	f.post(t, entity.MovementPurchase, hub, day(2), "5", "2")
	f.post(t, entity.MovementAllocationOut, hub, day(2), "-4", "2")
	f.post(t, entity.MovementPurchase, hub, day(9), "100", "2")

	s, err := f.calc.PeriodSummary(ctx, hub, entity.DateRange{From: day(1), To: day(5)})
	require.NoError(t, err)
	assert.Equal(t, 2, s.ByType[entity.MovementPurchase].Count)
	assert.True(t, s.ByType[entity.MovementPurchase].Quantity.Equal(d("15")))
	assert.True(t, s.ByType[entity.MovementAllocationOut].Value.Equal(d("-8")))
	assert.True(t, s.In.Quantity.Equal(d("15")))
	assert.True(t, s.Out.Value.Equal(d("8")))
}

// postAs agrega un asiento para un recurso cualquiera.
func (f *fixture) postAs(t *testing.T, resourceID string, typ entity.MovementType, loc entity.Location, date time.Time, qty, price string) {
	t.Helper()
	_, err := f.led.Append(context.Background(), &entity.LedgerEntry{
		MovementID: "m", ResourceID: resourceID, Location: loc, Type: typ,
		Quantity: d(qty), UnitPrice: d(price), TransactionDate: date, CreatedBy: "u1",
	})
	require.NoError(t, err)
}

func (f *fixture) catalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Resources().Create(ctx, &entity.Resource{ID: "cement", Name: "Cemento", SKU: "CEM", BaseUnit: "kg"}))
	require.NoError(t, f.store.Resources().Create(ctx, &entity.Resource{ID: "sand", Name: "Arena", SKU: "SND", BaseUnit: "m3"}))
	require.NoError(t, f.store.Resources().Create(ctx, &entity.Resource{ID: "steel", Name: "Acero", SKU: "STL", BaseUnit: "kg"}))
}

func TestLowStock_ThresholdAndStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog(t)
	hub := entity.Hub()
	f.postAs(t, "cement", entity.MovementPurchase, hub, day(1), "100", "2")
	f.postAs(t, "sand", entity.MovementPurchase, hub, day(1), "8", "1")

	lines, err := f.calc.LowStock(ctx, hub, nil)
	require.NoError(t, err)
	require.Len(t, lines, 2, "umbral por defecto 10")
	assert.Equal(t, "SND", lines[0].SKU)
	assert.Equal(t, balance.StatusLowStock, lines[0].Status)
	assert.True(t, lines[0].Quantity.Equal(d("8")))
	assert.True(t, lines[0].Threshold.Equal(d("10")))
	assert.Equal(t, "STL", lines[1].SKU)
	assert.Equal(t, balance.StatusOutOfStock, lines[1].Status, "sin movimientos cuenta como agotado")

	limit := d("100")
	lines, err = f.calc.LowStock(ctx, hub, &limit)
	require.NoError(t, err)
	assert.Len(t, lines, 3, "el umbral es inclusivo")

	negative := d("-1")
	_, err = f.calc.LowStock(ctx, hub, &negative)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	// en un proyecto sin movimientos todo está agotado
	lines, err = f.calc.LowStock(ctx, entity.Project("p1"), nil)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestProjectConsumption_GroupsByResource(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog(t)
	p1, p2 := entity.Project("p1"), entity.Project("p2")
	f.postAs(t, "cement", entity.MovementAllocationIn, p1, day(1), "100", "2")
	f.postAs(t, "cement", entity.MovementConsumption, p1, day(2), "-30", "2")
	f.postAs(t, "cement", entity.MovementConsumption, p1, day(3), "-10", "2")
	f.postAs(t, "cement", entity.MovementConsumption, p1, day(5), "-10", "2")
	f.postAs(t, "sand", entity.MovementAllocationIn, p1, day(1), "10", "1")
	f.postAs(t, "sand", entity.MovementConsumption, p1, day(2), "-4", "1")
	f.postAs(t, "sand", entity.MovementTransferOut, p1, day(2), "-1", "1")
	f.postAs(t, "cement", entity.MovementAllocationIn, p2, day(1), "5", "2")
	f.postAs(t, "cement", entity.MovementConsumption, p2, day(2), "-5", "2")

	rep, err := f.calc.ProjectConsumption(ctx, "p1", entity.DateRange{From: day(1), To: day(3)})
	require.NoError(t, err)
	require.Len(t, rep.ByResource, 2)
	cement, sand := rep.ByResource[0], rep.ByResource[1]
	assert.Equal(t, "CEM", cement.SKU)
	assert.True(t, cement.Quantity.Equal(d("40")))
	assert.True(t, cement.Value.Equal(d("80")))
	assert.Equal(t, 2, cement.Count)
	assert.Equal(t, "Arena", sand.Name)
	assert.True(t, sand.Quantity.Equal(d("4")), "las transferencias no son consumo")
	assert.True(t, rep.TotalValue.Equal(d("84")))
	assert.Equal(t, 3, rep.Transactions)

	_, err = f.calc.ProjectConsumption(ctx, "", entity.DateRange{})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestDailyReportAll_SkipsIdleResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.catalog(t)
	hub := entity.Hub()
	f.postAs(t, "cement", entity.MovementPurchase, hub, day(1), "100", "2")
	f.postAs(t, "sand", entity.MovementPurchase, hub, day(3), "5", "1")
	f.postAs(t, "sand", entity.MovementDirectConsumption, hub, day(3), "-5", "1")

	reports, err := f.calc.DailyReportAll(ctx, hub, day(2))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "cement", reports[0].ResourceID)
	assert.True(t, reports[0].Opening.Equal(d("100")))

	reports, err = f.calc.DailyReportAll(ctx, hub, day(3))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "sand", reports[1].ResourceID)
	assert.True(t, reports[1].Closing.IsZero())
	for _, r := range reports {
		assert.True(t, r.Closing.Equal(r.Opening.Add(r.In).Sub(r.Out)))
	}
}

func TestReconcile_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hub := entity.Hub()
	f.post(t, entity.MovementPurchase, hub, day(1), "1", "2")
	require.NoError(t, f.store.Batches().Create(ctx, &entity.Batch{
		ResourceID: "cement", BatchNumber: "B1", PurchaseDate: day(1), Unit: "g",
		ConversionFactor: d("0.001"), UnitPrice: d("0.002"),
		QuantityPurchased: d("1000"), QuantityRemaining: d("1000"),
	}))

	r, err := f.calc.Reconcile(ctx, "cement")
	require.NoError(t, err)
	assert.True(t, r.Balanced)

	f.post(t, entity.MovementAdjustment, hub, day(2), "0.5", "2")
	r, err = f.calc.Reconcile(ctx, "cement")
	require.NoError(t, err)
	assert.False(t, r.Balanced)
	require.Len(t, r.Lines, 1)
	assert.True(t, r.Lines[0].Difference.Equal(d("0.5")))
}
