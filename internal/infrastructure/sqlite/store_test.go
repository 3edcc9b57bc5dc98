package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", time.Second, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Resources().Create(ctx, &entity.Resource{ID: "cement", Name: "Cemento", SKU: "CEM-01", BaseUnit: "kg"}))
	require.NoError(t, s.Projects().Create(ctx, &entity.ProjectInfo{ID: "A", Code: "PRJ-A", Name: "Puente"}))
	return s
}

func hubBatch(number string) *entity.Batch {
	return &entity.Batch{
		ResourceID:        "cement",
		Location:          entity.Hub(),
		BatchNumber:       number,
		PurchaseDate:      time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		Unit:              "kg",
		ConversionFactor:  decimal.NewFromInt(1),
		UnitPrice:         d("0.25"),
		QuantityPurchased: d("100"),
		QuantityRemaining: d("100"),
	}
}

func hubEntry(qty string, day int) *entity.LedgerEntry {
	q := d(qty)
	return &entity.LedgerEntry{
		MovementID:      "m-1",
		ResourceID:      "cement",
		Location:        entity.Hub(),
		Type:            entity.MovementAdjustment,
		Quantity:        q,
		UnitPrice:       d("0.25"),
		TotalValue:      q.Mul(d("0.25")),
		TransactionDate: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		CreatedBy:       "tester",
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// libro mayor
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_AppendListRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	later := hubEntry("10", 5)
	earlier := hubEntry("-3.125", 2)
	_, err := s.Ledger().Append(ctx, later)
	require.NoError(t, err)
	_, err = s.Ledger().Append(ctx, earlier)
	require.NoError(t, err)

	list, err := s.Ledger().List(ctx, repository.EntryFilter{ResourceID: "cement"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, earlier.ID, list[0].ID, "ordenado por fecha antes que por id")
	assert.True(t, list[0].Quantity.Equal(d("-3.125")))
	assert.True(t, list[0].Location.IsHub())

	hub := entity.Hub()
	list, err = s.Ledger().List(ctx, repository.EntryFilter{
		Location: &hub,
		Range:    entity.DateRange{From: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		Types:    []entity.MovementType{entity.MovementAdjustment, entity.MovementPurchase},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, later.ID, list[0].ID)

	got, err := s.Ledger().GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedger_RowsCannotChange(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	e := hubEntry("10", 1)
	_, err := s.Ledger().Append(ctx, e)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `UPDATE ledger_entries SET quantity = '99' WHERE id = ?`, e.ID)
	assert.True(t, errors.Is(mapError("update", err), domain.ErrImmutable))

	_, err = s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, e.ID)
	assert.True(t, errors.Is(mapError("delete", err), domain.ErrImmutable))
}

// ──────────────────────────────────────────────────────────────────────────────
// lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestBatches_CreateAndConstraints(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	b := hubBatch("B-1")
	require.NoError(t, s.Batches().Create(ctx, b))
	assert.NotZero(t, b.ID)

	err := s.Batches().Create(ctx, hubBatch("B-1"))
	assert.True(t, errors.Is(err, domain.ErrConflict), "número repetido")

	orphan := hubBatch("B-2")
	orphan.ResourceID = "steel"
	err = s.Batches().Create(ctx, orphan)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "recurso inexistente")

	err = s.Batches().UpdateRemaining(ctx, b.ID, d("100.5"))
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	require.NoError(t, s.Batches().UpdateRemaining(ctx, b.ID, d("0")))

	avail, err := s.Batches().ListAvailable(ctx, "cement", entity.Hub())
	require.NoError(t, err)
	assert.Empty(t, avail, "un lote agotado no está disponible")

	_, err = s.db.ExecContext(ctx, `UPDATE batches SET unit_price = '9' WHERE id = ?`, b.ID)
	var fieldErr *domain.ImmutableFieldError
	require.True(t, errors.As(mapError("update", err), &fieldErr))
	assert.Equal(t, "unit_price", fieldErr.Field)

	err = s.Resources().UpdateBaseUnit(ctx, "cement", "ton")
	assert.True(t, errors.Is(err, domain.ErrImmutable))
}

func TestBatches_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	newer := hubBatch("B-NEW")
	newer.PurchaseDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	older := hubBatch("B-OLD")
	require.NoError(t, s.Batches().Create(ctx, newer))
	require.NoError(t, s.Batches().Create(ctx, older))

	list, err := s.Batches().ListAvailableForUpdate(ctx, "cement", entity.Hub())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B-OLD", list[0].BatchNumber)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), list[0].PurchaseDate)
}

// ──────────────────────────────────────────────────────────────────────────────
// transacciones
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	boom := errors.New("falla a mitad")

	err := s.Run(ctx, []entity.StockKey{{ResourceID: "cement", Location: entity.Hub()}},
		func(l repository.LedgerRepository, b repository.BatchRepository) error {
			if _, err := l.Append(ctx, hubEntry("5", 1)); err != nil {
				return err
			}
			if err := b.Create(ctx, hubBatch("B-TX")); err != nil {
				return err
			}
			return boom
		})
	assert.ErrorIs(t, err, boom)

	list, err := s.Ledger().List(ctx, repository.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	n, err := s.Batches().CountByResource(ctx, "cement")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGoodsReceipts_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	g := &entity.GoodsReceipt{
		Number:       "GRN-2024-00001",
		SupplierName: "Cementos del Valle",
		Destination:  entity.Project("A"),
		ReceiptDate:  time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "tester",
		Lines: []entity.GoodsReceiptLine{
			{LineNo: 1, ResourceID: "cement", QuantityReceived: d("2"), ReceiptUnit: "ton", UnitPrice: d("200")},
		},
	}
	require.NoError(t, s.GoodsReceipts().Create(ctx, g))

	got, err := s.GoodsReceipts().GetByNumber(ctx, "GRN-2024-00001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Destination.Equal(entity.Project("A")))
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].UnitPrice.Equal(d("200")))

	n, err := s.GoodsReceipts().CountByYear(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dup := *g
	dup.ID = ""
	assert.True(t, errors.Is(s.GoodsReceipts().Create(ctx, &dup), domain.ErrConflict))
}

// ──────────────────────────────────────────────────────────────────────────────
// extremo a extremo con el servicio
// ──────────────────────────────────────────────────────────────────────────────

func TestService_OnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	svc := inventory.NewService(s, s.Resources(), s.Projects(), s.GoodsReceipts(), nil)
	actor := entity.Actor{UserID: "u-almacen"}

	_, err := svc.RecordPurchase(ctx, actor, inventory.PurchaseInput{
		ResourceID: "cement", Quantity: d("1000"), UnitPrice: d("0.25"), Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.RecordAllocation(ctx, actor, inventory.AllocationInput{
		ResourceID: "cement", ProjectID: "A", Quantity: d("200"), Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.RecordPurchase(ctx, actor, inventory.PurchaseInput{
		ResourceID: "cement", Quantity: d("400"), UnitPrice: d("0.125"), Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.RecordConsumption(ctx, actor, inventory.ConsumptionInput{
		ResourceID: "cement", Location: entity.Project("A"), Quantity: d("250"),
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	calc := balance.NewCalculator(s.Ledger(), s.Batches(), s.Resources())
	bal, err := calc.CurrentBalance(ctx, "cement", entity.Hub())
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("1200")))
	avg, err := calc.WeightedAveragePrice(ctx, "cement", entity.Hub())
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("0.208333")))

	rec, err := calc.Reconcile(ctx, "cement")
	require.NoError(t, err)
	assert.True(t, rec.Balanced, "%+v", rec.Lines)
}

func TestService_ReverseConsumptionOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	svc := inventory.NewService(s, s.Resources(), s.Projects(), s.GoodsReceipts(), nil)
	actor := entity.Actor{UserID: "u-almacen"}

	_, err := svc.RecordPurchase(ctx, actor, inventory.PurchaseInput{
		ResourceID: "cement", Quantity: d("100"), UnitPrice: d("0.25"), Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	cons, err := svc.RecordConsumption(ctx, actor, inventory.ConsumptionInput{
		ResourceID: "cement", Location: entity.Hub(), Quantity: d("30"), Reason: "merma",
	})
	require.NoError(t, err)

	draws, err := s.Batches().DrawsByMovement(ctx, cons.MovementID)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.True(t, draws[0].QuantityNative.Equal(d("30")))

	_, err = svc.ReverseConsumption(ctx, actor, inventory.ReversalInput{MovementID: cons.MovementID, Reason: "error de captura"})
	require.NoError(t, err)
	_, err = svc.ReverseConsumption(ctx, actor, inventory.ReversalInput{MovementID: cons.MovementID, Reason: "otra vez"})
	assert.True(t, errors.Is(err, domain.ErrImmutable))

	calc := balance.NewCalculator(s.Ledger(), s.Batches(), s.Resources())
	bal, err := calc.CurrentBalance(ctx, "cement", entity.Hub())
	require.NoError(t, err)
	assert.True(t, bal.Equal(d("100")))
	rec, err := calc.Reconcile(ctx, "cement")
	require.NoError(t, err)
	assert.True(t, rec.Balanced, "%+v", rec.Lines)
}
