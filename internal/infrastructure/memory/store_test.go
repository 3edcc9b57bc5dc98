package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newBatch(number string) *entity.Batch {
	return &entity.Batch{
		ResourceID:        "r1",
		BatchNumber:       number,
		PurchaseDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Unit:              "kg",
		ConversionFactor:  decimal.NewFromInt(1),
		UnitPrice:         decimal.NewFromInt(2),
		QuantityPurchased: decimal.NewFromInt(10),
		QuantityRemaining: decimal.NewFromInt(10),
	}
}

func entry(qty int64) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		MovementID:      "m",
		ResourceID:      "r1",
		Type:            entity.MovementPurchase,
		Quantity:        decimal.NewFromInt(qty),
		UnitPrice:       decimal.NewFromInt(2),
		TransactionDate: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		CreatedBy:       "u1",
	}
}

func TestRun_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	existing := newBatch("B-0")
	require.NoError(t, s.Batches().Create(ctx, existing))

	err := s.Run(ctx, []entity.StockKey{{ResourceID: "r1"}}, func(l repository.LedgerRepository, b repository.BatchRepository) error {
		_, err := l.Append(ctx, entry(10))
		require.NoError(t, err)
		require.NoError(t, b.Create(ctx, newBatch("B-1")))
		require.NoError(t, b.UpdateRemaining(ctx, existing.ID, decimal.NewFromInt(3)))

		// dentro de la unidad de trabajo se ven las escrituras propias
		list, _ := l.List(ctx, repository.EntryFilter{ResourceID: "r1"})
		assert.Len(t, list, 1)
		got, _ := b.GetByID(ctx, existing.ID)
		assert.True(t, got.QuantityRemaining.Equal(decimal.NewFromInt(3)))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	list, err := s.Ledger().List(ctx, repository.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	batches, _ := s.Batches().ListByResource(ctx, "r1")
	require.Len(t, batches, 1)
	assert.True(t, batches[0].QuantityRemaining.Equal(decimal.NewFromInt(10)))
}

func TestRun_CommitAppliesWrites(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	existing := newBatch("B-0")
	require.NoError(t, s.Batches().Create(ctx, existing))

	err := s.Run(ctx, []entity.StockKey{{ResourceID: "r1"}}, func(l repository.LedgerRepository, b repository.BatchRepository) error {
		if _, err := l.Append(ctx, entry(-4)); err != nil {
			return err
		}
		return b.UpdateRemaining(ctx, existing.ID, decimal.NewFromInt(6))
	})
	require.NoError(t, err)

	got, _ := s.Batches().GetByID(ctx, existing.ID)
	assert.True(t, got.QuantityRemaining.Equal(decimal.NewFromInt(6)))
	list, _ := s.Ledger().List(ctx, repository.EntryFilter{ResourceID: "r1"})
	require.Len(t, list, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), list[0].TransactionDate)
}

func TestLedger_OrderedByDateThenSequence(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	late := entry(1)
	late.TransactionDate = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err := s.Ledger().Append(ctx, late)
	require.NoError(t, err)
	a, _ := s.Ledger().Append(ctx, entry(2))
	b, _ := s.Ledger().Append(ctx, entry(3))

	list, err := s.Ledger().List(ctx, repository.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{a, b, late.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Less(t, a, b)
}

func TestBatches_DuplicateNumberConflict(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	require.NoError(t, s.Batches().Create(ctx, newBatch("B-1")))
	err := s.Batches().Create(ctx, newBatch("B-1"))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBatches_RemainingOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	b := newBatch("B-1")
	require.NoError(t, s.Batches().Create(ctx, b))
	err := s.Batches().UpdateRemaining(ctx, b.ID, decimal.NewFromInt(11))
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	err = s.Batches().UpdateRemaining(ctx, b.ID, decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	err = s.Batches().UpdateRemaining(ctx, 999, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResources_BaseUnitFrozenOnceBatchesExist(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	res := &entity.Resource{ID: "r1", Name: "Cemento", SKU: "CEM", BaseUnit: "kg"}
	require.NoError(t, s.Resources().Create(ctx, res))
	require.NoError(t, s.Resources().UpdateBaseUnit(ctx, "r1", "g"))

	require.NoError(t, s.Batches().Create(ctx, newBatch("B-1")))
	err := s.Resources().UpdateBaseUnit(ctx, "r1", "kg")
	assert.True(t, errors.Is(err, domain.ErrImmutable))
	assert.True(t, errors.Is(s.Resources().UpdateBaseUnit(ctx, "nope", "kg"), domain.ErrNotFound))

	dup := &entity.Resource{Name: "Otro", SKU: "CEM", BaseUnit: "kg"}
	assert.True(t, errors.Is(s.Resources().Create(ctx, dup), domain.ErrConflict))
}

func TestRun_LockTimeout(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(locking.NewLocal(30 * time.Millisecond))
	key := []entity.StockKey{{ResourceID: "r1", Location: entity.Hub()}}

	inside := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, key, func(repository.LedgerRepository, repository.BatchRepository) error {
			close(inside)
			<-done
			return nil
		})
	}()
	<-inside
	err := s.Run(ctx, key, func(repository.LedgerRepository, repository.BatchRepository) error { return nil })
	close(done)
	assert.True(t, domain.IsRetryable(err))
}

func TestGoodsReceipts_CountByYear(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	for _, n := range []string{"GRN-2024-00001", "GRN-2024-00002", "GRN-2025-00001"} {
		require.NoError(t, s.GoodsReceipts().Create(ctx, &entity.GoodsReceipt{Number: n, SupplierName: "ACME"}))
	}
	n, err := s.GoodsReceipts().CountByYear(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GoodsReceipts().GetByNumber(ctx, "GRN-2025-00001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
}

func TestGetByID_ConcurrentWithCommit(t *testing.T) {
	// con -race: la copia del lote se hace bajo el mismo candado que usa commit
	ctx := context.Background()
	s := memory.NewStore(nil)
	b := newBatch("B-0")
	require.NoError(t, s.Batches().Create(ctx, b))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Batches().UpdateRemaining(ctx, b.ID, decimal.NewFromInt(int64(i%10)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			got, err := s.Batches().GetByID(ctx, b.ID)
			if assert.NoError(t, err) && assert.NotNil(t, got) {
				assert.True(t, got.QuantityRemaining.LessThanOrEqual(got.QuantityPurchased))
			}
		}
	}()
	wg.Wait()
}

func TestDraws_RecordAndReverse(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	draws := []entity.BatchDraw{
		{MovementID: "m1", BatchID: 1, QuantityNative: decimal.NewFromInt(4), QuantityBase: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(2)},
		{MovementID: "m1", BatchID: 2, QuantityNative: decimal.NewFromInt(1), QuantityBase: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(3)},
	}

	// sin confirmar no queda nada
	err := s.Run(ctx, nil, func(_ repository.LedgerRepository, b repository.BatchRepository) error {
		require.NoError(t, b.RecordDraws(ctx, draws))
		got, _ := b.DrawsByMovement(ctx, "m1")
		assert.Len(t, got, 2)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	got, err := s.Batches().DrawsByMovement(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Batches().RecordDraws(ctx, draws))
	got, err = s.Batches().DrawsByMovement(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].BatchID)
	assert.Empty(t, got[0].ReversedBy)

	require.NoError(t, s.Batches().MarkDrawsReversed(ctx, "m1", "r1"))
	got, _ = s.Batches().DrawsByMovement(ctx, "m1")
	assert.Equal(t, "r1", got[1].ReversedBy)

	err = s.Batches().MarkDrawsReversed(ctx, "m1", "r2")
	assert.True(t, errors.Is(err, domain.ErrImmutable))
	err = s.Batches().MarkDrawsReversed(ctx, "m9", "r2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
