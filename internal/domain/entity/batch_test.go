package entity_test

import (
	"testing"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validBatch() *entity.Batch {
	return &entity.Batch{
		ResourceID:        "r1",
		BatchNumber:       "B-1",
		PurchaseDate:      day(2024, 1, 1),
		Unit:              "kg",
		ConversionFactor:  decimal.NewFromInt(1),
		UnitPrice:         decimal.RequireFromString("2.5"),
		QuantityPurchased: decimal.NewFromInt(100),
		QuantityRemaining: decimal.NewFromInt(100),
	}
}

func TestBatch_Validate(t *testing.T) {
	assert.NoError(t, validBatch().Validate())

	b := validBatch()
	b.ConversionFactor = decimal.Zero
	assert.Error(t, b.Validate())

	b = validBatch()
	b.QuantityRemaining = decimal.NewFromInt(101)
	assert.Error(t, b.Validate())

	b = validBatch()
	b.Location = entity.Project("")
	assert.Error(t, b.Validate())
}

func TestBatch_RemainingBase(t *testing.T) {
	b := validBatch()
	b.Unit = "g"
	b.ConversionFactor = decimal.RequireFromString("0.001")
	b.QuantityRemaining = decimal.NewFromInt(500)
	assert.True(t, b.RemainingBase().Equal(decimal.RequireFromString("0.5")))
	assert.False(t, b.IsUnused())
}

func TestBatchPatch_FrozenField(t *testing.T) {
	b := validBatch()
	notes := "ok"
	field, frozen := entity.BatchPatch{Notes: &notes}.FrozenField(b)
	assert.False(t, frozen)
	assert.Empty(t, field)

	same := decimal.NewFromInt(100)
	_, frozen = entity.BatchPatch{QuantityPurchased: &same}.FrozenField(b)
	assert.False(t, frozen, "mismo valor no cuenta como cambio")

	other := decimal.NewFromInt(90)
	field, frozen = entity.BatchPatch{QuantityPurchased: &other}.FrozenField(b)
	assert.True(t, frozen)
	assert.Equal(t, "quantity_purchased", field)

	price := decimal.NewFromInt(3)
	field, _ = entity.BatchPatch{UnitPrice: &price}.FrozenField(b)
	assert.Equal(t, "unit_price", field)
}

func TestMovementType_Valid(t *testing.T) {
	assert.True(t, entity.MovementDirectConsumption.Valid())
	assert.False(t, entity.MovementType("SALE").Valid())
}
