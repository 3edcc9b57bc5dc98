package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Batch es un lote de compra en una ubicación, consumido en orden FIFO.
// QuantityPurchased, Unit, ConversionFactor, UnitPrice y PurchaseDate quedan congelados al crearse.
type Batch struct {
	ID                int64
	ResourceID        string
	Location          Location
	BatchNumber       string
	PurchaseDate      time.Time
	Unit              string
	ConversionFactor  decimal.Decimal // unidades base por unidad del lote
	UnitPrice         decimal.Decimal // por unidad del lote
	QuantityPurchased decimal.Decimal // en unidades del lote
	QuantityRemaining decimal.Decimal // en unidades del lote
	Supplier          string
	Notes             string
	CreatedAt         time.Time
}

// RemainingBase es el saldo del lote expresado en unidades base.
func (b *Batch) RemainingBase() decimal.Decimal {
	return b.QuantityRemaining.Mul(b.ConversionFactor)
}

// IsUnused reporta si el lote no ha sido tocado desde su creación.
func (b *Batch) IsUnused() bool {
	return b.QuantityRemaining.Equal(b.QuantityPurchased)
}

// Validate comprueba las invariantes de creación de un lote.
func (b *Batch) Validate() error {
	switch {
	case strings.TrimSpace(b.ResourceID) == "":
		return errors.New("lote sin recurso")
	case strings.TrimSpace(b.BatchNumber) == "":
		return errors.New("lote sin número")
	case strings.TrimSpace(b.Unit) == "":
		return errors.New("lote sin unidad")
	case b.PurchaseDate.IsZero():
		return errors.New("lote sin fecha de compra")
	case !b.ConversionFactor.IsPositive():
		return errors.New("factor de conversión debe ser positivo")
	case b.UnitPrice.IsNegative():
		return errors.New("precio unitario negativo")
	case !b.QuantityPurchased.IsPositive():
		return errors.New("cantidad comprada debe ser positiva")
	case b.QuantityRemaining.IsNegative() || b.QuantityRemaining.GreaterThan(b.QuantityPurchased):
		return errors.New("cantidad restante fuera de rango")
	}
	return b.Location.Validate()
}

// Clone devuelve una copia independiente.
func (b *Batch) Clone() *Batch {
	c := *b
	return &c
}

// BatchPatch describe una edición de lote; los campos nil no se tocan.
type BatchPatch struct {
	Supplier *string
	Notes    *string

	QuantityPurchased *decimal.Decimal
	Unit              *string
	ConversionFactor  *decimal.Decimal
	UnitPrice         *decimal.Decimal
	PurchaseDate      *time.Time
}

// FrozenField devuelve el primer campo congelado que el parche intenta cambiar.
func (p BatchPatch) FrozenField(b *Batch) (string, bool) {
	switch {
	case p.QuantityPurchased != nil && !p.QuantityPurchased.Equal(b.QuantityPurchased):
		return "quantity_purchased", true
	case p.Unit != nil && *p.Unit != b.Unit:
		return "unit", true
	case p.ConversionFactor != nil && !p.ConversionFactor.Equal(b.ConversionFactor):
		return "conversion_factor", true
	case p.UnitPrice != nil && !p.UnitPrice.Equal(b.UnitPrice):
		return "unit_price", true
	case p.PurchaseDate != nil && !Day(*p.PurchaseDate).Equal(Day(b.PurchaseDate)):
		return "purchase_date", true
	}
	return "", false
}

// BatchDraw es lo que un consumo tomó de un lote. ReversedBy es el movimiento que lo
// revirtió; vacío mientras siga vigente.
type BatchDraw struct {
	MovementID     string
	BatchID        int64
	QuantityNative decimal.Decimal
	QuantityBase   decimal.Decimal
	UnitPrice      decimal.Decimal
	ReversedBy     string
}
