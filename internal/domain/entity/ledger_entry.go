package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType clasifica un asiento del libro mayor.
type MovementType string

const (
	MovementPurchase          MovementType = "PURCHASE"
	MovementGoodsReceipt      MovementType = "GOODS_RECEIPT"
	MovementAllocationOut     MovementType = "ALLOCATION_OUT"
	MovementAllocationIn      MovementType = "ALLOCATION_IN"
	MovementTransferOut       MovementType = "TRANSFER_OUT"
	MovementTransferIn        MovementType = "TRANSFER_IN"
	MovementConsumption       MovementType = "CONSUMPTION"
	MovementDirectConsumption MovementType = "DIRECT_CONSUMPTION"
	MovementAdjustment        MovementType = "ADJUSTMENT"
)

// MovementTypes lista los tipos en orden estable (para reportes).
var MovementTypes = []MovementType{
	MovementPurchase,
	MovementGoodsReceipt,
	MovementAllocationOut,
	MovementAllocationIn,
	MovementTransferOut,
	MovementTransferIn,
	MovementConsumption,
	MovementDirectConsumption,
	MovementAdjustment,
}

func (t MovementType) Valid() bool {
	for _, m := range MovementTypes {
		if m == t {
			return true
		}
	}
	return false
}

// LedgerEntry es un asiento inmutable. Quantity está en unidades base y su signo indica la dirección.
// ID es una secuencia monótona y desempata asientos de la misma fecha.
type LedgerEntry struct {
	ID                int64
	MovementID        string
	ResourceID        string
	Location          Location
	Type              MovementType
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	TotalValue        decimal.Decimal
	TransactionDate   time.Time
	Notes             string
	Supplier          string
	InvoiceNumber     string
	GoodsReceiptID    string
	ConsumptionReason string
	CreatedBy         string
	CreatedAt         time.Time
}

func (e *LedgerEntry) IsIncoming() bool { return e.Quantity.IsPositive() }

func (e *LedgerEntry) IsOutgoing() bool { return e.Quantity.IsNegative() }

func (e *LedgerEntry) Clone() *LedgerEntry {
	c := *e
	return &c
}

// Day normaliza una fecha de negocio a medianoche UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange es un intervalo de días inclusivo; un extremo cero queda abierto.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	if !r.From.IsZero() && d.Before(Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(Day(r.To)) {
		return false
	}
	return true
}
