package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoodsReceipt es una nota de recepción (GRN) de proveedor.
// Si Destination es un proyecto, cada línea se asigna directamente a él.
type GoodsReceipt struct {
	ID                string
	Number            string
	SupplierName      string
	Destination       Location
	DeliveryReference string
	ReceiptDate       time.Time
	Notes             string
	CreatedBy         string
	CreatedAt         time.Time
	Lines             []GoodsReceiptLine
}

// GoodsReceiptLine expresa cantidad y precio en la unidad de recepción.
type GoodsReceiptLine struct {
	LineNo           int
	ResourceID       string
	QuantityReceived decimal.Decimal
	ReceiptUnit      string
	UnitPrice        decimal.Decimal
}

// Actor identifica a quien ejecuta una operación.
type Actor struct {
	UserID string
}
