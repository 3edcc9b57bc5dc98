package dto

import (
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// GoodsReceiptRequest body para POST /api/goods-receipts. project_id vacío = recepción en el Hub.
type GoodsReceiptRequest struct {
	Number            string                    `json:"number,omitempty"`
	SupplierName      string                    `json:"supplier_name"`
	ProjectID         string                    `json:"project_id,omitempty"`
	DeliveryReference string                    `json:"delivery_reference,omitempty"`
	ReceiptDate       string                    `json:"receipt_date,omitempty"`
	Notes             string                    `json:"notes,omitempty"`
	Lines             []GoodsReceiptLineRequest `json:"lines"`
}

type GoodsReceiptLineRequest struct {
	ResourceID       string          `json:"resource_id"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	ReceiptUnit      string          `json:"receipt_unit,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

func (r GoodsReceiptRequest) ToInput() (inventory.GoodsReceiptInput, error) {
	date, err := ParseDate(r.ReceiptDate)
	if err != nil {
		return inventory.GoodsReceiptInput{}, err
	}
	in := inventory.GoodsReceiptInput{
		Number:            r.Number,
		SupplierName:      r.SupplierName,
		ProjectID:         r.ProjectID,
		DeliveryReference: r.DeliveryReference,
		ReceiptDate:       date,
		Notes:             r.Notes,
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, inventory.GoodsReceiptLineInput{
			ResourceID:       l.ResourceID,
			QuantityReceived: l.QuantityReceived,
			ReceiptUnit:      l.ReceiptUnit,
			UnitPrice:        l.UnitPrice,
		})
	}
	return in, nil
}

// GoodsReceiptDTO nota de recepción en respuestas.
type GoodsReceiptDTO struct {
	ID                string                `json:"id"`
	Number            string                `json:"number"`
	SupplierName      string                `json:"supplier_name"`
	Destination       string                `json:"destination"`
	DeliveryReference string                `json:"delivery_reference,omitempty"`
	ReceiptDate       string                `json:"receipt_date"`
	Notes             string                `json:"notes,omitempty"`
	CreatedBy         string                `json:"created_by"`
	Lines             []GoodsReceiptLineDTO `json:"lines"`
}

type GoodsReceiptLineDTO struct {
	LineNo           int             `json:"line_no"`
	ResourceID       string          `json:"resource_id"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	ReceiptUnit      string          `json:"receipt_unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

func FromGoodsReceipt(g *entity.GoodsReceipt) GoodsReceiptDTO {
	out := GoodsReceiptDTO{
		ID:                g.ID,
		Number:            g.Number,
		SupplierName:      g.SupplierName,
		Destination:       g.Destination.String(),
		DeliveryReference: g.DeliveryReference,
		ReceiptDate:       formatDate(g.ReceiptDate),
		Notes:             g.Notes,
		CreatedBy:         g.CreatedBy,
		Lines:             make([]GoodsReceiptLineDTO, 0, len(g.Lines)),
	}
	for _, l := range g.Lines {
		out.Lines = append(out.Lines, GoodsReceiptLineDTO{
			LineNo:           l.LineNo,
			ResourceID:       l.ResourceID,
			QuantityReceived: l.QuantityReceived,
			ReceiptUnit:      l.ReceiptUnit,
			UnitPrice:        l.UnitPrice,
		})
	}
	return out
}

// ProcessReportDTO resultado de procesar notas pendientes.
type ProcessReportDTO struct {
	Processed []string          `json:"processed"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func FromProcessReport(r *inventory.ProcessReport) ProcessReportDTO {
	out := ProcessReportDTO{Processed: r.Processed, Skipped: r.Skipped}
	if len(r.Failed) > 0 {
		out.Failed = make(map[string]string, len(r.Failed))
		for number, err := range r.Failed {
			out.Failed[number] = err.Error()
		}
	}
	return out
}
