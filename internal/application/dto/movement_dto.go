package dto

import (
	"github.com/jhoicas/Inventario-ledger/internal/application/fifo"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PurchaseRequest body para POST /api/movements/purchases.
type PurchaseRequest struct {
	ResourceID    string          `json:"resource_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Date          string          `json:"date,omitempty"`
	Supplier      string          `json:"supplier,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	BatchNumber   string          `json:"batch_number,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

func (r PurchaseRequest) ToInput() (inventory.PurchaseInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.PurchaseInput{}, err
	}
	return inventory.PurchaseInput{
		ResourceID:    r.ResourceID,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		Date:          date,
		Supplier:      r.Supplier,
		InvoiceNumber: r.InvoiceNumber,
		BatchNumber:   r.BatchNumber,
		Notes:         r.Notes,
	}, nil
}

// AllocationRequest body para POST /api/movements/allocations (y returns, con el proyecto de origen).
type AllocationRequest struct {
	ResourceID string          `json:"resource_id"`
	ProjectID  string          `json:"project_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Date       string          `json:"date,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

func (r AllocationRequest) ToInput() (inventory.AllocationInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.AllocationInput{}, err
	}
	if _, err := projectLocation(r.ProjectID); err != nil {
		return inventory.AllocationInput{}, err
	}
	return inventory.AllocationInput{
		ResourceID: r.ResourceID, ProjectID: r.ProjectID, Quantity: r.Quantity, Date: date, Notes: r.Notes,
	}, nil
}

func (r AllocationRequest) ToReturnInput() (inventory.ReturnInput, error) {
	in, err := r.ToInput()
	if err != nil {
		return inventory.ReturnInput{}, err
	}
	return inventory.ReturnInput{
		ResourceID: in.ResourceID, ProjectID: in.ProjectID, Quantity: in.Quantity, Date: in.Date, Notes: in.Notes,
	}, nil
}

// TransferRequest body para POST /api/movements/transfers. from/to: "hub" o "project:<id>".
type TransferRequest struct {
	ResourceID string          `json:"resource_id"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	Quantity   decimal.Decimal `json:"quantity"`
	Date       string          `json:"date,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

func (r TransferRequest) ToInput() (inventory.TransferInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.TransferInput{}, err
	}
	from, err := ParseLocation(r.From)
	if err != nil {
		return inventory.TransferInput{}, err
	}
	to, err := ParseLocation(r.To)
	if err != nil {
		return inventory.TransferInput{}, err
	}
	return inventory.TransferInput{
		ResourceID: r.ResourceID, From: from, To: to, Quantity: r.Quantity, Date: date, Notes: r.Notes,
	}, nil
}

// ConsumptionRequest body para POST /api/movements/consumptions. reason es obligatorio en el Hub.
type ConsumptionRequest struct {
	ResourceID string          `json:"resource_id"`
	Location   string          `json:"location"`
	Quantity   decimal.Decimal `json:"quantity"`
	Date       string          `json:"date,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

func (r ConsumptionRequest) ToInput() (inventory.ConsumptionInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.ConsumptionInput{}, err
	}
	loc, err := ParseLocation(r.Location)
	if err != nil {
		return inventory.ConsumptionInput{}, err
	}
	return inventory.ConsumptionInput{
		ResourceID: r.ResourceID, Location: loc, Quantity: r.Quantity, Date: date, Reason: r.Reason, Notes: r.Notes,
	}, nil
}

// AdjustmentRequest body para POST /api/movements/adjustments. quantity lleva signo.
type AdjustmentRequest struct {
	ResourceID string           `json:"resource_id"`
	Location   string           `json:"location"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	Date       string           `json:"date,omitempty"`
	Notes      string           `json:"notes,omitempty"`
}

func (r AdjustmentRequest) ToInput() (inventory.AdjustmentInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.AdjustmentInput{}, err
	}
	loc, err := ParseLocation(r.Location)
	if err != nil {
		return inventory.AdjustmentInput{}, err
	}
	return inventory.AdjustmentInput{
		ResourceID: r.ResourceID, Location: loc, Quantity: r.Quantity, UnitPrice: r.UnitPrice, Date: date, Notes: r.Notes,
	}, nil
}

// ReversalRequest body para POST /api/movements/:movementId/reverse.
type ReversalRequest struct {
	Date   string `json:"date,omitempty"`
	Reason string `json:"reason"`
}

func (r ReversalRequest) ToInput(movementID string) (inventory.ReversalInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return inventory.ReversalInput{}, err
	}
	return inventory.ReversalInput{MovementID: movementID, Date: date, Reason: r.Reason}, nil
}

// LedgerEntryDTO asiento en respuestas.
type LedgerEntryDTO struct {
	ID                int64           `json:"id"`
	MovementID        string          `json:"movement_id"`
	ResourceID        string          `json:"resource_id"`
	Location          string          `json:"location"`
	Type              string          `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TransactionDate   string          `json:"transaction_date"`
	Notes             string          `json:"notes,omitempty"`
	Supplier          string          `json:"supplier,omitempty"`
	InvoiceNumber     string          `json:"invoice_number,omitempty"`
	GoodsReceiptID    string          `json:"goods_receipt_id,omitempty"`
	ConsumptionReason string          `json:"consumption_reason,omitempty"`
	CreatedBy         string          `json:"created_by"`
}

func FromEntry(e *entity.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:                e.ID,
		MovementID:        e.MovementID,
		ResourceID:        e.ResourceID,
		Location:          e.Location.String(),
		Type:              string(e.Type),
		Quantity:          e.Quantity,
		UnitPrice:         e.UnitPrice,
		TotalValue:        e.TotalValue,
		TransactionDate:   formatDate(e.TransactionDate),
		Notes:             e.Notes,
		Supplier:          e.Supplier,
		InvoiceNumber:     e.InvoiceNumber,
		GoodsReceiptID:    e.GoodsReceiptID,
		ConsumptionReason: e.ConsumptionReason,
		CreatedBy:         e.CreatedBy,
	}
}

func FromEntries(list []*entity.LedgerEntry) []LedgerEntryDTO {
	out := make([]LedgerEntryDTO, 0, len(list))
	for _, e := range list {
		out = append(out, FromEntry(e))
	}
	return out
}

// BatchDTO lote en respuestas.
type BatchDTO struct {
	ID                int64           `json:"id"`
	ResourceID        string          `json:"resource_id"`
	Location          string          `json:"location"`
	BatchNumber       string          `json:"batch_number"`
	PurchaseDate      string          `json:"purchase_date"`
	Unit              string          `json:"unit"`
	ConversionFactor  decimal.Decimal `json:"conversion_factor"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	QuantityPurchased decimal.Decimal `json:"quantity_purchased"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	Supplier          string          `json:"supplier,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

func FromBatch(b *entity.Batch) BatchDTO {
	return BatchDTO{
		ID:                b.ID,
		ResourceID:        b.ResourceID,
		Location:          b.Location.String(),
		BatchNumber:       b.BatchNumber,
		PurchaseDate:      formatDate(b.PurchaseDate),
		Unit:              b.Unit,
		ConversionFactor:  b.ConversionFactor,
		UnitPrice:         b.UnitPrice,
		QuantityPurchased: b.QuantityPurchased,
		QuantityRemaining: b.QuantityRemaining,
		Supplier:          b.Supplier,
		Notes:             b.Notes,
	}
}

// DrawDTO parte de un consumo FIFO tomada de un lote.
type DrawDTO struct {
	BatchID        int64           `json:"batch_id"`
	BatchNumber    string          `json:"batch_number"`
	Unit           string          `json:"unit"`
	QuantityNative decimal.Decimal `json:"quantity_native"`
	QuantityBase   decimal.Decimal `json:"quantity_base"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Cost           decimal.Decimal `json:"cost"`
}

// FIFOResultDTO costo real por lotes de la operación.
type FIFOResultDTO struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Cost      decimal.Decimal `json:"cost"`
	Breakdown []DrawDTO       `json:"breakdown"`
}

func fromFIFO(r *fifo.Result) *FIFOResultDTO {
	if r == nil {
		return nil
	}
	out := &FIFOResultDTO{Quantity: r.Quantity, Cost: r.Cost, Breakdown: make([]DrawDTO, 0, len(r.Breakdown))}
	for _, d := range r.Breakdown {
		out.Breakdown = append(out.Breakdown, DrawDTO{
			BatchID:        d.BatchID,
			BatchNumber:    d.BatchNumber,
			Unit:           d.Unit,
			QuantityNative: d.QuantityNative,
			QuantityBase:   d.QuantityBase,
			UnitPrice:      d.UnitPrice,
			Cost:           d.Cost,
		})
	}
	return out
}

// MovementResponse respuesta de toda operación que mueve inventario.
type MovementResponse struct {
	MovementID string           `json:"movement_id"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Entries    []LedgerEntryDTO `json:"entries"`
	Batches    []BatchDTO       `json:"batches,omitempty"`
	FIFO       *FIFOResultDTO   `json:"fifo,omitempty"`
}

func FromMovementResult(r *inventory.MovementResult) MovementResponse {
	out := MovementResponse{
		MovementID: r.MovementID,
		UnitPrice:  r.UnitPrice,
		Entries:    FromEntries(r.Entries),
		FIFO:       fromFIFO(r.FIFO),
	}
	for _, b := range r.Batches {
		out.Batches = append(out.Batches, FromBatch(b))
	}
	return out
}

// BatchPatchRequest body para PATCH /api/batches/:id. Solo supplier y notes son editables;
// el resto de campos se aceptan para poder rechazarlos con un error claro.
type BatchPatchRequest struct {
	Supplier          *string          `json:"supplier,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	QuantityPurchased *decimal.Decimal `json:"quantity_purchased,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	ConversionFactor  *decimal.Decimal `json:"conversion_factor,omitempty"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	PurchaseDate      *string          `json:"purchase_date,omitempty"`
}

func (r BatchPatchRequest) ToPatch() (entity.BatchPatch, error) {
	p := entity.BatchPatch{
		Supplier:          r.Supplier,
		Notes:             r.Notes,
		QuantityPurchased: r.QuantityPurchased,
		Unit:              r.Unit,
		ConversionFactor:  r.ConversionFactor,
		UnitPrice:         r.UnitPrice,
	}
	if r.PurchaseDate != nil {
		t, err := ParseDate(*r.PurchaseDate)
		if err != nil {
			return entity.BatchPatch{}, err
		}
		p.PurchaseDate = &t
	}
	return p, nil
}

// DeleteBatchRequest body para DELETE /api/batches/:id.
type DeleteBatchRequest struct {
	Reason string `json:"reason"`
}
