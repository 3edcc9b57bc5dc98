package dto

import (
	"sort"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/shopspring/decimal"
)

// BalanceResponse saldo actual y precio promedio de un recurso en una ubicación.
type BalanceResponse struct {
	ResourceID   string          `json:"resource_id"`
	Location     string          `json:"location"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Value        decimal.Decimal `json:"value"`
}

// DailyReportDTO identidad apertura + entradas − salidas = cierre de un día.
type DailyReportDTO struct {
	ResourceID string           `json:"resource_id"`
	Location   string           `json:"location"`
	Date       string           `json:"date"`
	Opening    decimal.Decimal  `json:"opening"`
	In         decimal.Decimal  `json:"in"`
	Out        decimal.Decimal  `json:"out"`
	Closing    decimal.Decimal  `json:"closing"`
	Entries    []LedgerEntryDTO `json:"entries"`
}

func FromDailyReport(r *balance.DailyReport) DailyReportDTO {
	return DailyReportDTO{
		ResourceID: r.ResourceID,
		Location:   r.Location.String(),
		Date:       formatDate(r.Date),
		Opening:    r.Opening,
		In:         r.In,
		Out:        r.Out,
		Closing:    r.Closing,
		Entries:    FromEntries(r.Entries),
	}
}

// StockLineDTO una fila de valorización o de stock por proyecto.
type StockLineDTO struct {
	ResourceID   string          `json:"resource_id"`
	Name         string          `json:"name,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	BaseUnit     string          `json:"base_unit,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	Value        decimal.Decimal `json:"value"`
}

func FromStockLines(lines []balance.StockLine) []StockLineDTO {
	out := make([]StockLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, StockLineDTO{
			ResourceID:   l.ResourceID,
			Name:         l.Name,
			SKU:          l.SKU,
			BaseUnit:     l.BaseUnit,
			Quantity:     l.Quantity,
			AveragePrice: l.AveragePrice,
			Value:        l.Value,
		})
	}
	return out
}

type ValuationDTO struct {
	Location   string          `json:"location"`
	Date       string          `json:"date"`
	Items      []StockLineDTO  `json:"items"`
	TotalValue decimal.Decimal `json:"total_value"`
}

func FromValuation(v *balance.Valuation) ValuationDTO {
	return ValuationDTO{
		Location:   v.Location.String(),
		Date:       formatDate(v.Date),
		Items:      FromStockLines(v.Items),
		TotalValue: v.TotalValue,
	}
}

type MovementLineDTO struct {
	LedgerEntryDTO
	Balance decimal.Decimal `json:"balance"`
}

func FromHistory(lines []balance.MovementLine) []MovementLineDTO {
	out := make([]MovementLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, MovementLineDTO{LedgerEntryDTO: FromEntry(l.Entry), Balance: l.Balance})
	}
	return out
}

type TypeTotalsDTO struct {
	Type     string          `json:"type"`
	Count    int             `json:"count"`
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type PeriodSummaryDTO struct {
	Location string          `json:"location"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	ByType   []TypeTotalsDTO `json:"by_type"`
	InQty    decimal.Decimal `json:"in_quantity"`
	InValue  decimal.Decimal `json:"in_value"`
	OutQty   decimal.Decimal `json:"out_quantity"`
	OutValue decimal.Decimal `json:"out_value"`
}

func FromPeriodSummary(s *balance.PeriodSummary) PeriodSummaryDTO {
	out := PeriodSummaryDTO{
		Location: s.Location.String(),
		From:     formatDate(s.Range.From),
		To:       formatDate(s.Range.To),
		ByType:   make([]TypeTotalsDTO, 0, len(s.ByType)),
		InQty:    s.In.Quantity,
		InValue:  s.In.Value,
		OutQty:   s.Out.Quantity,
		OutValue: s.Out.Value,
	}
	for typ, t := range s.ByType {
		out.ByType = append(out.ByType, TypeTotalsDTO{Type: string(typ), Count: t.Count, Quantity: t.Quantity, Value: t.Value})
	}
	sort.Slice(out.ByType, func(i, j int) bool { return out.ByType[i].Type < out.ByType[j].Type })
	return out
}

type ReconcileLineDTO struct {
	Location       string          `json:"location"`
	LedgerQuantity decimal.Decimal `json:"ledger_quantity"`
	BatchQuantity  decimal.Decimal `json:"batch_quantity"`
	Difference     decimal.Decimal `json:"difference"`
}

type ReconciliationDTO struct {
	ResourceID string             `json:"resource_id"`
	Balanced   bool               `json:"balanced"`
	Lines      []ReconcileLineDTO `json:"lines"`
}

func FromReconciliation(r *balance.Reconciliation) ReconciliationDTO {
	out := ReconciliationDTO{ResourceID: r.ResourceID, Balanced: r.Balanced, Lines: make([]ReconcileLineDTO, 0, len(r.Lines))}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, ReconcileLineDTO{
			Location:       l.Location.String(),
			LedgerQuantity: l.LedgerQuantity,
			BatchQuantity:  l.BatchQuantity,
			Difference:     l.Difference,
		})
	}
	return out
}

// DailyReportsDTO reporte diario de todos los recursos con actividad en una ubicación.
type DailyReportsDTO struct {
	Location string           `json:"location"`
	Date     string           `json:"date"`
	Total    int              `json:"total"`
	Reports  []DailyReportDTO `json:"reports"`
}

func FromDailyReports(loc, date string, reports []*balance.DailyReport) DailyReportsDTO {
	out := DailyReportsDTO{Location: loc, Date: date, Total: len(reports), Reports: make([]DailyReportDTO, 0, len(reports))}
	for _, r := range reports {
		out.Reports = append(out.Reports, FromDailyReport(r))
	}
	return out
}

type LowStockLineDTO struct {
	ResourceID string          `json:"resource_id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	BaseUnit   string          `json:"base_unit"`
	Quantity   decimal.Decimal `json:"current_stock"`
	Threshold  decimal.Decimal `json:"threshold"`
	Status     string          `json:"status"`
}

func FromLowStock(lines []balance.LowStockLine) []LowStockLineDTO {
	out := make([]LowStockLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, LowStockLineDTO{
			ResourceID: l.ResourceID, Name: l.Name, SKU: l.SKU, BaseUnit: l.BaseUnit,
			Quantity: l.Quantity, Threshold: l.Threshold, Status: l.Status,
		})
	}
	return out
}

type ResourceConsumptionDTO struct {
	ResourceID string          `json:"resource_id"`
	Name       string          `json:"name,omitempty"`
	SKU        string          `json:"sku,omitempty"`
	BaseUnit   string          `json:"base_unit,omitempty"`
	Quantity   decimal.Decimal `json:"total_consumed"`
	Value      decimal.Decimal `json:"total_value"`
	Count      int             `json:"consumption_count"`
}

// ConsumptionReportDTO consumos de un proyecto por recurso.
type ConsumptionReportDTO struct {
	ProjectID    string                   `json:"project_id"`
	From         string                   `json:"from,omitempty"`
	To           string                   `json:"to,omitempty"`
	ByResource   []ResourceConsumptionDTO `json:"by_resource"`
	TotalValue   decimal.Decimal          `json:"total_consumed_value"`
	Transactions int                      `json:"total_transactions"`
}

func FromConsumptionReport(r *balance.ConsumptionReport) ConsumptionReportDTO {
	out := ConsumptionReportDTO{
		ProjectID:    r.ProjectID,
		From:         formatDate(r.Range.From),
		To:           formatDate(r.Range.To),
		ByResource:   make([]ResourceConsumptionDTO, 0, len(r.ByResource)),
		TotalValue:   r.TotalValue,
		Transactions: r.Transactions,
	}
	for _, rc := range r.ByResource {
		out.ByResource = append(out.ByResource, ResourceConsumptionDTO{
			ResourceID: rc.ResourceID, Name: rc.Name, SKU: rc.SKU, BaseUnit: rc.BaseUnit,
			Quantity: rc.Quantity, Value: rc.Value, Count: rc.Count,
		})
	}
	return out
}
