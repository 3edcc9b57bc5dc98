package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/dto"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/Inventario-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type api struct {
	t     *testing.T
	app   *fiber.App
	token string
}

// newAPI levanta el router completo sobre el almacén en memoria con cemento (kg) y el proyecto A.
func newAPI(t *testing.T, role string) *api {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(nil)
	require.NoError(t, store.Resources().Create(ctx, &entity.Resource{ID: "cement", Name: "Cemento", SKU: "CEM-01", BaseUnit: "kg"}))
	require.NoError(t, store.Projects().Create(ctx, &entity.ProjectInfo{ID: "A", Code: "PRJ-A", Name: "Puente"}))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Service:    inventory.NewService(store, store.Resources(), store.Projects(), store.GoodsReceipts(), logger.Nop()),
		Calculator: balance.NewCalculator(store.Ledger(), store.Batches(), store.Resources()),
		JWTSecret:  testJWTSecret,
		JWTIssuer:  testIssuer,
	})
	return &api{t: t, app: app, token: tokenForRole(t, role)}
}

// do envía body como JSON y decodifica la respuesta en out (si no es nil).
func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", a.token)
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: esperado %s, obtenido %s", msg, want, got)
}

func (a *api) purchase(qty, price, date string) dto.MovementResponse {
	a.t.Helper()
	var res dto.MovementResponse
	status := a.do(http.MethodPost, "/api/movements/purchases", fiber.Map{
		"resource_id": "cement", "quantity": qty, "unit_price": price, "date": date, "supplier": "Holcim",
	}, &res)
	require.Equal(a.t, http.StatusCreated, status)
	return res
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_CompraAsignacionYSaldo(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)

	res := a.purchase("1000", "0.25", "2024-01-01")
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "PURCHASE", res.Entries[0].Type)
	assert.Equal(t, "hub", res.Entries[0].Location)
	require.Len(t, res.Batches, 1)

	var alloc dto.MovementResponse
	status := a.do(http.MethodPost, "/api/movements/allocations", fiber.Map{
		"resource_id": "cement", "project_id": "A", "quantity": "400", "date": "2024-01-02",
	}, &alloc)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, alloc.Entries, 2)
	assertDec(t, "0.25", alloc.UnitPrice, "precio de asignación")

	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/balance?location=project:A", nil, &bal))
	assertDec(t, "400", bal.Quantity, "saldo del proyecto")
	assertDec(t, "0.25", bal.AveragePrice, "promedio del proyecto")
	assert.Equal(t, "project:A", bal.Location)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/balance", nil, &bal))
	assertDec(t, "600", bal.Quantity, "saldo del hub")

	var rec dto.ReconciliationDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/reconcile", nil, &rec))
	assert.True(t, rec.Balanced)
}

func TestRouter_StockInsuficiente_409(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)
	a.purchase("10", "1", "2024-01-01")

	var e dto.ErrorResponse
	status := a.do(http.MethodPost, "/api/movements/allocations", fiber.Map{
		"resource_id": "cement", "project_id": "A", "quantity": "11",
	}, &e)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.False(t, e.Retryable)
}

func TestRouter_Validaciones(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/movements/purchases", fiber.Map{
		"resource_id": "cement", "quantity": "-1", "unit_price": "1",
	}, &e))
	assert.Equal(t, "VALIDATION", e.Code)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/movements/transfers", fiber.Map{
		"resource_id": "cement", "from": "bodega", "to": "hub", "quantity": "1",
	}, &e))

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/movements/purchases", fiber.Map{
		"resource_id": "cement", "quantity": "1", "unit_price": "1", "date": "01/02/2024",
	}, &e))

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/movements/purchases", fiber.Map{
		"resource_id": "acero", "quantity": "1", "unit_price": "1",
	}, &e))
	assert.Equal(t, "NOT_FOUND", e.Code)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/reports/summary?from=ayer", nil, &e))
}

func TestRouter_ConsumoYDevolucion(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)
	a.purchase("100", "2", "2024-01-01")

	var res dto.MovementResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/movements/allocations", fiber.Map{
		"resource_id": "cement", "project_id": "A", "quantity": "50", "date": "2024-01-02",
	}, &res))

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/movements/consumptions", fiber.Map{
		"resource_id": "cement", "location": "project:A", "quantity": "20", "date": "2024-01-03",
	}, &res))
	require.NotNil(t, res.FIFO)
	assertDec(t, "40", res.FIFO.Cost, "costo FIFO")

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/movements/returns", fiber.Map{
		"resource_id": "cement", "project_id": "A", "quantity": "30", "date": "2024-01-04",
	}, &res))

	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/balance?location=project:A", nil, &bal))
	assertDec(t, "0", bal.Quantity, "proyecto vacío tras la devolución")

	var hist struct {
		Total     int                   `json:"total"`
		Movements []dto.MovementLineDTO `json:"movements"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/history?location=project:A", nil, &hist))
	require.Equal(t, 3, hist.Total)
	assertDec(t, "0", hist.Movements[2].Balance, "saldo acumulado final")

	var sum dto.PeriodSummaryDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/summary?location=hub&from=2024-01-01&to=2024-01-31", nil, &sum))
	assertDec(t, "130", sum.InQty, "entradas al hub")
	assertDec(t, "50", sum.OutQty, "salidas del hub")

	var daily dto.DailyReportDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/daily-report?location=project:A&date=2024-01-03", nil, &daily))
	assertDec(t, "50", daily.Opening, "apertura")
	assertDec(t, "20", daily.Out, "salidas del día")
	assertDec(t, "30", daily.Closing, "cierre")
}

func TestRouter_ReversaDeConsumo(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)
	a.purchase("100", "2", "2024-01-01")

	var cons dto.MovementResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/movements/consumptions", fiber.Map{
		"resource_id": "cement", "location": "hub", "quantity": "25", "reason": "merma", "date": "2024-01-02",
	}, &cons))

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/movements/"+cons.MovementID+"/reverse", fiber.Map{}, &e),
		"sin motivo")

	var rev dto.MovementResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/movements/"+cons.MovementID+"/reverse", fiber.Map{
		"reason": "vale duplicado", "date": "2024-01-03",
	}, &rev))
	require.Len(t, rev.Entries, 1)
	assert.Equal(t, "ADJUSTMENT", rev.Entries[0].Type)
	assertDec(t, "25", rev.Entries[0].Quantity, "cantidad repuesta")

	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/movements/"+cons.MovementID+"/reverse", fiber.Map{
		"reason": "otra vez",
	}, &e))
	assert.Equal(t, "IMMUTABLE", e.Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/movements/no-existe/reverse", fiber.Map{
		"reason": "x",
	}, &e))

	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/balance", nil, &bal))
	assertDec(t, "100", bal.Quantity, "saldo restituido")
	var rec dto.ReconciliationDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/reconcile", nil, &rec))
	assert.True(t, rec.Balanced)
}

func TestRouter_Reportes(t *testing.T) {
	a := newAPI(t, apphttp.RoleResidente)

	// el residente solo lee; el inventario lo carga un administrador sobre la misma app
	w := &api{t: t, app: a.app, token: tokenForRole(t, apphttp.RoleAdmin)}
	w.purchase("100", "2", "2024-01-01")
	require.Equal(t, http.StatusCreated, w.do(http.MethodPost, "/api/movements/allocations", fiber.Map{
		"resource_id": "cement", "project_id": "A", "quantity": "30", "date": "2024-01-02",
	}, nil))
	require.Equal(t, http.StatusCreated, w.do(http.MethodPost, "/api/movements/consumptions", fiber.Map{
		"resource_id": "cement", "location": "project:A", "quantity": "24", "date": "2024-01-03",
	}, nil))

	var low struct {
		Total int                   `json:"total"`
		Items []dto.LowStockLineDTO `json:"items"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/low-stock?location=project:A", nil, &low))
	require.Equal(t, 1, low.Total)
	assert.Equal(t, "LOW_STOCK", low.Items[0].Status)
	assertDec(t, "6", low.Items[0].Quantity, "saldo del proyecto")

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/low-stock?location=project:A&threshold=5", nil, &low))
	assert.Equal(t, 0, low.Total)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/reports/low-stock?threshold=mucho", nil, &e))

	var cons dto.ConsumptionReportDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/projects/A/consumption?from=2024-01-01&to=2024-01-31", nil, &cons))
	require.Len(t, cons.ByResource, 1)
	assertDec(t, "24", cons.ByResource[0].Quantity, "consumido")
	assertDec(t, "48", cons.TotalValue, "valor consumido")
	assert.Equal(t, 1, cons.Transactions)

	var daily dto.DailyReportsDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/daily?location=project:A&date=2024-01-03", nil, &daily))
	require.Equal(t, 1, daily.Total)
	assertDec(t, "30", daily.Reports[0].Opening, "apertura")
	assertDec(t, "6", daily.Reports[0].Closing, "cierre")
}

// ──────────────────────────────────────────────────────────────────────────────
// Notas de recepción
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_NotaDeRecepcion(t *testing.T) {
	a := newAPI(t, apphttp.RoleAlmacen)

	var grn dto.GoodsReceiptDTO
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/goods-receipts", fiber.Map{
		"supplier_name": "Holcim",
		"project_id":    "A",
		"receipt_date":  "2024-01-10",
		"lines": []fiber.Map{
			{"resource_id": "cement", "quantity_received": "2", "receipt_unit": "ton", "unit_price": "200"},
		},
	}, &grn))
	assert.Equal(t, "GRN-2024-00001", grn.Number)
	assert.Equal(t, "project:A", grn.Destination)

	var res dto.MovementResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, fmt.Sprintf("/api/goods-receipts/%s/process", grn.ID), nil, &res))
	require.Len(t, res.Batches, 1)
	assert.Equal(t, "project:A", res.Batches[0].Location)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, fmt.Sprintf("/api/goods-receipts/%s/process", grn.ID), nil, &e))
	assert.Equal(t, "CONFLICT", e.Code)

	var report dto.ProcessReportDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/goods-receipts/process", nil, &report))
	assert.Empty(t, report.Processed)
	assert.Equal(t, []string{"GRN-2024-00001"}, report.Skipped)

	var stocks struct {
		Items []dto.StockLineDTO `json:"items"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/projects/A/stocks", nil, &stocks))
	require.Len(t, stocks.Items, 1)
	assertDec(t, "2000", stocks.Items[0].Quantity, "2 ton en kg")
	assertDec(t, "0.2", stocks.Items[0].AveragePrice, "precio por kg")
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_Lotes(t *testing.T) {
	a := newAPI(t, apphttp.RoleAdmin)
	res := a.purchase("100", "3", "2024-01-01")
	id := res.Batches[0].ID
	path := fmt.Sprintf("/api/batches/%d", id)

	var b dto.BatchDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, path, fiber.Map{"supplier": "Argos"}, &b))
	assert.Equal(t, "Argos", b.Supplier)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPatch, path, fiber.Map{"unit_price": "4"}, &e))
	assert.Equal(t, "IMMUTABLE", e.Code)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/api/batches/abc", fiber.Map{"notes": "x"}, &e))

	var voided dto.MovementResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, path, fiber.Map{"reason": "duplicado"}, &voided))
	require.Len(t, voided.Entries, 1)
	assert.Equal(t, "ADJUSTMENT", voided.Entries[0].Type)

	var val dto.ValuationDTO
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/valuation?location=hub", nil, &val))
	assertDec(t, "0", val.TotalValue, "hub sin valor tras anular el lote")
	assert.Empty(t, val.Items)
}

func TestRouter_RolesPorRuta(t *testing.T) {
	a := newAPI(t, apphttp.RoleResidente)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/movements/purchases", fiber.Map{
		"resource_id": "cement", "quantity": "1", "unit_price": "1",
	}, &e))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/movements/adjustments", fiber.Map{
		"resource_id": "cement", "location": "hub", "quantity": "1",
	}, &e))

	var bal dto.BalanceResponse
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/resources/cement/balance", nil, &bal))
}
