package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/dto"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BalanceHandler lecturas de saldo y reportes. No toma locks.
type BalanceHandler struct {
	calc *balance.Calculator
}

func NewBalanceHandler(calc *balance.Calculator) *BalanceHandler {
	return &BalanceHandler{calc: calc}
}

func queryLocation(c *fiber.Ctx) (entity.Location, error) {
	return dto.ParseLocation(c.Query("location"))
}

func queryRange(c *fiber.Ctx) (entity.DateRange, error) {
	from, err := dto.ParseDate(c.Query("from"))
	if err != nil {
		return entity.DateRange{}, err
	}
	to, err := dto.ParseDate(c.Query("to"))
	if err != nil {
		return entity.DateRange{}, err
	}
	return entity.DateRange{From: from, To: to}, nil
}

// queryDate lee ?date=; sin valor usa hoy.
func queryDate(c *fiber.Ctx) (time.Time, error) {
	d, err := dto.ParseDate(c.Query("date"))
	if err != nil || !d.IsZero() {
		return d, err
	}
	return entity.Day(time.Now()), nil
}

// Balance godoc
// @Summary      Saldo actual y precio promedio ponderado
// @Tags         balances
// @Security     Bearer
// @Param        id        path   string  true   "resource id"
// @Param        location  query  string  false  "hub (defecto) o project:<id>"
// @Success      200  {object}  dto.BalanceResponse
// @Router       /api/resources/{id}/balance [get]
func (h *BalanceHandler) Balance(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	resourceID := c.Params("id")
	qty, err := h.calc.CurrentBalance(c.Context(), resourceID, loc)
	if err != nil {
		return respondError(c, err)
	}
	avg, err := h.calc.WeightedAveragePrice(c.Context(), resourceID, loc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{
		ResourceID:   resourceID,
		Location:     loc.String(),
		Quantity:     qty,
		AveragePrice: avg,
		Value:        qty.Mul(avg).Round(2),
	})
}

func (h *BalanceHandler) DailyReport(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	date, err := queryDate(c)
	if err != nil {
		return respondError(c, err)
	}
	r, err := h.calc.DailyReport(c.Context(), c.Params("id"), loc, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDailyReport(r))
}

func (h *BalanceHandler) History(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	lines, err := h.calc.MovementHistory(c.Context(), c.Params("id"), loc, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(lines), "movements": dto.FromHistory(lines)})
}

func (h *BalanceHandler) Reconcile(c *fiber.Ctx) error {
	r, err := h.calc.Reconcile(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromReconciliation(r))
}

// Valuation valor del inventario de una ubicación al cierre de ?date=.
func (h *BalanceHandler) Valuation(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	date, err := queryDate(c)
	if err != nil {
		return respondError(c, err)
	}
	v, err := h.calc.InventoryValuation(c.Context(), loc, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromValuation(v))
}

func (h *BalanceHandler) Summary(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	s, err := h.calc.PeriodSummary(c.Context(), loc, rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromPeriodSummary(s))
}

func (h *BalanceHandler) ProjectStocks(c *fiber.Ctx) error {
	lines, err := h.calc.ProjectStocks(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"project_id": c.Params("id"), "items": dto.FromStockLines(lines)})
}

// DailyReportAll godoc
// @Summary      Reporte diario de todos los recursos con actividad
// @Tags         reports
// @Security     Bearer
// @Param        location  query  string  false  "hub (defecto) o project:<id>"
// @Param        date      query  string  false  "YYYY-MM-DD; por defecto hoy"
// @Success      200  {object}  dto.DailyReportsDTO
// @Router       /api/reports/daily [get]
func (h *BalanceHandler) DailyReportAll(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	date, err := queryDate(c)
	if err != nil {
		return respondError(c, err)
	}
	reports, err := h.calc.DailyReportAll(c.Context(), loc, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromDailyReports(loc.String(), date.Format(dto.DateLayout), reports))
}

// LowStock godoc
// @Summary      Recursos con saldo bajo o agotado
// @Tags         reports
// @Security     Bearer
// @Param        location   query  string  false  "hub (defecto) o project:<id>"
// @Param        threshold  query  number  false  "umbral inclusivo; por defecto 10"
// @Success      200  {array}   dto.LowStockLineDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/low-stock [get]
func (h *BalanceHandler) LowStock(c *fiber.Ctx) error {
	loc, err := queryLocation(c)
	if err != nil {
		return respondError(c, err)
	}
	var threshold *decimal.Decimal
	if raw := c.Query("threshold"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return respondError(c, domain.Invalid("umbral inválido %q", raw))
		}
		threshold = &v
	}
	lines, err := h.calc.LowStock(c.Context(), loc, threshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"location": loc.String(), "total": len(lines), "items": dto.FromLowStock(lines)})
}

// ProjectConsumption godoc
// @Summary      Consumos de un proyecto por recurso
// @Tags         reports
// @Security     Bearer
// @Param        id    path   string  true   "project id"
// @Param        from  query  string  false  "YYYY-MM-DD"
// @Param        to    query  string  false  "YYYY-MM-DD"
// @Success      200  {object}  dto.ConsumptionReportDTO
// @Router       /api/projects/{id}/consumption [get]
func (h *BalanceHandler) ProjectConsumption(c *fiber.Ctx) error {
	rng, err := queryRange(c)
	if err != nil {
		return respondError(c, err)
	}
	r, err := h.calc.ProjectConsumption(c.Context(), c.Params("id"), rng)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromConsumptionReport(r))
}
