package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
)

// Roles reconocidos en el token.
const (
	RoleAdmin     = "admin"
	RoleAlmacen   = "almacen"
	RoleResidente = "residente"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service    *inventory.Service
	Calculator *balance.Calculator
	JWTSecret  string
	JWTIssuer  string
}

// Router registra las rutas de la API. Todo bajo /api exige Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	anyRole := RequireRole(RoleAdmin, RoleAlmacen, RoleResidente)
	warehouse := RequireRole(RoleAdmin, RoleAlmacen)
	admin := RequireRole(RoleAdmin)

	// Movimientos
	movements := api.Group("/movements")
	mh := NewMovementHandler(deps.Service)
	movements.Post("/purchases", warehouse, mh.Purchase)
	movements.Post("/allocations", warehouse, mh.Allocate)
	movements.Post("/transfers", warehouse, mh.Transfer)
	movements.Post("/returns", anyRole, mh.Return)
	movements.Post("/consumptions", anyRole, mh.Consume)
	movements.Post("/adjustments", admin, mh.Adjust)
	movements.Post("/:movementId/reverse", warehouse, mh.Reverse)

	// Notas de recepción
	grns := api.Group("/goods-receipts")
	gh := NewGoodsReceiptHandler(deps.Service)
	grns.Post("/", warehouse, gh.Create)
	grns.Post("/process", warehouse, gh.ProcessPending)
	grns.Post("/:id/process", warehouse, gh.Process)

	// Lotes
	batches := api.Group("/batches")
	bh := NewBatchHandler(deps.Service)
	batches.Patch("/:id", warehouse, bh.Update)
	batches.Delete("/:id", admin, bh.Delete)

	// Lecturas
	rh := NewBalanceHandler(deps.Calculator)
	resources := api.Group("/resources", anyRole)
	resources.Get("/:id/balance", rh.Balance)
	resources.Get("/:id/daily-report", rh.DailyReport)
	resources.Get("/:id/history", rh.History)
	resources.Get("/:id/reconcile", rh.Reconcile)

	reports := api.Group("/reports", anyRole)
	reports.Get("/valuation", rh.Valuation)
	reports.Get("/summary", rh.Summary)
	reports.Get("/daily", rh.DailyReportAll)
	reports.Get("/low-stock", rh.LowStock)

	api.Get("/projects/:id/stocks", anyRole, rh.ProjectStocks)
	api.Get("/projects/:id/consumption", anyRole, rh.ProjectConsumption)
}
