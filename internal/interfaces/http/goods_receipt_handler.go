package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Inventario-ledger/internal/application/dto"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
)

// GoodsReceiptHandler crea y procesa notas de recepción (GRN).
type GoodsReceiptHandler struct {
	svc *inventory.Service
}

func NewGoodsReceiptHandler(svc *inventory.Service) *GoodsReceiptHandler {
	return &GoodsReceiptHandler{svc: svc}
}

// Create godoc
// @Summary      Crear nota de recepción
// @Description  Guarda la nota sin mover inventario. Sin number se asigna GRN-<año>-<00001>.
// @Tags         goods-receipts
// @Security     Bearer
// @Param        body  body  dto.GoodsReceiptRequest  true  "proveedor, destino y líneas"
// @Success      201   {object}  dto.GoodsReceiptDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/goods-receipts [post]
func (h *GoodsReceiptHandler) Create(c *fiber.Ctx) error {
	var req dto.GoodsReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	grn, err := h.svc.CreateGoodsReceipt(c.Context(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromGoodsReceipt(grn))
}

// Process registra en el ledger una nota existente. Una nota ya procesada devuelve 409.
func (h *GoodsReceiptHandler) Process(c *fiber.Ctx) error {
	res, err := h.svc.RecordGoodsReceipt(c.Context(), actor(c), c.Params("id"))
	return created(c, res, err)
}

// ProcessPending procesa todas las notas pendientes, o solo ?number=.
func (h *GoodsReceiptHandler) ProcessPending(c *fiber.Ctx) error {
	report, err := h.svc.ProcessPendingGoodsReceipts(c.Context(), actor(c), c.Query("number"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromProcessReport(report))
}
