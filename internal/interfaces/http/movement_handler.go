package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Inventario-ledger/internal/application/dto"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
)

// MovementHandler expone las operaciones que mueven inventario (protegido).
type MovementHandler struct {
	svc *inventory.Service
}

func NewMovementHandler(svc *inventory.Service) *MovementHandler {
	return &MovementHandler{svc: svc}
}

func created(c *fiber.Ctx, res *inventory.MovementResult, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovementResult(res))
}

// Purchase godoc
// @Summary      Registrar compra en el Hub
// @Tags         movements
// @Security     Bearer
// @Param        body  body  dto.PurchaseRequest  true  "resource_id, quantity, unit_price"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/movements/purchases [post]
func (h *MovementHandler) Purchase(c *fiber.Ctx) error {
	var req dto.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordPurchase(c.Context(), actor(c), in)
	return created(c, res, err)
}

// Allocate godoc
// @Summary      Asignar del Hub a un proyecto
// @Tags         movements
// @Security     Bearer
// @Param        body  body  dto.AllocationRequest  true  "resource_id, project_id, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/allocations [post]
func (h *MovementHandler) Allocate(c *fiber.Ctx) error {
	var req dto.AllocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordAllocation(c.Context(), actor(c), in)
	return created(c, res, err)
}

// Return devuelve stock de un proyecto al Hub.
func (h *MovementHandler) Return(c *fiber.Ctx) error {
	var req dto.AllocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToReturnInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordReturn(c.Context(), actor(c), in)
	return created(c, res, err)
}

// Transfer godoc
// @Summary      Transferir entre ubicaciones
// @Tags         movements
// @Security     Bearer
// @Param        body  body  dto.TransferRequest  true  "from/to: hub o project:<id>"
// @Success      201   {object}  dto.MovementResponse
// @Router       /api/movements/transfers [post]
func (h *MovementHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordTransfer(c.Context(), actor(c), in)
	return created(c, res, err)
}

func (h *MovementHandler) Consume(c *fiber.Ctx) error {
	var req dto.ConsumptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordConsumption(c.Context(), actor(c), in)
	return created(c, res, err)
}

func (h *MovementHandler) Adjust(c *fiber.Ctx) error {
	var req dto.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput()
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.RecordAdjustment(c.Context(), actor(c), in)
	return created(c, res, err)
}

// Reverse godoc
// @Summary      Revertir un consumo
// @Description  Repone los lotes que tomó el consumo y registra un ajuste positivo al mismo precio
// @Tags         movements
// @Security     Bearer
// @Param        movementId  path  string                true  "movement_id del consumo"
// @Param        body        body  dto.ReversalRequest  true  "reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/{movementId}/reverse [post]
func (h *MovementHandler) Reverse(c *fiber.Ctx) error {
	var req dto.ReversalRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	in, err := req.ToInput(c.Params("movementId"))
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.svc.ReverseConsumption(c.Context(), actor(c), in)
	return created(c, res, err)
}
