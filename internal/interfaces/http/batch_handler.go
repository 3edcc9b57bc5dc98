package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Inventario-ledger/internal/application/dto"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
)

// BatchHandler administración de lotes: edición de campos libres y anulación de lotes sin uso.
type BatchHandler struct {
	svc *inventory.Service
}

func NewBatchHandler(svc *inventory.Service) *BatchHandler {
	return &BatchHandler{svc: svc}
}

func batchID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id de lote inválido: %q", c.Params("id"))
	}
	return id, nil
}

// Update PATCH /api/batches/:id. Campos congelados → 409 IMMUTABLE.
func (h *BatchHandler) Update(c *fiber.Ctx) error {
	id, err := batchID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.BatchPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	patch, err := req.ToPatch()
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.svc.UpdateBatch(c.Context(), actor(c), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromBatch(b))
}

// Delete DELETE /api/batches/:id. Solo lotes sin consumo; deja un ajuste compensatorio.
func (h *BatchHandler) Delete(c *fiber.Ctx) error {
	id, err := batchID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.DeleteBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.svc.DeleteUnusedBatch(c.Context(), actor(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FromMovementResult(res))
}
