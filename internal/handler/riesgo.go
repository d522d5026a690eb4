package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/pkg/response"
)

// RiesgoHandler serves the risk artifacts derived from a consulta's
// resultados.
type RiesgoHandler struct {
	service *service.RiesgoService
}

func NewRiesgoHandler(svc *service.RiesgoService) *RiesgoHandler {
	return &RiesgoHandler{service: svc}
}

// Score handles GET /api/calcular_riesgo/:id
func (h *RiesgoHandler) Score(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}
	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	score, err := h.service.CalcularRiesgo(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to compute risk score")
	}

	return response.OK(c, score)
}

// Map handles GET /api/mapa-riesgo/:id
func (h *RiesgoHandler) Map(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}
	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	entries, err := h.service.MapaRiesgo(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to compute risk map")
	}

	return response.OK(c, fiber.Map{"categorias": entries})
}

// Bubbles handles GET /api/burbuja-riesgo/:id
func (h *RiesgoHandler) Bubbles(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}
	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	bubbles, err := h.service.BurbujaRiesgo(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to compute risk bubbles")
	}

	return response.OK(c, fiber.Map{"burbujas": bubbles})
}
