package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/pkg/response"
)

// ResultadoHandler serves per-source outcomes: listing, retry dispatch, and
// evidence resolution.
type ResultadoHandler struct {
	service *service.ResultadoService
}

func NewResultadoHandler(svc *service.ResultadoService) *ResultadoHandler {
	return &ResultadoHandler{service: svc}
}

// List handles GET /api/resultados/:id (the :id is the consulta id)
func (h *ResultadoHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	resultados, err := h.service.List(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to list resultados")
	}

	return response.OK(c, fiber.Map{"resultados": resultados})
}

// Relanzar handles POST /api/relanzar_bot/:id. The 202 acknowledges
// dispatch only; the stored status stays unchanged until the revalidation
// worker picks the task up, so clients should keep polling.
func (h *ResultadoHandler) Relanzar(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	resultadoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid resultado ID", nil)
	}

	result, err := h.service.Relanzar(c.Context(), userID, resultadoID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return response.NotFound(c, "Resultado not found")
		case errors.Is(err, service.ErrNotRetryable):
			return response.Conflict(c, "Resultado is not in a retryable state")
		default:
			return response.ServiceError(c, "Failed to queue revalidation")
		}
	}

	return response.Accepted(c, result)
}

// Evidence handles GET /api/evidencia/:id
func (h *ResultadoHandler) Evidence(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	resultadoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid resultado ID", nil)
	}

	result, err := h.service.ResolveEvidence(c.Context(), userID, resultadoID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return response.NotFound(c, "Resultado not found")
		case errors.Is(err, service.ErrNoEvidence):
			return response.NotFound(c, "No evidence available for this resultado")
		default:
			return response.ServiceError(c, "Failed to resolve evidence")
		}
	}

	return response.OK(c, result)
}
