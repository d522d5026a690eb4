package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/pkg/response"
)

// ConsultaHandler serves verification requests. Submission is asynchronous:
// the POST acknowledges with 202 and clients observe progress by polling the
// list or detail endpoints.
type ConsultaHandler struct {
	service   *service.ConsultaService
	validator *validator.Validate
}

func NewConsultaHandler(svc *service.ConsultaService, v *validator.Validate) *ConsultaHandler {
	return &ConsultaHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/consultas
func (h *ConsultaHandler) Create(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req model.ConsultaCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), userID, &req)
	if err != nil {
		return response.ServiceError(c, "Failed to submit consulta")
	}

	return response.Accepted(c, result)
}

// List handles GET /api/consultas
func (h *ConsultaHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	consultas, err := h.service.List(c.Context(), userID)
	if err != nil {
		return response.ServiceError(c, "Failed to list consultas")
	}

	return response.OK(c, fiber.Map{"consultas": consultas})
}

// Get handles GET /api/consultas/:id
func (h *ConsultaHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	consulta, err := h.service.Get(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to load consulta")
	}

	return response.OK(c, consulta)
}
