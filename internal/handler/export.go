package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/pkg/response"
)

// ExportHandler serves XLSX downloads of a consulta's resultados.
type ExportHandler struct {
	service *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download handles GET /api/consultas/:id/export
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Authentication required")
	}

	consultaID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.ValidationError(c, "Invalid consulta ID", nil)
	}

	data, filename, err := h.service.ExportConsultaXLSX(c.Context(), userID, consultaID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Consulta not found")
		}
		return response.ServiceError(c, "Failed to export consulta")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}
