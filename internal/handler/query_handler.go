package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/service"
)

// QueryHandler handles knowledge-base query endpoints.
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Register sets up query routes.
func (h *QueryHandler) Register(router fiber.Router) {
	router.Post("/query", h.Query)
	router.Get("/stats", h.Stats)
}

// Query answers a question, optionally within a conversation session.
func (h *QueryHandler) Query(c fiber.Ctx) error {
	var body struct {
		Question       string `json:"question"`
		SessionID      string `json:"session_id"`
		IncludeSources *bool  `json:"include_sources"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.queryService.Query(c.Context(), body.Question, body.SessionID)
	if err != nil {
		var invalid *domain.InvalidDocumentError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": invalid.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if body.IncludeSources != nil && !*body.IncludeSources {
		result.Sources = []domain.Citation{}
	}
	return c.JSON(result)
}

// Stats reports knowledge-base counters.
func (h *QueryHandler) Stats(c fiber.Ctx) error {
	stats, err := h.queryService.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}
