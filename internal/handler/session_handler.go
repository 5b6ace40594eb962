package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/devpractices/qa-assistant/internal/port"
	"github.com/devpractices/qa-assistant/internal/service"
)

// SessionHandler handles conversation session endpoints.
type SessionHandler struct {
	queryService *service.QueryService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(queryService *service.QueryService) *SessionHandler {
	return &SessionHandler{queryService: queryService}
}

// Register sets up session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/session", h.Create)
	router.Delete("/session/:id", h.Clear)
}

// Create starts a new conversation session. The id embeds the caller's
// user id (or "anonymous") plus a short random suffix.
func (h *SessionHandler) Create(c fiber.Ctx) error {
	var body struct {
		UserID string `json:"user_id"`
	}
	// Empty body is fine; user_id is optional.
	_ = c.Bind().JSON(&body)

	user := body.UserID
	if user == "" {
		user = "anonymous"
	}
	id := fmt.Sprintf("%s-%s", user, uuid.NewString()[:8])

	session := h.queryService.CreateSession(id)
	return c.JSON(fiber.Map{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

// Clear deletes a session's history.
func (h *SessionHandler) Clear(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.queryService.ClearSession(id); err != nil {
		if errors.Is(err, port.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
