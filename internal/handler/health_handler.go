package handler

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/devpractices/qa-assistant/internal/port"
)

// HealthHandler reports process health, including whether the vector store
// is reachable.
type HealthHandler struct {
	index   port.VectorIndex
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(index port.VectorIndex, version string) *HealthHandler {
	return &HealthHandler{index: index, version: version}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health probes the vector store and reports "degraded" when it is
// unreachable, so load balancers and monitors see the backing-store outage.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	_, err := h.index.Stats(c.Context())

	status := "healthy"
	if err != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":            status,
		"version":           h.version,
		"vectorstore_ready": err == nil,
		"timestamp":         time.Now().UTC(),
	})
}
