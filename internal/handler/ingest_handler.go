package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/devpractices/qa-assistant/internal/adapter/loader"
	"github.com/devpractices/qa-assistant/internal/service"
)

// ingestTimeout bounds one background ingestion run.
const ingestTimeout = 30 * time.Minute

// IngestHandler handles document ingestion endpoints. Ingestion runs in
// the background so it never blocks query handling; progress is observable
// through the job tracker.
type IngestHandler struct {
	queryService *service.QueryService
	tracker      *JobTracker
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(queryService *service.QueryService, tracker *JobTracker) *IngestHandler {
	return &IngestHandler{queryService: queryService, tracker: tracker}
}

// Register sets up ingestion routes.
func (h *IngestHandler) Register(router fiber.Router) {
	router.Post("/ingest", h.Ingest)
}

// Ingest starts a background ingestion of every supported document under
// the given directory and responds 202 with a job id.
func (h *IngestHandler) Ingest(c fiber.Ctx) error {
	var body struct {
		SourceDirectory string `json:"source_directory"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.SourceDirectory == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "source_directory is required"})
	}

	jobID := uuid.NewString()
	h.tracker.CreateJob(jobID, body.SourceDirectory)

	go h.run(jobID, body.SourceDirectory)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":           jobID,
		"source_directory": body.SourceDirectory,
	})
}

// run executes one ingestion job. Individual document failures are counted
// but do not abort the job; a loader failure fails the whole job.
func (h *IngestHandler) run(jobID, sourceDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	docs, err := loader.NewDirectoryLoader(sourceDir).Load()
	if err != nil {
		slog.Error("ingestion job failed", "job_id", jobID, "error", err)
		h.tracker.FailJob(jobID, err.Error())
		return
	}
	h.tracker.SetTotal(jobID, len(docs))

	failed := 0
	for i, doc := range docs {
		if err := h.queryService.Ingest(ctx, doc); err != nil {
			slog.Error("document ingestion failed",
				"job_id", jobID, "source", doc.SourcePath, "error", err)
			failed++
			continue
		}
		h.tracker.UpdateJob(jobID, doc.SourcePath, i+1, "running")
	}

	if failed == len(docs) && len(docs) > 0 {
		h.tracker.FailJob(jobID, fmt.Sprintf("all %d documents failed", failed))
		return
	}

	h.tracker.UpdateJob(jobID, "", len(docs), "complete")
	slog.Info("ingestion job complete",
		"job_id", jobID, "documents", len(docs)-failed, "failed", failed)
}
