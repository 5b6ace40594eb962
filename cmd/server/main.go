package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/devpractices/qa-assistant/internal/adapter/ai"
	"github.com/devpractices/qa-assistant/internal/adapter/store"
	"github.com/devpractices/qa-assistant/internal/handler"
	"github.com/devpractices/qa-assistant/internal/mcp"
	"github.com/devpractices/qa-assistant/internal/port"
	"github.com/devpractices/qa-assistant/internal/service"
	"github.com/devpractices/qa-assistant/pkg/config"

	_ "github.com/lib/pq"
)

const version = "1.0.0"

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting QA Knowledge Base",
		"port", cfg.Port,
		"ai_provider", cfg.AIProvider,
		"vector_backend", cfg.VectorBackend,
		"embedding_model", cfg.EmbeddingModel,
		"generation_model", cfg.GenerationModel,
	)

	// ── Vector index ─────────────────────────────────────────────────────
	var index port.VectorIndex
	switch cfg.VectorBackend {
	case "postgres":
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		if err := pgStore.EnsureSchema(context.Background(), cfg.EmbeddingDimension); err != nil {
			slog.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
		index = store.NewPgVectorIndex(pgStore, cfg.EmbeddingDimension)
	default:
		index = store.NewMemoryIndex(0)
	}

	// ── AI provider ──────────────────────────────────────────────────────
	var provider port.AIProvider
	switch cfg.AIProvider {
	case "openai":
		provider = ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.GenerationModel)
	default:
		provider = ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.EmbeddingModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.GenerationModel,
				Token:   cfg.OllamaChatToken,
			},
		)
	}

	// ── Services ─────────────────────────────────────────────────────────
	processor := service.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkUnit)
	retrieval := service.NewRetrievalEngine(provider, index, cfg.TopKResults, cfg.SimilarityThreshold)
	synthesizer := service.NewSynthesizer(provider, cfg.Temperature, cfg.MaxTokens)
	conversations := store.NewConversationStore(cfg.MaxHistoryLength)

	queryService := service.NewQueryService(processor, retrieval, synthesizer, index, provider, conversations)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))

	// ── Routes ───────────────────────────────────────────────────────────
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": cfg.AppName,
			"version": version,
			"health":  "/health",
		})
	})

	jobTracker := handler.NewJobTracker()

	handler.NewHealthHandler(index, version).Register(app)
	handler.NewQueryHandler(queryService).Register(app)
	handler.NewSessionHandler(queryService).Register(app)
	handler.NewIngestHandler(queryService, jobTracker).Register(app)
	handler.NewJobsHandler(jobTracker).Register(app)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(queryService, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
