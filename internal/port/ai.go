package port

import "context"

// GenerateOptions configures a single generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// AIProvider abstracts the embedding and generation backends. Implementations
// can target Ollama, OpenAI, or any compatible API; retrieval and synthesis
// never depend on a concrete vendor.
type AIProvider interface {
	// ModelName returns the identifier of the generation model being used.
	ModelName() string

	// EmbeddingModelName returns the identifier of the embedding model.
	EmbeddingModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Generate produces a completion for the given system and user prompts.
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
}
