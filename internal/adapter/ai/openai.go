package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/devpractices/qa-assistant/internal/port"
)

// OpenAIProvider implements port.AIProvider against the OpenAI API (or any
// compatible endpoint via a custom base URL).
type OpenAIProvider struct {
	client     openai.Client
	embedModel string
	chatModel  string
}

var _ port.AIProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI-backed AI provider. baseURL may be
// empty to use the default API endpoint.
func NewOpenAIProvider(apiKey, baseURL, embedModel, chatModel string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:     openai.NewClient(opts...),
		embedModel: embedModel,
		chatModel:  chatModel,
	}
}

// ModelName returns the generation model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.chatModel
}

// EmbeddingModelName returns the embedding model identifier.
func (p *OpenAIProvider) EmbeddingModelName() string {
	return p.embedModel
}

// Embed generates a vector embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Generate produces a completion for the given system and user prompts.
func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, opts port.GenerateOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
