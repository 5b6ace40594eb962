package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

// RetrievalEngine embeds a query and finds the chunks most similar to it.
type RetrievalEngine struct {
	ai        port.AIProvider
	index     port.VectorIndex
	topK      int
	threshold float64
}

// NewRetrievalEngine creates a retrieval engine with the given top-k and
// similarity threshold.
func NewRetrievalEngine(ai port.AIProvider, index port.VectorIndex, topK int, threshold float64) *RetrievalEngine {
	return &RetrievalEngine{ai: ai, index: index, topK: topK, threshold: threshold}
}

// Retrieve embeds the query, fetches the top-k candidates and filters out
// everything below the similarity threshold. An empty result is a normal
// outcome, not an error: it means nothing in the knowledge base is relevant
// enough, and the synthesizer declines to answer rather than hallucinate.
// Results preserve descending similarity order.
func (r *RetrievalEngine) Retrieve(ctx context.Context, queryText string) ([]domain.Match, error) {
	vector, err := r.ai.Embed(ctx, queryText)
	if err != nil {
		return nil, &domain.ProviderUnavailableError{Provider: "embedding", Err: err}
	}

	candidates, err := r.index.Query(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := candidates[:0]
	for _, m := range candidates {
		if m.Score >= r.threshold {
			matches = append(matches, m)
		}
	}

	slog.Debug("retrieval complete",
		"candidates", len(candidates),
		"above_threshold", len(matches),
		"threshold", r.threshold,
	)
	return matches, nil
}
