package port

import (
	"context"

	"github.com/devpractices/qa-assistant/internal/domain"
)

// VectorIndex stores chunk vectors and supports nearest-neighbour search.
// Ranking is by descending cosine similarity; ties are broken by ascending
// sequence index so results are deterministic.
type VectorIndex interface {
	// Upsert stores the records for one document atomically. Re-upserting a
	// chunk id replaces its prior vector; either the whole batch commits or
	// none of it does.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns the topK records most similar to the given vector.
	Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)

	// DeleteDocument removes every record belonging to the document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Stats reports the number of documents and chunks currently indexed.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
