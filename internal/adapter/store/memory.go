package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

// MemoryIndex is an in-memory vector index using brute-force cosine
// similarity. It is the default backend and the one used in tests; the
// Postgres/pgvector backend shares the same port.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.VectorRecord // keyed by chunk id
}

var _ port.VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index. A dimension of 0 means
// the index adopts the dimension of the first upserted vector.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		records:   make(map[string]domain.VectorRecord),
	}
}

// Upsert stores the records atomically. The batch is validated in full
// before any write, so a malformed vector never leaves the index partially
// updated. Re-upserting a chunk id replaces its prior vector.
func (m *MemoryIndex) Upsert(_ context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dimension
	if dim == 0 {
		dim = len(records[0].Embedding)
	}
	for _, r := range records {
		if len(r.Embedding) != dim {
			return fmt.Errorf("chunk %s: got dimension %d, want %d: %w",
				r.ChunkID, len(r.Embedding), dim, port.ErrDimensionMismatch)
		}
	}

	m.dimension = dim
	for _, r := range records {
		m.records[r.ChunkID] = r
	}
	return nil
}

// Query returns the topK most similar records, descending by cosine
// similarity with ties broken by ascending sequence index.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 || len(m.records) == 0 {
		return nil, nil
	}

	matches := make([]domain.Match, 0, len(m.records))
	for _, r := range m.records {
		matches = append(matches, domain.Match{Record: r, Score: cosine(vector, r.Embedding)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.SequenceIndex < matches[j].Record.SequenceIndex
	})

	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

// DeleteDocument removes every record belonging to the document.
func (m *MemoryIndex) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, id)
		}
	}
	return nil
}

// Stats reports the number of indexed documents and chunks.
func (m *MemoryIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, r := range m.records {
		docs[r.DocumentID] = struct{}{}
	}
	return domain.IndexStats{DocumentCount: len(docs), ChunkCount: len(m.records)}, nil
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
