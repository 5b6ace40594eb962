package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

// PgVectorIndex implements the vector index port on top of Postgres with
// the pgvector extension. Cosine distance via the <=> operator.
type PgVectorIndex struct {
	store     *PostgresStore
	dimension int
}

var _ port.VectorIndex = (*PgVectorIndex)(nil)

// NewPgVectorIndex creates a pgvector index backed by the given Postgres
// store.
func NewPgVectorIndex(store *PostgresStore, dimension int) *PgVectorIndex {
	return &PgVectorIndex{store: store, dimension: dimension}
}

// Upsert stores the records in one transaction. Either the whole batch
// commits or none of it does.
func (v *PgVectorIndex) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Embedding) != v.dimension {
			return fmt.Errorf("chunk %s: got dimension %d, want %d: %w",
				r.ChunkID, len(r.Embedding), v.dimension, port.ErrDimensionMismatch)
		}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, document_id, document_title, source_path, text, sequence_index, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		 ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			document_title = EXCLUDED.document_title,
			source_path = EXCLUDED.source_path,
			text = EXCLUDED.text,
			sequence_index = EXCLUDED.sequence_index,
			embedding = EXCLUDED.embedding`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ChunkID, r.DocumentID, r.DocumentTitle, r.SourcePath,
			r.Text, r.SequenceIndex, vectorToString(r.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", r.ChunkID, err)
		}
	}

	return tx.Commit()
}

// Query performs a cosine similarity search, descending by score with ties
// broken by ascending sequence index.
func (v *PgVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := `SELECT chunk_id, document_id, document_title, source_path, text, sequence_index,
	                 1 - (embedding <=> $1::vector) AS similarity
	          FROM chunks
	          ORDER BY embedding <=> $1::vector, sequence_index
	          LIMIT $2`

	rows, err := v.store.db.QueryContext(ctx, query, vectorToString(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query similar: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(
			&m.Record.ChunkID, &m.Record.DocumentID, &m.Record.DocumentTitle,
			&m.Record.SourcePath, &m.Record.Text, &m.Record.SequenceIndex, &m.Score,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteDocument deletes all chunks for a document.
func (v *PgVectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := v.store.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

// Stats counts indexed documents and chunks.
func (v *PgVectorIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	var stats domain.IndexStats
	err := v.store.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT document_id), COUNT(*) FROM chunks`,
	).Scan(&stats.DocumentCount, &stats.ChunkCount)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("index stats: %w", err)
	}
	return stats, nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
