package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document is a unit of ingested source material. Documents are immutable
// once stored and identified by a stable content hash, so re-ingesting the
// same content is idempotent.
type Document struct {
	ID         string    `json:"id"          db:"id"`
	SourcePath string    `json:"source_path" db:"source_path"`
	RawText    string    `json:"-"           db:"raw_text"`
	Title      string    `json:"title"       db:"title"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Chunk is a bounded slice of a Document used as the unit of retrieval.
// Chunks are derived deterministically by the processor and owned by their
// Document: re-ingesting a Document replaces all of its chunks.
type Chunk struct {
	ID            string `json:"id"             db:"id"`
	DocumentID    string `json:"document_id"    db:"document_id"`
	Text          string `json:"text"           db:"text"`
	StartOffset   int    `json:"start_offset"   db:"start_offset"`
	EndOffset     int    `json:"end_offset"     db:"end_offset"`
	SequenceIndex int    `json:"sequence_index" db:"sequence_index"`
}

// DocumentID derives the stable content-hash identifier for a document.
// The source path participates so two distinct files with identical text
// remain distinct documents.
func DocumentID(sourcePath, rawText string) string {
	h := sha256.New()
	h.Write([]byte(sourcePath))
	h.Write([]byte{0})
	h.Write([]byte(rawText))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// ChunkID builds the deterministic chunk identifier for a document and
// sequence index.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%d", documentID, seq)
}
