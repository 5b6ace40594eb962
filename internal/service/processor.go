package service

import (
	"fmt"
	"unicode"

	"github.com/devpractices/qa-assistant/internal/domain"
)

// Chunk units.
const (
	UnitChar  = "char"
	UnitToken = "token"
)

// Processor splits documents into fixed-size overlapping chunks. It is a
// pure function of its input: the same document always yields the same
// chunks, and persistence is the caller's responsibility.
type Processor struct {
	chunkSize int
	overlap   int
	unit      string
}

// NewProcessor creates a processor. unit is "char" (positional boundaries)
// or "token" (boundaries never split mid-token).
func NewProcessor(chunkSize, overlap int, unit string) *Processor {
	if unit != UnitToken {
		unit = UnitChar
	}
	return &Processor{chunkSize: chunkSize, overlap: overlap, unit: unit}
}

// Process splits the document into chunks of chunkSize units with overlap
// units shared between consecutive chunks. Returns InvalidDocumentError for
// empty text or a misconfigured overlap.
func (p *Processor) Process(doc domain.Document) ([]domain.Chunk, error) {
	if doc.RawText == "" {
		return nil, &domain.InvalidDocumentError{Reason: "raw_text is empty"}
	}
	if p.chunkSize <= 0 {
		return nil, &domain.InvalidDocumentError{Reason: "chunk_size must be positive"}
	}
	if p.overlap >= p.chunkSize {
		return nil, &domain.InvalidDocumentError{
			Reason: fmt.Sprintf("chunk_overlap %d must be smaller than chunk_size %d", p.overlap, p.chunkSize),
		}
	}

	if p.unit == UnitToken {
		return p.chunkByTokens(doc), nil
	}
	return p.chunkByChars(doc), nil
}

// chunkByChars slices the text positionally: each chunk starts
// chunkSize-overlap characters after the previous one. Sizes and offsets
// count runes, never bytes, so a boundary cannot land inside a multi-byte
// character.
func (p *Processor) chunkByChars(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.RawText)
	step := p.chunkSize - p.overlap

	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			ID:            domain.ChunkID(doc.ID, len(chunks)),
			DocumentID:    doc.ID,
			Text:          string(runes[start:end]),
			StartOffset:   start,
			EndOffset:     end,
			SequenceIndex: len(chunks),
		})

		if end == len(runes) {
			break
		}
	}
	return chunks
}

// chunkByTokens packs whole tokens into chunks so a boundary never lands in
// the middle of a word. Offsets count runes, matching chunkByChars.
func (p *Processor) chunkByTokens(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.RawText)
	tokens := tokenize(runes)
	if len(tokens) == 0 {
		return nil
	}
	step := p.chunkSize - p.overlap

	var chunks []domain.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + p.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		first, last := tokens[start], tokens[end-1]
		chunks = append(chunks, domain.Chunk{
			ID:            domain.ChunkID(doc.ID, len(chunks)),
			DocumentID:    doc.ID,
			Text:          string(runes[first.start:last.end]),
			StartOffset:   first.start,
			EndOffset:     last.end,
			SequenceIndex: len(chunks),
		})

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

type tokenSpan struct {
	start, end int
}

// tokenize records the rune offsets of each whitespace-delimited token.
func tokenize(runes []rune) []tokenSpan {
	var spans []tokenSpan
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, tokenSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, tokenSpan{start: start, end: len(runes)})
	}
	return spans
}
