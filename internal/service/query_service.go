package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

// Stats summarizes the state of the knowledge base.
type Stats struct {
	DocumentCount   int    `json:"document_count"`
	ChunkCount      int    `json:"chunk_count"`
	SessionCount    int    `json:"session_count"`
	EmbeddingModel  string `json:"embedding_model"`
	GenerationModel string `json:"generation_model"`
}

// QueryService is the façade over the RAG pipeline: it orchestrates
// retrieval, conversation history, and synthesis per request, and document
// processing plus indexing per ingestion.
type QueryService struct {
	processor     *Processor
	retrieval     *RetrievalEngine
	synthesizer   *Synthesizer
	index         port.VectorIndex
	ai            port.AIProvider
	conversations port.ConversationStore

	// ingestMu serializes concurrent ingestions of the same document id
	// (last committed wins); different documents proceed in parallel.
	ingestMu sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewQueryService wires the pipeline components together.
func NewQueryService(
	processor *Processor,
	retrieval *RetrievalEngine,
	synthesizer *Synthesizer,
	index port.VectorIndex,
	ai port.AIProvider,
	conversations port.ConversationStore,
) *QueryService {
	return &QueryService{
		processor:     processor,
		retrieval:     retrieval,
		synthesizer:   synthesizer,
		index:         index,
		ai:            ai,
		conversations: conversations,
		inflight:      make(map[string]*sync.Mutex),
	}
}

// Ingest chunks, embeds, and indexes one document. The operation is atomic
// per document: an embedding or index failure rolls the document back and
// surfaces as IngestionError. Re-ingesting identical content is idempotent
// because document and chunk ids are content hashes.
func (s *QueryService) Ingest(ctx context.Context, doc domain.Document) error {
	chunks, err := s.processor.Process(doc)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return &domain.InvalidDocumentError{Reason: "document produced no chunks"}
	}

	lock := s.documentLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.ai.EmbedBatch(ctx, texts)
	if err != nil {
		return &domain.IngestionError{DocumentID: doc.ID, Err: fmt.Errorf("embed chunks: %w", err)}
	}
	if len(vectors) != len(chunks) {
		return &domain.IngestionError{
			DocumentID: doc.ID,
			Err:        fmt.Errorf("embedded %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			DocumentTitle: doc.Title,
			SourcePath:    doc.SourcePath,
			Text:          c.Text,
			SequenceIndex: c.SequenceIndex,
			Embedding:     vectors[i],
		}
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return &domain.IngestionError{DocumentID: doc.ID, Err: err}
	}

	slog.Info("document ingested",
		"document_id", doc.ID,
		"source", doc.SourcePath,
		"chunks", len(chunks),
	)
	return nil
}

// RemoveDocument deletes a document's chunks from the index.
func (s *QueryService) RemoveDocument(ctx context.Context, documentID string) error {
	lock := s.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()
	return s.index.DeleteDocument(ctx, documentID)
}

// Query answers a question. With an empty sessionID the call is stateless:
// no history is read and no turn is recorded. With a session, history is
// read before synthesis and the new turn is appended only after a
// successful synthesis, so a failed query never pollutes history.
//
// Provider failures do not propagate: they yield a well-formed failed
// result with confidence 0, because the condition is recoverable by the
// caller rephrasing or retrying.
func (s *QueryService) Query(ctx context.Context, question, sessionID string) (domain.QueryResult, error) {
	if question == "" {
		return domain.QueryResult{}, &domain.InvalidDocumentError{Reason: "question is empty"}
	}

	state := domain.StateReceived
	slog.Info("query received", "session_id", sessionID, "question", truncate(question, 80))

	var history []domain.ConversationTurn
	if sessionID != "" {
		history = s.conversations.GetSession(sessionID).Turns
	}

	state = domain.StateEmbedding
	matches, err := s.retrieval.Retrieve(ctx, question)
	if err != nil {
		// Embedding failures carry a provider error; anything else came
		// from the index lookup.
		var provErr *domain.ProviderUnavailableError
		if !errors.As(err, &provErr) {
			state = domain.StateRetrieving
		}
		return s.failedResult(sessionID, state, err), nil
	}

	state = domain.StateSynthesizing
	result, err := s.synthesizer.Synthesize(ctx, question, matches, history)
	if err != nil {
		return s.failedResult(sessionID, state, err), nil
	}
	result.SessionID = sessionID

	if sessionID != "" {
		s.conversations.AppendTurn(sessionID, domain.ConversationTurn{
			Question:  question,
			Answer:    result.Answer,
			Timestamp: result.Timestamp,
		})
	}

	slog.Info("query completed",
		"session_id", sessionID,
		"sources", len(result.Sources),
		"confidence", result.Confidence,
	)
	return result, nil
}

// Search runs retrieval alone: embed the query, return the chunks above the
// similarity threshold. No generation, no session involvement.
func (s *QueryService) Search(ctx context.Context, query string) ([]domain.Match, error) {
	if query == "" {
		return nil, &domain.InvalidDocumentError{Reason: "query is empty"}
	}
	return s.retrieval.Retrieve(ctx, query)
}

// CreateSession returns the session for the given id, creating it when
// absent.
func (s *QueryService) CreateSession(id string) domain.Session {
	return s.conversations.GetSession(id)
}

// ClearSession removes a session's history. Unknown ids return
// port.ErrSessionNotFound.
func (s *QueryService) ClearSession(id string) error {
	return s.conversations.Clear(id)
}

// Stats reports knowledge-base counters and the configured models.
func (s *QueryService) Stats(ctx context.Context) (Stats, error) {
	idx, err := s.index.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		DocumentCount:   idx.DocumentCount,
		ChunkCount:      idx.ChunkCount,
		SessionCount:    s.conversations.Count(),
		EmbeddingModel:  s.ai.EmbeddingModelName(),
		GenerationModel: s.ai.ModelName(),
	}, nil
}

// failedResult converts a provider failure into a well-formed result. The
// conversation store is untouched: no partial turn is recorded.
func (s *QueryService) failedResult(sessionID string, state domain.QueryState, err error) domain.QueryResult {
	slog.Error("query failed", "session_id", sessionID, "state", state, "error", err)

	answer := "The assistant is temporarily unable to answer. Please try again shortly."
	var provErr *domain.ProviderUnavailableError
	if !errors.As(err, &provErr) {
		answer = "The question could not be processed. Please try rephrasing it."
	}

	return domain.QueryResult{
		Answer:     answer,
		Sources:    []domain.Citation{},
		Confidence: 0,
		SessionID:  sessionID,
		State:      domain.StateFailed,
		Timestamp:  time.Now().UTC(),
	}
}

// documentLock returns the mutex guarding one document id.
func (s *QueryService) documentLock(documentID string) *sync.Mutex {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	lock, ok := s.inflight[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.inflight[documentID] = lock
	}
	return lock
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
