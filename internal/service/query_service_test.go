package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpractices/qa-assistant/internal/adapter/store"
	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

func newTestService(ai *fakeProvider, threshold float64) (*QueryService, *store.MemoryIndex) {
	idx := store.NewMemoryIndex(0)
	return NewQueryService(
		NewProcessor(1000, 200, UnitChar),
		NewRetrievalEngine(ai, idx, 3, threshold),
		NewSynthesizer(ai, 0.1, 1000),
		idx,
		ai,
		store.NewConversationStore(5),
	), idx
}

func ingestText(t *testing.T, svc *QueryService, path, text string) domain.Document {
	t.Helper()
	doc := domain.Document{
		ID:         domain.DocumentID(path, text),
		SourcePath: path,
		RawText:    text,
		Title:      "Testing Guide",
	}
	require.NoError(t, svc.Ingest(context.Background(), doc))
	return doc
}

func TestQueryService_GroundedAnswer(t *testing.T) {
	ai := newFakeProvider("TDD means writing tests before the code [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	result, err := svc.Query(context.Background(), "What is TDD?", "")
	require.NoError(t, err)

	assert.Equal(t, "TDD means writing tests before the code [S1].", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "docs/tdd.md", result.Sources[0].SourcePath)
	assert.Greater(t, result.Confidence, 0.5)
	assert.Equal(t, domain.StateCompleted, result.State)
}

func TestQueryService_DeclinesOnEmptyKnowledgeBase(t *testing.T) {
	ai := newFakeProvider("should never be generated")
	svc, _ := newTestService(ai, 0.7)

	result, err := svc.Query(context.Background(), "What is TDD?", "")
	require.NoError(t, err)

	assert.Equal(t, declineAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.Confidence)
	assert.Zero(t, ai.generateCalls)
}

func TestQueryService_EmptyQuestionRejected(t *testing.T) {
	ai := newFakeProvider("")
	svc, _ := newTestService(ai, 0.7)

	_, err := svc.Query(context.Background(), "", "s1")

	var invalid *domain.InvalidDocumentError
	require.ErrorAs(t, err, &invalid)
}

func TestQueryService_SessionHistoryFlowsIntoPrompt(t *testing.T) {
	ai := newFakeProvider("TDD means writing tests before the code [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	first, err := svc.Query(context.Background(), "What is TDD?", "s1")
	require.NoError(t, err)

	ai.response = "It catches regressions early [S1]."
	_, err = svc.Query(context.Background(), "Why do it that way?", "s1")
	require.NoError(t, err)

	// The second prompt carries the first exchange as conversation history.
	assert.Contains(t, ai.lastUserPrompt, "User: What is TDD?")
	assert.Contains(t, ai.lastUserPrompt, "Assistant: "+first.Answer)
	assert.Contains(t, ai.lastUserPrompt, "Question: Why do it that way?")
}

func TestQueryService_StatelessQueryRecordsNothing(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	_, err := svc.Query(context.Background(), "What is TDD?", "")
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.SessionCount)
}

func TestQueryService_FailedSynthesisLeavesHistoryClean(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	ai.generateErr = errors.New("model down")
	result, err := svc.Query(context.Background(), "What is TDD?", "s1")

	// Provider failures surface as a failed result, not an error.
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, result.State)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Sources)

	// The failed exchange must not appear in history.
	assert.Empty(t, svc.CreateSession("s1").Turns)
}

func TestQueryService_EmbedFailureYieldsFailedResult(t *testing.T) {
	ai := newFakeProvider("")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	ai.embedErr = errors.New("connection refused")
	result, err := svc.Query(context.Background(), "What is TDD?", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, result.State)
	assert.Zero(t, result.Confidence)
}

func TestQueryService_IngestIdempotent(t *testing.T) {
	ai := newFakeProvider("")
	svc, _ := newTestService(ai, 0.7)
	ctx := context.Background()

	doc := ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")
	before, err := svc.Stats(ctx)
	require.NoError(t, err)

	// Same content hashes to the same ids; re-ingesting changes nothing.
	require.NoError(t, svc.Ingest(ctx, doc))
	after, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, before.DocumentCount, after.DocumentCount)
	assert.Equal(t, before.ChunkCount, after.ChunkCount)
}

func TestQueryService_IngestEmbedFailure(t *testing.T) {
	ai := newFakeProvider("")
	ai.embedErr = errors.New("connection refused")
	svc, _ := newTestService(ai, 0.7)

	doc := domain.Document{
		ID:         domain.DocumentID("docs/tdd.md", "TDD is writing tests first."),
		SourcePath: "docs/tdd.md",
		RawText:    "TDD is writing tests first.",
	}
	err := svc.Ingest(context.Background(), doc)

	var ingErr *domain.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, doc.ID, ingErr.DocumentID)

	// Nothing was indexed.
	stats, statsErr := svc.Stats(context.Background())
	require.NoError(t, statsErr)
	assert.Zero(t, stats.ChunkCount)
}

func TestQueryService_RemoveDocument(t *testing.T) {
	ai := newFakeProvider("")
	svc, _ := newTestService(ai, 0.7)
	ctx := context.Background()

	doc := ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")
	require.NoError(t, svc.RemoveDocument(ctx, doc.ID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentCount)
	assert.Zero(t, stats.ChunkCount)
}

func TestQueryService_Search(t *testing.T) {
	ai := newFakeProvider("")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	matches, err := svc.Search(context.Background(), "What is TDD?")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "docs/tdd.md", matches[0].Record.SourcePath)

	// Retrieval only: generation is never invoked.
	assert.Zero(t, ai.generateCalls)

	_, err = svc.Search(context.Background(), "")
	var invalid *domain.InvalidDocumentError
	require.ErrorAs(t, err, &invalid)
}

func TestQueryService_ClearSession(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	_, err := svc.Query(context.Background(), "What is TDD?", "s1")
	require.NoError(t, err)
	require.NotEmpty(t, svc.CreateSession("s1").Turns)

	require.NoError(t, svc.ClearSession("s1"))
	assert.ErrorIs(t, svc.ClearSession("unknown"), port.ErrSessionNotFound)
}

func TestQueryService_Stats(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	svc, _ := newTestService(ai, 0.7)
	ingestText(t, svc, "docs/tdd.md", "TDD is writing tests first.")

	_, err := svc.Query(context.Background(), "What is TDD?", "s1")
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 1, stats.ChunkCount)
	assert.Equal(t, 1, stats.SessionCount)
	assert.Equal(t, "fake-embed", stats.EmbeddingModel)
	assert.Equal(t, "fake-chat", stats.GenerationModel)
}
