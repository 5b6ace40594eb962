package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpractices/qa-assistant/internal/domain"
)

func match(seq int, text string, score float64) domain.Match {
	return domain.Match{
		Record: domain.VectorRecord{
			ChunkID:       domain.ChunkID("doc1", seq),
			DocumentID:    "doc1",
			DocumentTitle: "Testing",
			SourcePath:    "docs/testing.md",
			Text:          text,
			SequenceIndex: seq,
		},
		Score: score,
	}
}

func TestSynthesizer_DeclinesWithoutMatches(t *testing.T) {
	ai := newFakeProvider("should never be returned")
	s := NewSynthesizer(ai, 0.1, 1000)

	result, err := s.Synthesize(context.Background(), "What is TDD?", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, declineAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, domain.StateCompleted, result.State)

	// Declining is a local decision; the model must not be called.
	assert.Zero(t, ai.generateCalls)
}

func TestSynthesizer_ExtractsCitedSources(t *testing.T) {
	ai := newFakeProvider("TDD means writing tests first [S1]. Coverage is secondary [S3].")
	s := NewSynthesizer(ai, 0.1, 1000)

	matches := []domain.Match{
		match(0, "TDD is writing tests before code.", 0.92),
		match(1, "CI runs the suite on every push.", 0.85),
		match(2, "Coverage measures executed lines.", 0.80),
	}
	result, err := s.Synthesize(context.Background(), "What is TDD?", matches, nil)
	require.NoError(t, err)

	// Only the chunks the model referenced, in retrieval order.
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "TDD is writing tests before code.", result.Sources[0].Excerpt)
	assert.Equal(t, "Coverage measures executed lines.", result.Sources[1].Excerpt)
	assert.Equal(t, "docs/testing.md", result.Sources[0].SourcePath)
	assert.Equal(t, "Testing", result.Sources[0].DocumentTitle)
}

func TestSynthesizer_IgnoresOutOfRangeMarkers(t *testing.T) {
	ai := newFakeProvider("Some answer [S0] [S5] [S99].")
	s := NewSynthesizer(ai, 0.1, 1000)

	result, err := s.Synthesize(context.Background(), "q",
		[]domain.Match{match(0, "only chunk", 0.9)}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestSynthesizer_ConfidenceRewardsCitedAnswers(t *testing.T) {
	matches := []domain.Match{match(0, "TDD is writing tests before code.", 0.9)}

	cited := NewSynthesizer(newFakeProvider("Tests come first [S1]."), 0.1, 1000)
	citedResult, err := cited.Synthesize(context.Background(), "q", matches, nil)
	require.NoError(t, err)

	uncited := NewSynthesizer(newFakeProvider("Tests come first."), 0.1, 1000)
	uncitedResult, err := uncited.Synthesize(context.Background(), "q", matches, nil)
	require.NoError(t, err)

	assert.Greater(t, citedResult.Confidence, uncitedResult.Confidence)
	assert.InDelta(t, 0.6*0.9+0.3+0.1, citedResult.Confidence, 1e-9)
	assert.InDelta(t, 0.6*0.9+0.1, uncitedResult.Confidence, 1e-9)
}

func TestSynthesizer_ConfidencePenalizesHedging(t *testing.T) {
	matches := []domain.Match{match(0, "chunk", 0.9)}

	hedged := NewSynthesizer(newFakeProvider("I'm not sure, the context does not contain that [S1]."), 0.1, 1000)
	hedgedResult, err := hedged.Synthesize(context.Background(), "q", matches, nil)
	require.NoError(t, err)

	confident := NewSynthesizer(newFakeProvider("It works like this [S1]."), 0.1, 1000)
	confidentResult, err := confident.Synthesize(context.Background(), "q", matches, nil)
	require.NoError(t, err)

	assert.Less(t, hedgedResult.Confidence, confidentResult.Confidence)
}

func TestSynthesizer_ConfidenceStaysInRange(t *testing.T) {
	for _, score := range []float64{-0.5, 0, 0.3, 0.7, 1.0, 1.5} {
		for _, cited := range []bool{true, false} {
			for _, hedging := range []bool{true, false} {
				c := confidence(score, cited, hedging)
				assert.GreaterOrEqual(t, c, 0.0)
				assert.LessOrEqual(t, c, 1.0)
			}
		}
	}
}

func TestSynthesizer_PromptContainsHistoryAndExcerpts(t *testing.T) {
	ai := newFakeProvider("An answer [S1].")
	s := NewSynthesizer(ai, 0.1, 1000)

	history := []domain.ConversationTurn{
		{Question: "What is TDD?", Answer: "Writing tests first.", Timestamp: time.Now()},
		{Question: "And BDD?", Answer: "Behaviour specs.", Timestamp: time.Now()},
	}
	matches := []domain.Match{match(0, "TDD is writing tests before code.", 0.9)}

	_, err := s.Synthesize(context.Background(), "How do they differ?", matches, history)
	require.NoError(t, err)

	prompt := ai.lastUserPrompt
	assert.Contains(t, prompt, "User: What is TDD?")
	assert.Contains(t, prompt, "Assistant: Writing tests first.")
	assert.Contains(t, prompt, "[S1] (docs/testing.md — Testing)")
	assert.Contains(t, prompt, "TDD is writing tests before code.")
	assert.Contains(t, prompt, "Question: How do they differ?")

	// History is rendered oldest first.
	assert.Less(t, strings.Index(prompt, "What is TDD?"), strings.Index(prompt, "And BDD?"))
}

func TestSynthesizer_GenerateFailure(t *testing.T) {
	ai := newFakeProvider("")
	ai.generateErr = errors.New("model timeout")
	s := NewSynthesizer(ai, 0.1, 1000)

	_, err := s.Synthesize(context.Background(), "q",
		[]domain.Match{match(0, "chunk", 0.9)}, nil)

	var provErr *domain.ProviderUnavailableError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "generation", provErr.Provider)
}

func TestSynthesizer_MultiByteExcerptStaysValidUTF8(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	s := NewSynthesizer(ai, 0.1, 1000)

	long := strings.Repeat("—", excerptLength+50) // 3-byte runes
	result, err := s.Synthesize(context.Background(), "q",
		[]domain.Match{match(0, long, 0.9)}, nil)
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	got := result.Sources[0].Excerpt
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, excerptLength+3, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSynthesizer_LongExcerptTruncated(t *testing.T) {
	ai := newFakeProvider("Answer [S1].")
	s := NewSynthesizer(ai, 0.1, 1000)

	long := strings.Repeat("x", excerptLength+50)
	result, err := s.Synthesize(context.Background(), "q",
		[]domain.Match{match(0, long, 0.9)}, nil)
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Len(t, result.Sources[0].Excerpt, excerptLength+3)
	assert.True(t, strings.HasSuffix(result.Sources[0].Excerpt, "..."))
}
