package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

const systemPrompt = `You are a knowledge-base assistant for software delivery practices: SDLC, testing strategy, CI/CD, and engineering metrics.
Answer the question using only the provided context excerpts.
Each excerpt is tagged with a marker like [S1]. When your answer draws on an excerpt, cite its marker inline, e.g. "TDD means writing tests first [S1]."
If the context does not contain the answer, say you don't know instead of guessing.`

const declineAnswer = "I don't have enough information in the knowledge base to answer that. " +
	"Try rephrasing the question or ingesting the relevant documentation first."

// citationMarker matches source markers such as [S1] in model output.
var citationMarker = regexp.MustCompile(`\[S(\d+)\]`)

// hedgingPhrases indicate the model is uncertain about its own answer.
var hedgingPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"cannot find",
	"can't find",
	"no information",
	"not mentioned",
	"unclear from the context",
	"does not contain",
}

const excerptLength = 200

// Synthesizer builds a grounded prompt from retrieved chunks and
// conversation history, invokes the generation model exactly once, and
// post-processes the output into an answer with citations and a confidence
// score. All logic around the single model call is deterministic.
type Synthesizer struct {
	ai          port.AIProvider
	temperature float64
	maxTokens   int
}

// NewSynthesizer creates a synthesizer using the given provider and
// generation settings.
func NewSynthesizer(ai port.AIProvider, temperature float64, maxTokens int) *Synthesizer {
	return &Synthesizer{ai: ai, temperature: temperature, maxTokens: maxTokens}
}

// Synthesize produces a QueryResult for the question. With no matches it
// declines locally — no model call, empty citations, confidence 0. The
// history is rendered oldest first.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, matches []domain.Match, history []domain.ConversationTurn) (domain.QueryResult, error) {
	now := time.Now().UTC()

	if len(matches) == 0 {
		return domain.QueryResult{
			Answer:     declineAnswer,
			Sources:    []domain.Citation{},
			Confidence: 0,
			State:      domain.StateCompleted,
			Timestamp:  now,
		}, nil
	}

	raw, err := s.ai.Generate(ctx, systemPrompt, buildUserPrompt(question, matches, history), port.GenerateOptions{
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return domain.QueryResult{}, &domain.ProviderUnavailableError{Provider: "generation", Err: err}
	}

	answer, cited := extractCitations(raw, matches)
	return domain.QueryResult{
		Answer:     answer,
		Sources:    cited,
		Confidence: confidence(matches[0].Score, len(cited) > 0, hasHedging(answer)),
		State:      domain.StateCompleted,
		Timestamp:  now,
	}, nil
}

// buildUserPrompt assembles conversation history (oldest first), the tagged
// context excerpts, and the question.
func buildUserPrompt(question string, matches []domain.Match, history []domain.ConversationTurn) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Question, t.Answer)
		}
		b.WriteString("\n")
	}

	b.WriteString("Context excerpts:\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "[S%d] (%s — %s)\n%s\n\n",
			i+1, m.Record.SourcePath, m.Record.DocumentTitle, m.Record.Text)
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// extractCitations keeps only the chunks the model actually referenced via
// their [Sn] markers and strips nothing from the answer text. Citations
// preserve retrieval order.
func extractCitations(answer string, matches []domain.Match) (string, []domain.Citation) {
	referenced := make(map[int]bool)
	for _, m := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(matches) {
			referenced[n-1] = true
		}
	}

	cited := []domain.Citation{}
	for i, m := range matches {
		if !referenced[i] {
			continue
		}
		cited = append(cited, domain.Citation{
			Excerpt:       excerpt(m.Record.Text),
			SourcePath:    m.Record.SourcePath,
			DocumentTitle: m.Record.DocumentTitle,
		})
	}
	return strings.TrimSpace(answer), cited
}

// excerpt truncates to excerptLength runes, never cutting a multi-byte
// character in half.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return string(runes[:excerptLength]) + "..."
}

func hasHedging(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// confidence combines the top similarity score with whether the answer is
// grounded (cites at least one chunk) and free of hedging language. It
// approaches 1 only for a high-similarity, cited, confident answer, and is
// exactly 0 when retrieval came back empty (handled before generation).
func confidence(topScore float64, cited, hedging bool) float64 {
	if topScore < 0 {
		topScore = 0
	}
	if topScore > 1 {
		topScore = 1
	}

	c := 0.6 * topScore
	if cited {
		c += 0.3
	}
	if !hedging {
		c += 0.1
	}

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
