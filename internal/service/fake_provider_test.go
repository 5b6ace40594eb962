package service

import (
	"context"
	"sync"
	"unicode"

	"github.com/devpractices/qa-assistant/internal/port"
)

// fakeProvider is a deterministic in-process AIProvider for tests. Embeddings
// are letter-frequency vectors, so similar texts land close together and the
// same text always embeds identically. Generation returns a canned response
// and records the prompts it was given.
type fakeProvider struct {
	mu sync.Mutex

	embedErr    error
	generateErr error
	response    string

	embedCalls       int
	generateCalls    int
	lastSystemPrompt string
	lastUserPrompt   string
}

var _ port.AIProvider = (*fakeProvider)(nil)

func newFakeProvider(response string) *fakeProvider {
	return &fakeProvider{response: response}
}

func (f *fakeProvider) ModelName() string          { return "fake-chat" }
func (f *fakeProvider) EmbeddingModelName() string { return "fake-embed" }

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return letterFrequency(text), nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (f *fakeProvider) Generate(_ context.Context, systemPrompt, userPrompt string, _ port.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generateCalls++
	f.lastSystemPrompt = systemPrompt
	f.lastUserPrompt = userPrompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.response, nil
}

func letterFrequency(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}
