package domain

import "time"

// QueryState tracks a single query through the pipeline. Failed is terminal
// and reachable from any step.
type QueryState string

const (
	StateReceived     QueryState = "received"
	StateEmbedding    QueryState = "embedding"
	StateRetrieving   QueryState = "retrieving"
	StateSynthesizing QueryState = "synthesizing"
	StateCompleted    QueryState = "completed"
	StateFailed       QueryState = "failed"
)

// Citation links a generated answer back to the source chunk it was
// grounded in.
type Citation struct {
	Excerpt       string `json:"content"`
	SourcePath    string `json:"source"`
	DocumentTitle string `json:"document_title"`
}

// QueryResult is the outcome of one query: the answer, the citations that
// ground it, and a confidence score in [0,1].
type QueryResult struct {
	Answer     string     `json:"answer"`
	Sources    []Citation `json:"sources"`
	Confidence float64    `json:"confidence"`
	SessionID  string     `json:"session_id,omitempty"`
	State      QueryState `json:"-"`
	Timestamp  time.Time  `json:"timestamp"`
}
