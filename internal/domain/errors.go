package domain

import "fmt"

// InvalidDocumentError rejects malformed ingestion input locally. It is
// never retried.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return "invalid document: " + e.Reason
}

// IngestionError wraps an embedding or index failure during ingest. The
// affected document is rolled back; the index is never left partially
// written.
type IngestionError struct {
	DocumentID string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// ProviderUnavailableError marks an unreachable or timed-out external
// provider during a query. The query service converts it into a
// confidence-zero result instead of propagating it to the HTTP layer.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }
