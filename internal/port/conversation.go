package port

import "github.com/devpractices/qa-assistant/internal/domain"

// ConversationStore holds per-session turn history with bounded length.
// Appends within one session are serialized; different sessions proceed
// independently. Eviction is FIFO: the oldest turn is dropped first.
type ConversationStore interface {
	// GetSession returns the session with the given id, creating it when
	// absent. The returned session is a copy; mutating it does not affect
	// the store.
	GetSession(id string) domain.Session

	// AppendTurn records a completed exchange, evicting the oldest turn if
	// the history bound is reached.
	AppendTurn(id string, turn domain.ConversationTurn)

	// Clear removes the session entirely. Returns ErrSessionNotFound when
	// the id is unknown.
	Clear(id string) error

	// Count returns the number of live sessions.
	Count() int
}
