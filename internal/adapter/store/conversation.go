package store

import (
	"sync"
	"time"

	"github.com/devpractices/qa-assistant/internal/domain"
	"github.com/devpractices/qa-assistant/internal/port"
)

// ConversationStore keeps per-session turn history in memory. Each session
// is a fixed-capacity ring buffer, so FIFO eviction is O(1) per append and
// the history bound holds by construction. Appends within one session are
// serialized by a per-session mutex; sessions are independent.
type ConversationStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu        sync.Mutex
	createdAt time.Time
	turns     []domain.ConversationTurn // ring buffer, len == maxTurns
	start     int
	count     int
}

var _ port.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates a store whose sessions hold at most maxTurns
// turns each.
func NewConversationStore(maxTurns int) *ConversationStore {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	return &ConversationStore{
		maxTurns: maxTurns,
		sessions: make(map[string]*sessionEntry),
	}
}

// GetSession returns a copy of the session, creating it when absent. Turns
// are ordered oldest first.
func (s *ConversationStore) GetSession(id string) domain.Session {
	entry := s.getOrCreate(id)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	turns := make([]domain.ConversationTurn, 0, entry.count)
	for i := 0; i < entry.count; i++ {
		turns = append(turns, entry.turns[(entry.start+i)%s.maxTurns])
	}
	return domain.Session{ID: id, CreatedAt: entry.createdAt, Turns: turns}
}

// AppendTurn records a completed exchange, evicting the oldest turn once
// the bound is reached.
func (s *ConversationStore) AppendTurn(id string, turn domain.ConversationTurn) {
	entry := s.getOrCreate(id)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count < s.maxTurns {
		entry.turns[(entry.start+entry.count)%s.maxTurns] = turn
		entry.count++
		return
	}
	entry.turns[entry.start] = turn
	entry.start = (entry.start + 1) % s.maxTurns
}

// Clear removes the session entirely.
func (s *ConversationStore) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return port.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (s *ConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *ConversationStore) getOrCreate(id string) *sessionEntry {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.sessions[id]; ok {
		return entry
	}
	entry = &sessionEntry{
		createdAt: time.Now().UTC(),
		turns:     make([]domain.ConversationTurn, s.maxTurns),
	}
	s.sessions[id] = entry
	return entry
}
