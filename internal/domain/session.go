package domain

import "time"

// ConversationTurn is one question/answer exchange within a session.
type ConversationTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a conversation context identified by id. Turn history is
// bounded: once the configured maximum is reached the oldest turn is
// evicted first.
type Session struct {
	ID        string             `json:"session_id"`
	CreatedAt time.Time          `json:"created_at"`
	Turns     []ConversationTurn `json:"turns"`
}
