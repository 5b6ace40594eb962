package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
