package voicectl

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one recording attempt. Sessions are transient:
// they exist to correlate callbacks with the recording that produced
// them and are never persisted.
type Session struct {
	// ID uniquely identifies the recording attempt.
	ID string

	// StartedAt is when the microphone was acquired.
	StartedAt time.Time
}

// NewSession creates a session for a fresh recording attempt.
func NewSession() Session {
	return Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}
