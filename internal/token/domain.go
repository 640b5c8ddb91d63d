package token

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates long session states. Stored status only ever
// moves active -> revoked; expiry is derived from the clock, not stored.
type SessionStatus string

const (
	// SessionActive marks a usable session.
	SessionActive SessionStatus = "active"
	// SessionRevoked marks a session invalidated by logout.
	SessionRevoked SessionStatus = "revoked"
	// SessionExpired is written by the background sweep for bookkeeping;
	// validation never relies on it.
	SessionExpired SessionStatus = "expired"
)

// LongSession is the durable, revocable credential created at login. It is
// used only to mint short-lived access tokens.
type LongSession struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	Device    string
	IP        string
	Status    SessionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session is past its absolute lifetime.
func (s *LongSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
