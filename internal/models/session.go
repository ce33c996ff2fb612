package models

import (
	"fmt"
	"time"
)

// SessionTokenLength is the hex length of an opaque session token (32 bytes)
const SessionTokenLength = 64

// Session is a server-side login session keyed by an opaque random token.
// Sessions are deactivated on logout, lockout or expiry, never deleted.
type Session struct {
	ID           string
	Token        string
	AccountID    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IPAddress    *string
	UserAgent    *string
	IsActive     bool
	LastActivity time.Time
}

// Valid reports whether the session is active and unexpired
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Validate checks structural invariants before a session row is written
func (s *Session) Validate() error {
	if len(s.Token) != SessionTokenLength {
		return fmt.Errorf("session token must be %d hex characters, got %d", SessionTokenLength, len(s.Token))
	}
	if s.AccountID == "" {
		return fmt.Errorf("session account id is required")
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return fmt.Errorf("session expiry must be after creation")
	}
	return nil
}
