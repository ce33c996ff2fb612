package models

import (
	"fmt"
	"strings"
	"time"
)

// AccountStatus tracks where an account sits in its lifecycle
type AccountStatus string

const (
	StatusActive              AccountStatus = "active"
	StatusLocked              AccountStatus = "locked"
	StatusExpired             AccountStatus = "expired"
	StatusPendingVerification AccountStatus = "pending_verification"
)

// AllAccountStatuses is the whitelist of valid account statuses
var AllAccountStatuses = map[AccountStatus]bool{
	StatusActive:              true,
	StatusLocked:              true,
	StatusExpired:             true,
	StatusPendingVerification: true,
}

// ParseAccountStatus validates a raw status string against the whitelist
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(s)
	if !AllAccountStatuses[status] {
		return "", fmt.Errorf("invalid account status %q", s)
	}
	return status, nil
}

func (s AccountStatus) Valid() bool {
	return AllAccountStatuses[s]
}

func (s AccountStatus) String() string {
	return string(s)
}

const (
	// PasswordHashLength is the hex length of a stored password digest (32 bytes)
	PasswordHashLength = 64
	// SaltLength is the hex length of a stored salt (16 bytes)
	SaltLength = 32
	// VerificationTokenLength is the hex length of an email verification token
	VerificationTokenLength = 32
)

// Account stores the credentials and lockout state for a single user.
// Plaintext passwords never appear here; only the salted digest is kept.
type Account struct {
	ID                string
	Email             string // normalized (trimmed, lowercased) before storage
	DisplayName       string
	PasswordHash      string // hex, PasswordHashLength chars
	Salt              string // hex, SaltLength chars
	Status            AccountStatus
	FailedAttempts    int
	LockedUntil       *time.Time // set exactly when Status is StatusLocked
	EmailVerified     bool
	VerificationToken *string
	PasswordChangedAt time.Time
	CreatedAt         time.Time
	LastLogin         *time.Time
}

// NormalizeEmail lowercases and trims an address so case variants of the
// same mailbox collide on the unique email column.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks structural invariants before an account row is written
func (a *Account) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(a.Email, "@") {
		return fmt.Errorf("email is invalid")
	}
	if a.Email != NormalizeEmail(a.Email) {
		return fmt.Errorf("email must be normalized")
	}
	if len(a.PasswordHash) != PasswordHashLength {
		return fmt.Errorf("password hash must be %d hex characters, got %d", PasswordHashLength, len(a.PasswordHash))
	}
	if len(a.Salt) != SaltLength {
		return fmt.Errorf("salt must be %d hex characters, got %d", SaltLength, len(a.Salt))
	}
	if !a.Status.Valid() {
		return fmt.Errorf("invalid account status %q", a.Status)
	}
	if a.FailedAttempts < 0 {
		return fmt.Errorf("failed attempts cannot be negative")
	}
	if (a.Status == StatusLocked) != (a.LockedUntil != nil) {
		return fmt.Errorf("locked_until must be set exactly when status is locked")
	}
	return nil
}

// LockedNow reports whether the account is under a lock that has not expired
func (a *Account) LockedNow(now time.Time) bool {
	return a.Status == StatusLocked && a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Sanitized returns a copy with the credential material stripped, safe to
// hand to callers outside the engine.
func (a *Account) Sanitized() *Account {
	clean := *a
	clean.PasswordHash = ""
	clean.Salt = ""
	clean.VerificationToken = nil
	return &clean
}
