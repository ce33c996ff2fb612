package models

import "time"

// Failure reasons recorded with login attempts. These stay internal;
// callers only ever see the generic sentinel errors.
const (
	FailureUserNotFound     = "User not found"
	FailureAccountLocked    = "Account locked"
	FailureEmailNotVerified = "Email not verified"
	FailureInvalidPassword  = "Invalid password"
)

// LoginAttempt is one append-only audit record of a login attempt.
// Rows are written once and never updated, including attempts against
// email addresses with no matching account.
type LoginAttempt struct {
	ID            string
	Email         string // normalized, as submitted
	IPAddress     *string
	UserAgent     *string
	Success       bool
	AttemptedAt   time.Time
	FailureReason *string
}
