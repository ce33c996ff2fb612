package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Authentication failures surfaced to callers. Exactly these user-facing
// variants exist; the precise reason goes to the login attempt log only.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrEmailNotVerified   = errors.New("please verify your email address before logging in")
)

// Account and role management errors
var (
	ErrEmailTaken        = errors.New("user with this email already exists")
	ErrSessionInvalid    = errors.New("session is invalid or expired")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyActive = errors.New("role is already assigned")
)
