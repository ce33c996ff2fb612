package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

const (
	SaltBytes = 16 // hex encodes to 32 characters
	HashBytes = 32 // hex encodes to 64 characters

	MinPasswordLen = 8
	MaxPasswordLen = 128

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// PasswordSymbols is the character set accepted as the symbol class
const PasswordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// PasswordValidationError reports every policy rule a candidate password broke
type PasswordValidationError struct {
	Violations []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "password is not strong enough"
	}
	return "password is not strong enough: " + strings.Join(e.Violations, ", ")
}

// NewSalt generates a fresh random salt, hex encoded
func NewSalt() (string, error) {
	b := make([]byte, SaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword derives the stored digest from a password and its hex-encoded
// salt using Argon2id. The digest is hex encoded.
func HashPassword(password, salt string) string {
	digest := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, HashBytes)
	return hex.EncodeToString(digest)
}

// VerifyPassword compares a candidate password against the stored digest in
// constant time.
func VerifyPassword(password, salt, hash string) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// ValidatePassword checks a candidate against the password policy and reports
// every violated rule, not just the first. A minLength of zero or less falls
// back to MinPasswordLen.
func ValidatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = MinPasswordLen
	}

	violations := make([]string, 0)

	if len(password) < minLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters long", minLength))
	}
	if len(password) > MaxPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at most %d characters long", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSymbol := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, "must contain at least one special character")
	}

	if len(violations) > 0 {
		return &PasswordValidationError{Violations: violations}
	}

	return nil
}
