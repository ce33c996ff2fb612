package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Token sizes in random bytes. Hex encoding doubles the character length.
const (
	SessionTokenBytes      = 32
	VerificationTokenBytes = 16
)

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewSessionToken generates an opaque 64-character session token
func NewSessionToken() (string, error) {
	return randomHex(SessionTokenBytes)
}

// NewVerificationToken generates a 32-character email verification token
func NewVerificationToken() (string, error) {
	return randomHex(VerificationTokenBytes)
}
