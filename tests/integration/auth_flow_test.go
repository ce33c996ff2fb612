package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/services"
)

const testPassword = "Sup3r-secret!"

func TestLifecycle_RegisterLoginLogout(t *testing.T) {
	server, _ := newServer(t, services.Config{})
	client := server.Client()
	base := server.URL + "/api/v1"
	email := "lifecycle@example.com"

	accountID := registerAccount(t, server, email, testPassword, "Lifecycle Test")

	// Registering the same address again is a conflict
	resp, body := doJSON(t, client, "POST", base+"/auth/register", "", map[string]string{
		"email":        email,
		"password":     testPassword,
		"display_name": "Imposter",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "email_taken")

	// Login returns a token plus the verified snapshot
	resp, body = doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var loginResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		User      struct {
			AccountID string   `json:"account_id"`
			Email     string   `json:"email"`
			Roles     []string `json:"roles"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &loginResp))
	assert.NotEmpty(t, loginResp.Token)
	assert.True(t, loginResp.ExpiresAt.After(time.Now()), "expiry must be in the future")
	assert.Equal(t, accountID, loginResp.User.AccountID)
	assert.Equal(t, email, loginResp.User.Email)
	assert.Contains(t, loginResp.User.Roles, models.RoleUser, "registration grants the default role")

	token := loginResp.Token

	// The token authenticates /me
	resp, body = doJSON(t, client, "GET", base+"/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), email)

	// Default role carries read and write
	resp, body = doJSON(t, client, "GET", base+"/me/permissions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "read")
	assert.Contains(t, string(body), "write")

	// Logout retires the token
	resp, _ = doJSON(t, client, "POST", base+"/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, client, "GET", base+"/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "retired token must stop working")

	// A second logout of the same token is still a success
	resp, _ = doJSON(t, client, "POST", base+"/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// A fresh login issues a fresh, working token
	fresh := login(t, server, email, testPassword)
	assert.NotEqual(t, token, fresh)
	resp, _ = doJSON(t, client, "GET", base+"/me", fresh, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLifecycle_WrongPasswordShapes(t *testing.T) {
	server, _ := newServer(t, services.Config{})
	client := server.Client()
	base := server.URL + "/api/v1"
	email := "shapes@example.com"

	registerAccount(t, server, email, testPassword, "Shape Test")

	// Wrong password and unknown account answer identically
	resp1, body1 := doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "Wrong-password1!",
	})
	resp2, body2 := doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    "never-registered@example.com",
		"password": testPassword,
	})

	assert.Equal(t, http.StatusUnauthorized, resp1.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	assert.JSONEq(t, string(body1), string(body2), "failure shape must not leak account existence")
}

func TestLifecycle_LockoutAndSelfHeal(t *testing.T) {
	server, _ := newServer(t, services.Config{
		MaxFailedAttempts: 3,
		LockoutDuration:   1500 * time.Millisecond,
	})
	client := server.Client()
	base := server.URL + "/api/v1"
	email := "lockout@example.com"

	registerAccount(t, server, email, testPassword, "Lockout Test")
	preLockToken := login(t, server, email, testPassword)

	// Three wrong passwords trip the lock; each failing attempt itself
	// reports invalid credentials
	for i := 0; i < 3; i++ {
		resp, body := doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
			"email":    email,
			"password": "Wrong-password1!",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, string(body), "invalid_credentials", "attempt %d", i+1)
	}

	// Now even the correct password is locked out
	resp, body := doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Contains(t, string(body), "account_locked")

	// Locking revoked the session issued before the lock
	resp, _ = doJSON(t, client, "GET", base+"/me", preLockToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Once the lock lapses the next valid login heals the account
	time.Sleep(1700 * time.Millisecond)
	healed := login(t, server, email, testPassword)

	resp, _ = doJSON(t, client, "GET", base+"/me", healed, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLifecycle_UnverifiedAccountCannotLogin(t *testing.T) {
	server, engine := newServer(t, services.Config{})
	client := server.Client()
	base := server.URL + "/api/v1"
	email := "unverified@example.com"

	accountID := registerAccount(t, server, email, testPassword, "Unverified Test")

	// An administrative flip into pending verification gates login
	require.NoError(t, engine.SetAccountStatus(context.Background(), accountID, models.StatusPendingVerification))

	resp, body := doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "email_not_verified")

	// The wrong password still wins over the verification gate
	resp, body = doJSON(t, client, "POST", base+"/auth/login", "", map[string]string{
		"email":    email,
		"password": "Wrong-password1!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_credentials")
}

func TestLifecycle_WeakPasswordRejected(t *testing.T) {
	server, _ := newServer(t, services.Config{})

	resp, body := doJSON(t, server.Client(), "POST", server.URL+"/api/v1/auth/register", "", map[string]string{
		"email":        "weak@example.com",
		"password":     "short",
		"display_name": "Weak Password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "weak_password")
}
