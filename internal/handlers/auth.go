package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sacbeh/gatehouse/internal/models"
	pkgauth "github.com/sacbeh/gatehouse/pkg/auth"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// AuthEngine defines the authentication operations handlers depend on
type AuthEngine interface {
	Register(ctx context.Context, email, password, displayName, roleName string) (*models.Account, error)
	Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Session, error)
	VerifySession(ctx context.Context, token string) (*models.UserInfo, bool)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	engine AuthEngine
	trust  *pkghttp.ProxyTrust
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(engine AuthEngine, trust *pkghttp.ProxyTrust) *AuthHandler {
	return &AuthHandler{
		engine: engine,
		trust:  trust,
	}
}

// Request/Response DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Role        string `json:"role" validate:"omitempty,min=1,max=64"`
}

// RegisterResponse represents the response for a successful registration
type RegisterResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token and the verified user snapshot
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *models.UserInfo `json:"user"`
}

// Register handles account registration
// @Summary Register a new account
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	account, err := h.engine.Register(r.Context(), req.Email, req.Password, req.DisplayName, req.Role)
	if err != nil {
		var policyErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrEmailTaken):
			pkghttp.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		case errors.As(err, &policyErr):
			pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "weak_password",
				"Password does not meet the policy", policyErr.Error())
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "A valid email address is required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, RegisterResponse{
		ID:      account.ID,
		Email:   account.Email,
		Message: "user registered successfully, you can now log in",
	})
}

// Login handles credential verification and session issuance
// @Summary Log in with email and password
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ClientIP(r, h.trust)
	userAgent := r.Header.Get("User-Agent")

	session, err := h.engine.Authenticate(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteLocked(w, "Account is temporarily locked. Try again later.")
		case errors.Is(err, models.ErrEmailNotVerified):
			pkghttp.WriteError(w, http.StatusForbidden, "email_not_verified",
				"Please verify your email address before logging in")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	// The session was just created, so a failed verification here means the
	// store went away between the two calls
	info, ok := h.engine.VerifySession(r.Context(), session.Token)
	if !ok {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      info,
	})
}

// Logout retires the presented session token. Unknown or already retired
// tokens still answer 204 so the operation stays idempotent.
// @Summary Log out
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := pkghttp.BearerToken(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "Missing or malformed authorization header")
		return
	}

	if err := h.engine.Logout(r.Context(), token); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session verifies the presented token and returns the user snapshot
// @Summary Verify the current session
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserInfo
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := pkghttp.BearerToken(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "Missing or malformed authorization header")
		return
	}

	info, ok := h.engine.VerifySession(r.Context(), token)
	if !ok {
		pkghttp.WriteError(w, http.StatusUnauthorized, "session_invalid", "Session is invalid or expired")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, info)
}
