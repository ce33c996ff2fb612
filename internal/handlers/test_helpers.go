package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sacbeh/gatehouse/internal/middleware"
	"github.com/sacbeh/gatehouse/internal/models"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext injects a verified user snapshot, as the session
// middleware would after a successful verification
func WithSessionContext(req *http.Request, info *models.UserInfo) *http.Request {
	return req.WithContext(middleware.NewUserContext(req.Context(), info))
}

// WithChiRouteContext adds chi URL parameters to the request context so
// handlers can be tested without mounting a full router
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockEngine implements AuthEngine and AdminEngine for testing.
// Unset funcs fall back to conservative defaults.
type MockEngine struct {
	RegisterFunc         func(ctx context.Context, email, password, displayName, roleName string) (*models.Account, error)
	AuthenticateFunc     func(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Session, error)
	VerifySessionFunc    func(ctx context.Context, token string) (*models.UserInfo, bool)
	LogoutFunc           func(ctx context.Context, token string) error
	AccountByEmailFunc   func(ctx context.Context, email string) (*models.Account, error)
	ListAccountsFunc     func(ctx context.Context, limit, offset int) ([]*models.Account, error)
	SetAccountStatusFunc func(ctx context.Context, accountID string, status models.AccountStatus) error
	AssignRoleFunc       func(ctx context.Context, accountID, roleName string, assignedBy *string, expiresAt *time.Time) error
	RevokeRoleFunc       func(ctx context.Context, accountID, roleName string) error
}

func (m *MockEngine) Register(ctx context.Context, email, password, displayName, roleName string) (*models.Account, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, email, password, displayName, roleName)
}

func (m *MockEngine) Authenticate(ctx context.Context, email, password, ipAddress, userAgent string) (*models.Session, error) {
	if m.AuthenticateFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.AuthenticateFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *MockEngine) VerifySession(ctx context.Context, token string) (*models.UserInfo, bool) {
	if m.VerifySessionFunc == nil {
		return nil, false
	}
	return m.VerifySessionFunc(ctx, token)
}

func (m *MockEngine) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token)
}

func (m *MockEngine) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.AccountByEmailFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.AccountByEmailFunc(ctx, email)
}

func (m *MockEngine) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if m.ListAccountsFunc == nil {
		return []*models.Account{}, nil
	}
	return m.ListAccountsFunc(ctx, limit, offset)
}

func (m *MockEngine) SetAccountStatus(ctx context.Context, accountID string, status models.AccountStatus) error {
	if m.SetAccountStatusFunc == nil {
		return nil
	}
	return m.SetAccountStatusFunc(ctx, accountID, status)
}

func (m *MockEngine) AssignRole(ctx context.Context, accountID, roleName string, assignedBy *string, expiresAt *time.Time) error {
	if m.AssignRoleFunc == nil {
		return nil
	}
	return m.AssignRoleFunc(ctx, accountID, roleName, assignedBy, expiresAt)
}

func (m *MockEngine) RevokeRole(ctx context.Context, accountID, roleName string) error {
	if m.RevokeRoleFunc == nil {
		return nil
	}
	return m.RevokeRoleFunc(ctx, accountID, roleName)
}

// Fixtures shared by the handler tests

func AccountFixture() *models.Account {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Account{
		ID:                "acct-42",
		Email:             "person@example.com",
		DisplayName:       "Test Person",
		Status:            models.StatusActive,
		EmailVerified:     true,
		PasswordChangedAt: now,
		CreatedAt:         now,
	}
}

func UserInfoFixture() *models.UserInfo {
	return &models.UserInfo{
		AccountID:   "acct-42",
		Email:       "person@example.com",
		DisplayName: "Test Person",
		Roles:       []string{"user"},
		Permissions: []models.Permission{models.PermissionRead, models.PermissionWrite},
	}
}

func SessionFixture() *models.Session {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:           "sess-1",
		AccountID:    "acct-42",
		Token:        "4cca53422398384683f6d3b874e452177125a3f4247a4b03b39d0564efcdc52b",
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
		IsActive:     true,
		LastActivity: now,
	}
}
