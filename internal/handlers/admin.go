package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sacbeh/gatehouse/internal/middleware"
	"github.com/sacbeh/gatehouse/internal/models"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// AdminEngine defines the account administration operations handlers depend on
type AdminEngine interface {
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error)
	SetAccountStatus(ctx context.Context, accountID string, status models.AccountStatus) error
	AssignRole(ctx context.Context, accountID, roleName string, assignedBy *string, expiresAt *time.Time) error
	RevokeRole(ctx context.Context, accountID, roleName string) error
}

// AdminHandler handles account administration HTTP requests
type AdminHandler struct {
	engine AdminEngine
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(engine AdminEngine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

// Request/Response DTOs

// AccountResponse represents an account in admin responses. Credential
// material never appears here.
type AccountResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	DisplayName    string  `json:"display_name"`
	Status         string  `json:"status"`
	FailedAttempts int     `json:"failed_attempts"`
	LockedUntil    *string `json:"locked_until,omitempty"`
	EmailVerified  bool    `json:"email_verified"`
	CreatedAt      string  `json:"created_at"`
	LastLogin      *string `json:"last_login,omitempty"`
}

// ListAccountsResponse represents a page of accounts
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active locked expired pending_verification"`
}

// AssignRoleRequest represents the request body for granting a role
type AssignRoleRequest struct {
	Role      string     `json:"role" validate:"required,min=1,max=64"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// accountToResponse converts an account model to a response DTO
func accountToResponse(account *models.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:             account.ID,
		Email:          account.Email,
		DisplayName:    account.DisplayName,
		Status:         string(account.Status),
		FailedAttempts: account.FailedAttempts,
		EmailVerified:  account.EmailVerified,
		CreatedAt:      account.CreatedAt.Format(time.RFC3339),
	}
	if account.LockedUntil != nil {
		formatted := account.LockedUntil.Format(time.RFC3339)
		resp.LockedUntil = &formatted
	}
	if account.LastLogin != nil {
		formatted := account.LastLogin.Format(time.RFC3339)
		resp.LastLogin = &formatted
	}
	return resp
}

// ListAccounts retrieves a page of accounts
// @Summary List accounts
// @Security BearerAuth
// @Param limit query int false "Limit (default 50, max 200)"
// @Param offset query int false "Offset (default 0)"
// @Produce json
// @Success 200 {object} ListAccountsResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/admin/accounts [get]
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0

	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = n
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			pkghttp.WriteBadRequest(w, "Invalid offset parameter")
			return
		}
		offset = n
	}

	accounts, err := h.engine.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	response := &ListAccountsResponse{
		Accounts: make([]*AccountResponse, len(accounts)),
		Total:    len(accounts),
	}
	for i, account := range accounts {
		response.Accounts[i] = accountToResponse(account)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// GetAccount retrieves one account by email
// @Summary Get account by email
// @Security BearerAuth
// @Param email path string true "Account email"
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/admin/accounts/{email} [get]
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		pkghttp.WriteBadRequest(w, "Account email is required")
		return
	}

	account, err := h.engine.AccountByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(account))
}

// UpdateStatus changes an account's lifecycle status
// @Summary Set account status
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Accept json
// @Param request body UpdateStatusRequest true "Status change request"
// @Success 204
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/admin/accounts/{id}/status [put]
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		pkghttp.WriteBadRequest(w, "Account ID is required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.engine.SetAccountStatus(r.Context(), accountID, models.AccountStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid account status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignRole grants a role to an account
// @Summary Assign a role
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Accept json
// @Param request body AssignRoleRequest true "Role grant request"
// @Success 201
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/admin/accounts/{id}/roles [post]
func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		pkghttp.WriteBadRequest(w, "Account ID is required")
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// The grant is attributed to the admin driving this session
	var assignedBy *string
	if admin := middleware.UserFromContext(r); admin != nil {
		assignedBy = &admin.AccountID
	}

	err := h.engine.AssignRole(r.Context(), accountID, req.Role, assignedBy, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRoleNotFound):
			pkghttp.WriteError(w, http.StatusNotFound, "role_not_found", "Role not found")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrRoleAlreadyActive):
			pkghttp.WriteError(w, http.StatusConflict, "role_already_active", "Role is already assigned")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Expiry must be in the future")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Role assigned"})
}

// RevokeRole deactivates an account's active assignments of a role
// @Summary Revoke a role
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param role path string true "Role name"
// @Success 204
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/v1/admin/accounts/{id}/roles/{role} [delete]
func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	roleName := chi.URLParam(r, "role")
	if accountID == "" || roleName == "" {
		pkghttp.WriteBadRequest(w, "Account ID and role name are required")
		return
	}

	err := h.engine.RevokeRole(r.Context(), accountID, roleName)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRoleNotFound):
			pkghttp.WriteError(w, http.StatusNotFound, "role_not_found", "Role not found")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No active assignment of this role")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
