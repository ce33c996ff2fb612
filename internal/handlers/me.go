package handlers

import (
	"net/http"

	"github.com/sacbeh/gatehouse/internal/middleware"
	"github.com/sacbeh/gatehouse/internal/models"
	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// MeHandler serves the verified session snapshot injected by the session
// middleware. It never touches storage; what the middleware verified is
// exactly what the caller gets.
type MeHandler struct{}

// NewMeHandler creates a new MeHandler
func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// RolesResponse lists the effective role names for the session
type RolesResponse struct {
	Roles []string `json:"roles"`
}

// PermissionsResponse lists the effective permission union for the session
type PermissionsResponse struct {
	Permissions []models.Permission `json:"permissions"`
}

// Me returns the current user snapshot
// @Summary Current user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserInfo
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/v1/me [get]
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	info := middleware.UserFromContext(r)
	if info == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, info)
}

// Roles returns the effective roles for the current session
// @Summary Current user's roles
// @Security BearerAuth
// @Produce json
// @Success 200 {object} RolesResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/v1/me/roles [get]
func (h *MeHandler) Roles(w http.ResponseWriter, r *http.Request) {
	info := middleware.UserFromContext(r)
	if info == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RolesResponse{Roles: info.Roles})
}

// Permissions returns the effective permission union for the current session
// @Summary Current user's permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} PermissionsResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /api/v1/me/permissions [get]
func (h *MeHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	info := middleware.UserFromContext(r)
	if info == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: info.Permissions})
}
