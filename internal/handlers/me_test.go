package handlers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sacbeh/gatehouse/internal/handlers"
	"github.com/sacbeh/gatehouse/internal/models"
)

func TestMe_ReturnsVerifiedSnapshot(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me", nil)
	req = handlers.WithSessionContext(req, handlers.UserInfoFixture())

	w := httptest.NewRecorder()
	handler.Me(w, req)

	var resp models.UserInfo
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "acct-42", resp.AccountID)
	assert.Equal(t, "person@example.com", resp.Email)
	assert.Equal(t, "Test Person", resp.DisplayName)
}

func TestMe_WithoutSession(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me", nil)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestMeRoles(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me/roles", nil)
	req = handlers.WithSessionContext(req, handlers.UserInfoFixture())

	w := httptest.NewRecorder()
	handler.Roles(w, req)

	var resp handlers.RolesResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, []string{"user"}, resp.Roles)
}

func TestMeRoles_WithoutSession(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me/roles", nil)

	w := httptest.NewRecorder()
	handler.Roles(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestMePermissions(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me/permissions", nil)
	req = handlers.WithSessionContext(req, handlers.UserInfoFixture())

	w := httptest.NewRecorder()
	handler.Permissions(w, req)

	var resp handlers.PermissionsResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.ElementsMatch(t,
		[]models.Permission{models.PermissionRead, models.PermissionWrite},
		resp.Permissions)
}

func TestMePermissions_WithoutSession(t *testing.T) {
	handler := handlers.NewMeHandler()
	req := handlers.NewTestRequest(t, "GET", "/me/permissions", nil)

	w := httptest.NewRecorder()
	handler.Permissions(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}
