package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sacbeh/gatehouse/internal/models"
)

// ============================================================================
// Authorization queries
// ============================================================================

func TestAuthService_AccountPermissions_UnionSorted(t *testing.T) {
	svc, _ := newTestService(t, "authz_union")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "union@example.com")
	require.NoError(t, svc.AssignRole(ctx, account.ID, "guest", nil, nil))

	// user grants read+write, guest grants read; the union deduplicates
	perms, err := svc.AccountPermissions(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Permission{models.PermissionRead, models.PermissionWrite}, perms)

	require.NoError(t, svc.AssignRole(ctx, account.ID, "admin", nil, nil))

	perms, err = svc.AccountPermissions(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Permission{
		models.PermissionAdmin,
		models.PermissionDelete,
		models.PermissionRead,
		models.PermissionSystemConfig,
		models.PermissionUserManagement,
		models.PermissionWrite,
	}, perms)
}

func TestAuthService_HasPermissionAndRole(t *testing.T) {
	svc, _ := newTestService(t, "authz_has")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "haz@example.com")

	assert.True(t, svc.HasPermission(ctx, account.ID, models.PermissionRead))
	assert.True(t, svc.HasPermission(ctx, account.ID, models.PermissionWrite))
	assert.False(t, svc.HasPermission(ctx, account.ID, models.PermissionUserManagement))

	assert.True(t, svc.HasRole(ctx, account.ID, "user"))
	assert.True(t, svc.HasRole(ctx, account.ID, " User "))
	assert.False(t, svc.HasRole(ctx, account.ID, "admin"))

	// unknown accounts simply hold nothing
	assert.False(t, svc.HasPermission(ctx, "no-such-id", models.PermissionRead))
	assert.False(t, svc.HasRole(ctx, "no-such-id", "user"))
}

func TestAuthService_ExpiredAssignmentContributesNothing(t *testing.T) {
	svc, conn := newTestService(t, "authz_expiry")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "timed@example.com")

	expiry := time.Now().UTC().Add(time.Hour)
	require.NoError(t, svc.AssignRole(ctx, account.ID, "admin", nil, &expiry))
	assert.True(t, svc.HasPermission(ctx, account.ID, models.PermissionAdmin))

	// age the grant past its expiry
	past := time.Now().UTC().Add(-time.Minute).UnixMilli()
	_, err := conn.ExecContext(ctx,
		`UPDATE role_assignments SET expires_at = ? WHERE account_id = ?`, past, account.ID)
	require.NoError(t, err)

	assert.False(t, svc.HasPermission(ctx, account.ID, models.PermissionAdmin))
	roles, err := svc.AccountRoles(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

// ============================================================================
// Role administration
// ============================================================================

func TestAuthService_AssignRole(t *testing.T) {
	svc, _ := newTestService(t, "assign_role")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "grantee@example.com")
	admin := registerTestAccount(t, svc, "granter@example.com")

	require.NoError(t, svc.AssignRole(ctx, account.ID, "Guest", &admin.ID, nil))
	assert.True(t, svc.HasRole(ctx, account.ID, "guest"))

	// a grant already in effect is rejected
	err := svc.AssignRole(ctx, account.ID, "guest", nil, nil)
	assert.ErrorIs(t, err, models.ErrRoleAlreadyActive)

	err = svc.AssignRole(ctx, account.ID, "wizard", nil, nil)
	assert.ErrorIs(t, err, models.ErrRoleNotFound)

	err = svc.AssignRole(ctx, "no-such-account", "guest", nil, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)

	past := time.Now().UTC().Add(-time.Hour)
	err = svc.AssignRole(ctx, account.ID, "admin", nil, &past)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAuthService_RevokeRole(t *testing.T) {
	svc, _ := newTestService(t, "revoke_role")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "revokee@example.com")
	require.True(t, svc.HasRole(ctx, account.ID, "user"))

	require.NoError(t, svc.RevokeRole(ctx, account.ID, "user"))
	assert.False(t, svc.HasRole(ctx, account.ID, "user"))
	assert.False(t, svc.HasPermission(ctx, account.ID, models.PermissionRead))

	// nothing left to revoke
	err := svc.RevokeRole(ctx, account.ID, "user")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = svc.RevokeRole(ctx, account.ID, "wizard")
	assert.ErrorIs(t, err, models.ErrRoleNotFound)

	// a revoked role can be granted again
	require.NoError(t, svc.AssignRole(ctx, account.ID, "user", nil, nil))
	assert.True(t, svc.HasRole(ctx, account.ID, "user"))
}

func TestAuthService_RevokeRole_SessionSeesReducedGrants(t *testing.T) {
	svc, _ := newTestService(t, "revoke_live")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "live@example.com")
	require.NoError(t, svc.AssignRole(ctx, account.ID, "admin", nil, nil))
	session := loginTestAccount(t, svc, "live@example.com")

	info, ok := svc.VerifySession(ctx, session.Token)
	require.True(t, ok)
	assert.Equal(t, []string{models.RoleAdmin, models.RoleUser}, info.Roles)

	require.NoError(t, svc.RevokeRole(ctx, account.ID, "admin"))

	// verification reads grants fresh; the session itself stays valid
	info, ok = svc.VerifySession(ctx, session.Token)
	require.True(t, ok)
	assert.Equal(t, []string{models.RoleUser}, info.Roles)
	assert.False(t, info.HasPermission(models.PermissionAdmin))
}

// ============================================================================
// Account administration
// ============================================================================

func TestAuthService_AccountLookups_Sanitized(t *testing.T) {
	svc, _ := newTestService(t, "admin_lookup")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "peek@example.com")

	byEmail, err := svc.AccountByEmail(ctx, "PEEK@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)
	assert.Empty(t, byEmail.PasswordHash)
	assert.Empty(t, byEmail.Salt)
	assert.Nil(t, byEmail.VerificationToken)

	byID, err := svc.AccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "peek@example.com", byID.Email)
	assert.Empty(t, byID.PasswordHash)

	_, err = svc.AccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.AccountByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthService_ListAccounts(t *testing.T) {
	svc, _ := newTestService(t, "admin_list")
	ctx := context.Background()

	registerTestAccount(t, svc, "one@example.com")
	registerTestAccount(t, svc, "two@example.com")
	registerTestAccount(t, svc, "three@example.com")

	accounts, err := svc.ListAccounts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	for _, account := range accounts {
		assert.Empty(t, account.PasswordHash)
		assert.Empty(t, account.Salt)
	}

	page, err := svc.ListAccounts(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestAuthService_SetAccountStatus_Lock(t *testing.T) {
	svc, conn := newTestService(t, "admin_lock")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "suspend@example.com")
	session := loginTestAccount(t, svc, "suspend@example.com")

	require.NoError(t, svc.SetAccountStatus(ctx, account.ID, models.StatusLocked))

	after := fetchAccount(t, conn, account.ID)
	assert.Equal(t, models.StatusLocked, after.Status)
	require.NotNil(t, after.LockedUntil)

	// the lock revoked live sessions and blocks fresh logins
	_, ok := svc.VerifySession(ctx, session.Token)
	assert.False(t, ok)
	_, err := svc.Authenticate(ctx, "suspend@example.com", testPassword, "", "")
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_SetAccountStatus_Unlock(t *testing.T) {
	svc, conn := newTestService(t, "admin_unlock")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "restore@example.com")

	// drive the account into a lock through failures
	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(ctx, "restore@example.com", wrongPassword, "", "")
		require.Error(t, err)
	}
	require.Equal(t, models.StatusLocked, fetchAccount(t, conn, account.ID).Status)

	require.NoError(t, svc.SetAccountStatus(ctx, account.ID, models.StatusActive))

	after := fetchAccount(t, conn, account.ID)
	assert.Equal(t, models.StatusActive, after.Status)
	assert.Nil(t, after.LockedUntil)
	assert.Equal(t, 0, after.FailedAttempts)

	_, err := svc.Authenticate(ctx, "restore@example.com", testPassword, "", "")
	assert.NoError(t, err)
}

func TestAuthService_SetAccountStatus_Invalid(t *testing.T) {
	svc, _ := newTestService(t, "admin_badstatus")
	ctx := context.Background()

	account := registerTestAccount(t, svc, "badstatus@example.com")

	err := svc.SetAccountStatus(ctx, account.ID, "frozen")
	assert.ErrorIs(t, err, models.ErrBadRequest)

	err = svc.SetAccountStatus(ctx, "no-such-id", models.StatusActive)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
