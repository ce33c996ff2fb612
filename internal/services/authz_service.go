package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/repositories"
)

// AccountRoles returns the roles the account holds through active,
// unexpired assignments, ordered by name.
func (s *AuthService) AccountRoles(ctx context.Context, accountID string) ([]*models.Role, error) {
	roles, err := repositories.NewRoleRepository(s.store).ListEffectiveForAccount(ctx, accountID, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to load account roles", slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return roles, nil
}

// AccountPermissions returns the deduplicated, sorted union of the
// permissions granted by the account's effective roles.
func (s *AuthService) AccountPermissions(ctx context.Context, accountID string) ([]models.Permission, error) {
	roles, err := s.AccountRoles(ctx, accountID)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.Permission]bool)
	perms := make([]models.Permission, 0)
	for _, role := range roles {
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })

	return perms, nil
}

// HasPermission reports whether any effective role grants the permission.
// Storage failures degrade to false after logging; this call never errors.
func (s *AuthService) HasPermission(ctx context.Context, accountID string, perm models.Permission) bool {
	perms, err := s.AccountPermissions(ctx, accountID)
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the account holds the named role through an
// effective assignment. Degrades to false on storage failure.
func (s *AuthService) HasRole(ctx context.Context, accountID, roleName string) bool {
	roles, err := s.AccountRoles(ctx, accountID)
	if err != nil {
		return false
	}

	roleName = models.NormalizeRoleName(roleName)
	for _, role := range roles {
		if role.Name == roleName {
			return true
		}
	}
	return false
}
