package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/repositories"
	"github.com/sacbeh/gatehouse/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AccountByEmail looks up an account for administration. The returned copy
// carries no credential material.
func (s *AuthService) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := repositories.NewAccountRepository(s.store).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account.Sanitized(), nil
}

// AccountByID looks up an account by id, sanitized
func (s *AuthService) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	account, err := repositories.NewAccountRepository(s.store).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account by id", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account.Sanitized(), nil
}

// ListAccounts pages through accounts newest first, sanitized
func (s *AuthService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := repositories.NewAccountRepository(s.store).List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sanitized := make([]*models.Account, 0, len(accounts))
	for _, account := range accounts {
		sanitized = append(sanitized, account.Sanitized())
	}
	return sanitized, nil
}

// AssignRole grants a role to an account, optionally expiring. A grant that
// is already in effect is rejected with ErrRoleAlreadyActive.
func (s *AuthService) AssignRole(ctx context.Context, accountID, roleName string, assignedBy *string, expiresAt *time.Time) error {
	now := time.Now().UTC()
	roleName = models.NormalizeRoleName(roleName)

	if expiresAt != nil && !expiresAt.After(now) {
		return models.ErrBadRequest
	}

	err := s.store.WithinTx(ctx, func(q storage.Querier) error {
		if _, err := repositories.NewAccountRepository(q).GetByID(ctx, accountID); err != nil {
			return err
		}

		role, err := repositories.NewRoleRepository(q).GetByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrRoleNotFound
			}
			return err
		}

		assignments := repositories.NewRoleAssignmentRepository(q)
		active, err := assignments.HasActiveAssignment(ctx, accountID, role.ID, storage.ToMillis(now))
		if err != nil {
			return err
		}
		if active {
			return models.ErrRoleAlreadyActive
		}

		return assignments.Create(ctx, &models.RoleAssignment{
			AccountID:  accountID,
			RoleID:     role.ID,
			AssignedAt: now,
			AssignedBy: assignedBy,
			ExpiresAt:  expiresAt,
			IsActive:   true,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound),
			errors.Is(err, models.ErrRoleNotFound),
			errors.Is(err, models.ErrRoleAlreadyActive),
			errors.Is(err, models.ErrBadRequest):
			return err
		}
		s.logger.Error("failed to assign role",
			slog.String("account_id", accountID),
			slog.String("role", roleName),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("role assigned", slog.String("account_id", accountID), slog.String("role", roleName))
	s.audit.LogAccountAction("role_assigned", accountID, "", map[string]string{"role": roleName})
	return nil
}

// RevokeRole deactivates every active grant of the role held by the
// account. Grants are never deleted, so the assignment history survives.
func (s *AuthService) RevokeRole(ctx context.Context, accountID, roleName string) error {
	roleName = models.NormalizeRoleName(roleName)

	role, err := repositories.NewRoleRepository(s.store).GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrRoleNotFound
		}
		s.logger.Error("failed to get role", slog.String("role", roleName), slog.Any("error", err))
		return models.ErrInternalServer
	}

	revoked, err := repositories.NewRoleAssignmentRepository(s.store).DeactivateByRole(ctx, accountID, role.ID)
	if err != nil {
		s.logger.Error("failed to revoke role",
			slog.String("account_id", accountID),
			slog.String("role", roleName),
			slog.Any("error", err))
		return models.ErrInternalServer
	}
	if revoked == 0 {
		return models.ErrNotFound
	}

	s.logger.Info("role revoked", slog.String("account_id", accountID), slog.String("role", roleName))
	s.audit.LogAccountAction("role_revoked", accountID, "", map[string]string{"role": roleName})
	return nil
}

// SetAccountStatus applies an administrative status change. Locking uses
// the configured lockout duration and revokes live sessions; leaving the
// locked state clears the lock deadline and the failure counter.
func (s *AuthService) SetAccountStatus(ctx context.Context, accountID string, status models.AccountStatus) error {
	if !status.Valid() {
		return models.ErrBadRequest
	}

	err := s.store.WithinTx(ctx, func(q storage.Querier) error {
		accounts := repositories.NewAccountRepository(q)

		account, err := accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		if status == models.StatusLocked {
			until := time.Now().UTC().Add(s.cfg.LockoutDuration)
			if err := accounts.Lock(ctx, accountID, until); err != nil {
				return err
			}
			_, err = repositories.NewSessionRepository(q).DeactivateByAccount(ctx, accountID)
			return err
		}

		if err := accounts.SetStatus(ctx, accountID, status, nil); err != nil {
			return err
		}
		if account.Status == models.StatusLocked {
			return accounts.ResetFailedAttempts(ctx, accountID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to set account status",
			slog.String("account_id", accountID),
			slog.String("status", status.String()),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account status changed",
		slog.String("account_id", accountID),
		slog.String("status", status.String()))
	s.audit.LogAccountAction("status_changed", accountID, "", map[string]string{"status": status.String()})
	return nil
}
