package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sacbeh/gatehouse/internal/metrics"
	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/repositories"
	"github.com/sacbeh/gatehouse/internal/storage"
	pkgauth "github.com/sacbeh/gatehouse/pkg/auth"
	pkglogger "github.com/sacbeh/gatehouse/pkg/logger"
)

// Config carries the authentication policy knobs
type Config struct {
	SessionTTL        time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	PasswordMinLength int
}

// DefaultConfig returns the policy used when nothing is configured
func DefaultConfig() Config {
	return Config{
		SessionTTL:        24 * time.Hour,
		MaxFailedAttempts: 5,
		LockoutDuration:   30 * time.Minute,
		PasswordMinLength: pkgauth.MinPasswordLen,
	}
}

// Fixed inputs for the unknown-account branch of Authenticate. Verifying a
// password against these costs the same hash derivation as a real check, so
// a missing account cannot be told apart from a wrong password by timing.
const (
	dummySalt = "67617465686f7573652d64756d6d7900"
	dummyHash = "0000000000000000000000000000000000000000000000000000000000000000"
)

// AuthService is the authentication engine. It owns orchestration,
// transactions, and policy; repositories own row mapping and SQL. The
// service keeps no state between calls and is safe for concurrent use.
type AuthService struct {
	store  storage.Connector
	cfg    Config
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. Zero config fields fall back
// to the defaults.
func NewAuthService(store storage.Connector, cfg Config, logger *slog.Logger, audit *pkglogger.AuditLogger) *AuthService {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = def.PasswordMinLength
	}

	return &AuthService{
		store:  store,
		cfg:    cfg,
		logger: logger,
		audit:  audit,
	}
}

// Register creates a new account and grants it the requested role (the
// default role when roleName is empty). The account insert and the role
// assignment commit or roll back together; a missing role is logged and
// skipped so a role-config gap cannot strand registrations.
func (s *AuthService) Register(ctx context.Context, email, password, displayName, roleName string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(password, s.cfg.PasswordMinLength); err != nil {
		return nil, err
	}

	// Check for an existing account first; the unique email index is the
	// real guard against races.
	accounts := repositories.NewAccountRepository(s.store)
	if _, err := accounts.GetByEmail(ctx, email); err == nil {
		s.logger.Info("registration failed: email already registered",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	salt, err := pkgauth.NewSalt()
	if err != nil {
		s.logger.Error("failed to generate salt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	verificationToken, err := pkgauth.NewVerificationToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now().UTC()
	account := &models.Account{
		Email:             email,
		DisplayName:       displayName,
		PasswordHash:      pkgauth.HashPassword(password, salt),
		Salt:              salt,
		Status:            models.StatusActive,
		EmailVerified:     true,
		VerificationToken: &verificationToken,
		PasswordChangedAt: now,
		CreatedAt:         now,
	}

	roleName = models.NormalizeRoleName(roleName)

	err = s.store.WithinTx(ctx, func(q storage.Querier) error {
		txAccounts := repositories.NewAccountRepository(q)
		if err := txAccounts.Create(ctx, account); err != nil {
			return err
		}

		roles := repositories.NewRoleRepository(q)
		var role *models.Role
		var roleErr error
		if roleName == "" {
			role, roleErr = roles.GetDefault(ctx)
		} else {
			role, roleErr = roles.GetByName(ctx, roleName)
		}
		if roleErr != nil {
			if errors.Is(roleErr, models.ErrNotFound) {
				s.logger.Warn("requested role not found, registering without assignment",
					slog.String("role", roleName))
				return nil
			}
			return roleErr
		}
		roleName = role.Name

		return repositories.NewRoleAssignmentRepository(q).Create(ctx, &models.RoleAssignment{
			AccountID:  account.ID,
			RoleID:     role.ID,
			AssignedAt: now,
			IsActive:   true,
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailTaken
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	metrics.Registrations.Inc()
	s.logger.Info("account registered", slog.String("account_id", account.ID))
	s.audit.LogAccountAction("account_registered", account.ID, "", map[string]string{
		"role": roleName,
	})

	return account, nil
}

// Authenticate runs the ordered login gates and returns a fresh session on
// success. Callers only ever see three failure shapes: invalid credentials,
// locked, and unverified; the precise reason lands in the attempt log.
func (s *AuthService) Authenticate(ctx context.Context, email, password, ip, userAgent string) (*models.Session, error) {
	email = models.NormalizeEmail(email)
	now := time.Now().UTC()
	accounts := repositories.NewAccountRepository(s.store)

	account, err := accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.VerifyPassword(password, dummySalt, dummyHash)
			s.failAttempt(ctx, email, "", models.FailureUserNotFound, "invalid_credentials", ip, userAgent)
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, models.ErrInternalServer
	}

	// Lock gate: an unexpired lock rejects, a lapsed one self-heals
	if account.Status == models.StatusLocked {
		if account.LockedNow(now) {
			s.failAttempt(ctx, email, account.ID, models.FailureAccountLocked, "account_locked", ip, userAgent)
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeLocked).Inc()
			return nil, models.ErrAccountLocked
		}
		if err := accounts.Unlock(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear lapsed lock", slog.String("account_id", account.ID), slog.Any("error", err))
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, models.ErrInternalServer
		}
		account.Status = models.StatusActive
		account.LockedUntil = nil
		account.FailedAttempts = 0
	}

	if !pkgauth.VerifyPassword(password, account.Salt, account.PasswordHash) {
		if err := s.registerFailure(ctx, account, now, ip); err != nil {
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, models.ErrInternalServer
		}
		s.failAttempt(ctx, email, account.ID, models.FailureInvalidPassword, "invalid_credentials", ip, userAgent)
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalidCredentials).Inc()
		return nil, models.ErrInvalidCredentials
	}

	if !account.EmailVerified || account.Status == models.StatusPendingVerification {
		s.failAttempt(ctx, email, account.ID, models.FailureEmailNotVerified, "email_not_verified", ip, userAgent)
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeUnverified).Inc()
		return nil, models.ErrEmailNotVerified
	}

	token, err := pkgauth.NewSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, models.ErrInternalServer
	}

	session := &models.Session{
		Token:        token,
		AccountID:    account.ID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
		IPAddress:    optional(ip),
		UserAgent:    optional(userAgent),
		IsActive:     true,
		LastActivity: now,
	}

	err = s.store.WithinTx(ctx, func(q storage.Querier) error {
		txAccounts := repositories.NewAccountRepository(q)
		if err := txAccounts.ResetFailedAttempts(ctx, account.ID); err != nil {
			return err
		}
		if err := txAccounts.StampLastLogin(ctx, account.ID, now); err != nil {
			return err
		}
		return repositories.NewSessionRepository(q).Create(ctx, session)
	})
	if err != nil {
		s.logger.Error("failed to finalize login", slog.String("account_id", account.ID), slog.Any("error", err))
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, models.ErrInternalServer
	}

	s.recordAttempt(ctx, &models.LoginAttempt{
		Email:       email,
		IPAddress:   optional(ip),
		UserAgent:   optional(userAgent),
		Success:     true,
		AttemptedAt: now,
	})
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("login succeeded", slog.String("account_id", account.ID))
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})

	return session, nil
}

// VerifySession resolves a token to the user it authenticates. Unknown,
// inactive, or expired tokens come back (nil, false); so does any internal
// failure, after logging. This path never returns an error.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*models.UserInfo, bool) {
	if token == "" {
		metrics.SessionVerifications.WithLabelValues("invalid").Inc()
		return nil, false
	}

	sessions := repositories.NewSessionRepository(s.store)
	session, err := sessions.GetByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load session", slog.Any("error", err))
		}
		metrics.SessionVerifications.WithLabelValues("invalid").Inc()
		return nil, false
	}

	now := time.Now().UTC()
	if !session.Valid(now) {
		// retire sessions observed past their expiry
		if session.IsActive {
			if err := sessions.Deactivate(ctx, session.Token); err != nil {
				s.logger.Error("failed to deactivate expired session", slog.Any("error", err))
			}
		}
		metrics.SessionVerifications.WithLabelValues("invalid").Inc()
		return nil, false
	}

	if err := sessions.Touch(ctx, token, now); err != nil {
		s.logger.Error("failed to touch session", slog.Any("error", err))
	}

	info, err := s.buildUserInfo(ctx, session, now)
	if err != nil {
		s.logger.Error("failed to build user info", slog.String("account_id", session.AccountID), slog.Any("error", err))
		metrics.SessionVerifications.WithLabelValues("invalid").Inc()
		return nil, false
	}

	metrics.SessionVerifications.WithLabelValues("valid").Inc()
	return info, true
}

// Logout deactivates the session behind the token. Unknown tokens are a
// quiet success so the operation is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := repositories.NewSessionRepository(s.store).Deactivate(ctx, token); err != nil {
		s.logger.Error("failed to deactivate session", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("session deactivated")
	return nil
}

// registerFailure counts a wrong password and, when the threshold is hit,
// locks the account and revokes its sessions in the same transaction.
func (s *AuthService) registerFailure(ctx context.Context, account *models.Account, now time.Time, ip string) error {
	var lockedUntil time.Time

	err := s.store.WithinTx(ctx, func(q storage.Querier) error {
		accounts := repositories.NewAccountRepository(q)

		count, err := accounts.IncrementFailedAttempts(ctx, account.ID)
		if err != nil {
			return err
		}
		if count < s.cfg.MaxFailedAttempts {
			return nil
		}

		lockedUntil = now.Add(s.cfg.LockoutDuration)
		if err := accounts.Lock(ctx, account.ID, lockedUntil); err != nil {
			return err
		}
		_, err = repositories.NewSessionRepository(q).DeactivateByAccount(ctx, account.ID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to register login failure", slog.String("account_id", account.ID), slog.Any("error", err))
		return err
	}

	if !lockedUntil.IsZero() {
		metrics.Lockouts.Inc()
		s.logger.Warn("account locked after repeated failures",
			slog.String("account_id", account.ID),
			slog.Time("locked_until", lockedUntil))
		s.audit.LogLockout(account.ID, account.Email, ip, lockedUntil)
	}

	return nil
}

// failAttempt records a failed attempt row and mirrors it to the audit log
func (s *AuthService) failAttempt(ctx context.Context, email, accountID, reason, auditReason, ip, userAgent string) {
	s.recordAttempt(ctx, &models.LoginAttempt{
		Email:         email,
		IPAddress:     optional(ip),
		UserAgent:     optional(userAgent),
		Success:       false,
		AttemptedAt:   time.Now().UTC(),
		FailureReason: &reason,
	})
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		Email:         email,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Success:       false,
		FailureReason: auditReason,
	})
}

// recordAttempt appends to the attempt trail. Failures here are logged but
// never block the login result.
func (s *AuthService) recordAttempt(ctx context.Context, attempt *models.LoginAttempt) {
	if err := repositories.NewLoginAttemptRepository(s.store).Record(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}

// buildUserInfo assembles the snapshot handed to callers: account identity
// plus the effective role names and deduplicated permission union.
func (s *AuthService) buildUserInfo(ctx context.Context, session *models.Session, now time.Time) (*models.UserInfo, error) {
	account, err := repositories.NewAccountRepository(s.store).GetByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	roles, err := repositories.NewRoleRepository(s.store).ListEffectiveForAccount(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	names := make([]string, 0, len(roles))
	seen := make(map[models.Permission]bool)
	perms := make([]models.Permission, 0)
	for _, role := range roles {
		names = append(names, role.Name)
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				perms = append(perms, p)
			}
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })

	return &models.UserInfo{
		AccountID:    account.ID,
		Email:        account.Email,
		DisplayName:  account.DisplayName,
		Roles:        names,
		Permissions:  perms,
		SessionToken: session.Token,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
