package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/repositories"
	"github.com/sacbeh/gatehouse/internal/storage"
	_ "github.com/sacbeh/gatehouse/internal/storage/sqlite"
	pkglogger "github.com/sacbeh/gatehouse/pkg/logger"
)

const (
	// testPassword satisfies every password policy rule
	testPassword  = "Str0ng!passwd"
	wrongPassword = "Wr0ng!passwd"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService builds an engine over a private in-memory database. The
// lockout threshold is lowered to 3 so lockout paths stay cheap to reach.
func newTestService(t *testing.T, name string) (*AuthService, storage.Connector) {
	t.Helper()

	logger := discardLogger()
	conn, err := storage.Open(context.Background(), storage.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	svc := NewAuthService(conn, Config{
		SessionTTL:        time.Hour,
		MaxFailedAttempts: 3,
		LockoutDuration:   30 * time.Minute,
		PasswordMinLength: 8,
	}, logger, pkglogger.NewAuditLogger(logger))

	return svc, conn
}

func registerTestAccount(t *testing.T, svc *AuthService, email string) *models.Account {
	t.Helper()

	account, err := svc.Register(context.Background(), email, testPassword, "Test Person", "")
	require.NoError(t, err)
	return account
}

func loginTestAccount(t *testing.T, svc *AuthService, email string) *models.Session {
	t.Helper()

	session, err := svc.Authenticate(context.Background(), email, testPassword, "192.0.2.1", "gatehouse-test/1.0")
	require.NoError(t, err)
	return session
}

func setUnverified(t *testing.T, conn storage.Connector, accountID string) {
	t.Helper()

	_, err := conn.ExecContext(context.Background(),
		`UPDATE accounts SET email_verified = ? WHERE id = ?`, false, accountID)
	require.NoError(t, err)
}

func expireSession(t *testing.T, conn storage.Connector, token string) {
	t.Helper()

	past := storage.ToMillis(time.Now().UTC().Add(-time.Minute))
	_, err := conn.ExecContext(context.Background(),
		`UPDATE sessions SET expires_at = ? WHERE token = ?`, past, token)
	require.NoError(t, err)
}

func fetchAccount(t *testing.T, conn storage.Connector, id string) *models.Account {
	t.Helper()

	account, err := repositories.NewAccountRepository(conn).GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func fetchSession(t *testing.T, conn storage.Connector, token string) *models.Session {
	t.Helper()

	session, err := repositories.NewSessionRepository(conn).GetByToken(context.Background(), token)
	require.NoError(t, err)
	return session
}

// attemptReasons returns the recorded failure reasons for an email, newest
// first; successful attempts appear as empty strings.
func attemptReasons(t *testing.T, conn storage.Connector, email string) []string {
	t.Helper()

	attempts, err := repositories.NewLoginAttemptRepository(conn).ListByEmail(context.Background(), email, 50)
	require.NoError(t, err)

	reasons := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.FailureReason != nil {
			reasons = append(reasons, *attempt.FailureReason)
		} else {
			reasons = append(reasons, "")
		}
	}
	return reasons
}
