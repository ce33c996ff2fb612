package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/storage"
)

// SessionRepository manages session rows. Sessions are deactivated in place
// and never deleted, so login history stays reconstructable.
type SessionRepository struct {
	q storage.Querier
}

func NewSessionRepository(q storage.Querier) *SessionRepository {
	return &SessionRepository{q: q}
}

const sessionColumns = `id, token, account_id, created_at, expires_at, ip_address, user_agent, is_active, last_activity`

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var session models.Session
	var createdAt, expiresAt, lastActivity int64
	var ipAddress, userAgent sql.NullString

	err := scanner.Scan(
		&session.ID, &session.Token, &session.AccountID,
		&createdAt, &expiresAt, &ipAddress, &userAgent,
		&session.IsActive, &lastActivity,
	)
	if err != nil {
		return nil, mapError(err)
	}

	session.CreatedAt = storage.FromMillis(createdAt)
	session.ExpiresAt = storage.FromMillis(expiresAt)
	session.IPAddress = stringFromNull(ipAddress)
	session.UserAgent = stringFromNull(userAgent)
	session.LastActivity = storage.FromMillis(lastActivity)

	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		session.ID, session.Token, session.AccountID,
		storage.ToMillis(session.CreatedAt), storage.ToMillis(session.ExpiresAt),
		nullString(session.IPAddress), nullString(session.UserAgent),
		session.IsActive, storage.ToMillis(session.LastActivity),
	)
	return mapError(err)
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token = ?`
	return scanSessionRow(r.q.QueryRowContext(ctx, query, token))
}

// Deactivate marks the session inactive. Unknown tokens are not an error so
// logout stays idempotent.
func (r *SessionRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET is_active = ? WHERE token = ?`

	_, err := r.q.ExecContext(ctx, query, false, token)
	return mapError(err)
}

// Touch advances the session's last activity timestamp
func (r *SessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	query := `UPDATE sessions SET last_activity = ? WHERE token = ? AND is_active = ?`

	_, err := r.q.ExecContext(ctx, query, storage.ToMillis(at), token, true)
	return mapError(err)
}

// DeactivateExpired marks every active session whose expiry has passed as
// inactive and returns the number of rows it swept.
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sessions SET is_active = ? WHERE is_active = ? AND expires_at <= ?`

	result, err := r.q.ExecContext(ctx, query, false, true, storage.ToMillis(now))
	if err != nil {
		return 0, mapError(err)
	}

	return result.RowsAffected()
}

// DeactivateByAccount revokes every active session the account holds. Used
// when a lockout or status change must cut existing access immediately.
func (r *SessionRepository) DeactivateByAccount(ctx context.Context, accountID string) (int64, error) {
	query := `UPDATE sessions SET is_active = ? WHERE account_id = ? AND is_active = ?`

	result, err := r.q.ExecContext(ctx, query, false, accountID, true)
	if err != nil {
		return 0, mapError(err)
	}

	return result.RowsAffected()
}

// CountActiveByAccount reports how many live sessions the account holds
func (r *SessionRepository) CountActiveByAccount(ctx context.Context, accountID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE account_id = ? AND is_active = ? AND expires_at > ?`

	var count int
	err := r.q.QueryRowContext(ctx, query, accountID, true, storage.ToMillis(now)).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}

	return count, nil
}
