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

// LoginAttemptRepository appends to the login attempt audit trail. Rows are
// insert-only; nothing in the engine updates or deletes them.
type LoginAttemptRepository struct {
	q storage.Querier
}

func NewLoginAttemptRepository(q storage.Querier) *LoginAttemptRepository {
	return &LoginAttemptRepository{q: q}
}

const attemptColumns = `id, email, ip_address, user_agent, success, attempted_at, failure_reason`

// Record appends one attempt row. ID and timestamp are filled in when the
// caller left them zero.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO login_attempts (` + attemptColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		attempt.ID, models.NormalizeEmail(attempt.Email),
		nullString(attempt.IPAddress), nullString(attempt.UserAgent),
		attempt.Success, storage.ToMillis(attempt.AttemptedAt),
		nullString(attempt.FailureReason),
	)
	return mapError(err)
}

// ListByEmail returns the most recent attempts for an email, newest first
func (r *LoginAttemptRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT ` + attemptColumns + ` FROM login_attempts
		WHERE email = ?
		ORDER BY attempted_at DESC
		LIMIT ?`

	rows, err := r.q.QueryContext(ctx, query, models.NormalizeEmail(email), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)

	for rows.Next() {
		attempt, err := scanAttemptRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

// CountFailuresSince reports failed attempts for an email at or after the
// given instant.
func (r *LoginAttemptRepository) CountFailuresSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = ? AND success = ? AND attempted_at >= ?`

	var count int
	err := r.q.QueryRowContext(ctx, query, models.NormalizeEmail(email), false, storage.ToMillis(since)).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}

	return count, nil
}

func scanAttemptRow(scanner rowScanner) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	var attemptedAt int64
	var ipAddress, userAgent, failureReason sql.NullString

	err := scanner.Scan(
		&attempt.ID, &attempt.Email, &ipAddress, &userAgent,
		&attempt.Success, &attemptedAt, &failureReason,
	)
	if err != nil {
		return nil, mapError(err)
	}

	attempt.IPAddress = stringFromNull(ipAddress)
	attempt.UserAgent = stringFromNull(userAgent)
	attempt.AttemptedAt = storage.FromMillis(attemptedAt)
	attempt.FailureReason = stringFromNull(failureReason)

	return &attempt, nil
}
