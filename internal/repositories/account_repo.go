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

// AccountRepository reads and writes account rows through any Querier, so
// the same logic serves both pooled and transaction-scoped access.
type AccountRepository struct {
	q storage.Querier
}

func NewAccountRepository(q storage.Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

const accountColumns = `id, email, display_name, password_hash, salt, status, failed_attempts, locked_until, email_verified, verification_token, password_changed_at, created_at, last_login`

// scanAccountRow handles nullable fields and populates an Account from a
// database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var status string
	var lockedUntil, lastLogin sql.NullInt64
	var verificationToken sql.NullString
	var passwordChangedAt, createdAt int64

	err := scanner.Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.Salt,
		&status, &account.FailedAttempts, &lockedUntil, &account.EmailVerified,
		&verificationToken, &passwordChangedAt, &createdAt, &lastLogin,
	)
	if err != nil {
		return nil, mapError(err)
	}

	account.Status = models.AccountStatus(status)
	account.LockedUntil = storage.TimeFromNull(lockedUntil)
	account.VerificationToken = stringFromNull(verificationToken)
	account.PasswordChangedAt = storage.FromMillis(passwordChangedAt)
	account.CreatedAt = storage.FromMillis(createdAt)
	account.LastLogin = storage.TimeFromNull(lastLogin)

	return &account, nil
}

func scanAccountRows(rows *sql.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return scanAccountRow(r.q.QueryRowContext(ctx, query, id))
}

// GetByEmail looks an account up by normalized address, so any case variant
// of the same mailbox resolves to one row.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`
	return scanAccountRow(r.q.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

// Create inserts a new account row. The ID is generated when absent;
// timestamps are the caller's responsibility.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if err := account.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		account.ID, account.Email, account.DisplayName, account.PasswordHash, account.Salt,
		string(account.Status), account.FailedAttempts, storage.NullableMillis(account.LockedUntil),
		account.EmailVerified, nullString(account.VerificationToken),
		storage.ToMillis(account.PasswordChangedAt), storage.ToMillis(account.CreatedAt),
		storage.NullableMillis(account.LastLogin),
	)
	return mapError(err)
}

// IncrementFailedAttempts bumps the counter atomically and returns the new
// value, avoiding the read-modify-write race between concurrent failures.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE accounts SET failed_attempts = failed_attempts + 1
		WHERE id = ?
		RETURNING failed_attempts`

	var count int
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// Lock transitions the account into the locked state until the deadline
func (r *AccountRepository) Lock(ctx context.Context, id string, until time.Time) error {
	query := `UPDATE accounts SET status = ?, locked_until = ? WHERE id = ?`
	return r.execOne(ctx, query, string(models.StatusLocked), storage.ToMillis(until), id)
}

// Unlock restores a lapsed lock to the active state and clears the counter
func (r *AccountRepository) Unlock(ctx context.Context, id string) error {
	query := `UPDATE accounts SET status = ?, locked_until = NULL, failed_attempts = 0 WHERE id = ?`
	return r.execOne(ctx, query, string(models.StatusActive), id)
}

func (r *AccountRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	query := `UPDATE accounts SET failed_attempts = 0 WHERE id = ?`
	return r.execOne(ctx, query, id)
}

func (r *AccountRepository) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET last_login = ? WHERE id = ?`
	return r.execOne(ctx, query, storage.ToMillis(at), id)
}

// SetStatus writes a status transition. lockedUntil must be present exactly
// when the new status is locked.
func (r *AccountRepository) SetStatus(ctx context.Context, id string, status models.AccountStatus, lockedUntil *time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid account status %q", status)
	}
	if (status == models.StatusLocked) != (lockedUntil != nil) {
		return fmt.Errorf("locked_until must be set exactly when status is locked")
	}

	query := `UPDATE accounts SET status = ?, locked_until = ? WHERE id = ?`
	return r.execOne(ctx, query, string(status), storage.NullableMillis(lockedUntil), id)
}

func (r *AccountRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}
