package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sacbeh/gatehouse/internal/models"
	"github.com/sacbeh/gatehouse/internal/storage"
)

// RoleAssignmentRepository manages the account-to-role grant rows
type RoleAssignmentRepository struct {
	q storage.Querier
}

func NewRoleAssignmentRepository(q storage.Querier) *RoleAssignmentRepository {
	return &RoleAssignmentRepository{q: q}
}

const assignmentColumns = `id, account_id, role_id, assigned_at, assigned_by, expires_at, is_active`

func scanAssignmentRow(scanner rowScanner) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	var assignedAt int64
	var assignedBy sql.NullString
	var expiresAt sql.NullInt64

	err := scanner.Scan(
		&assignment.ID, &assignment.AccountID, &assignment.RoleID,
		&assignedAt, &assignedBy, &expiresAt, &assignment.IsActive,
	)
	if err != nil {
		return nil, mapError(err)
	}

	assignment.AssignedAt = storage.FromMillis(assignedAt)
	assignment.AssignedBy = stringFromNull(assignedBy)
	assignment.ExpiresAt = storage.TimeFromNull(expiresAt)

	return &assignment, nil
}

func (r *RoleAssignmentRepository) Create(ctx context.Context, assignment *models.RoleAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}

	query := `
		INSERT INTO role_assignments (` + assignmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		assignment.ID, assignment.AccountID, assignment.RoleID,
		storage.ToMillis(assignment.AssignedAt), nullString(assignment.AssignedBy),
		storage.NullableMillis(assignment.ExpiresAt), assignment.IsActive,
	)
	return mapError(err)
}

// HasActiveAssignment reports whether the account already holds an active,
// unexpired grant of the role.
func (r *RoleAssignmentRepository) HasActiveAssignment(ctx context.Context, accountID, roleID string, nowMillis int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM role_assignments
		WHERE account_id = ? AND role_id = ? AND is_active = ?
		  AND (expires_at IS NULL OR expires_at > ?)`

	var count int
	err := r.q.QueryRowContext(ctx, query, accountID, roleID, true, nowMillis).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}

	return count > 0, nil
}

// DeactivateByRole revokes every active grant of the role held by the account
// and returns how many rows it touched.
func (r *RoleAssignmentRepository) DeactivateByRole(ctx context.Context, accountID, roleID string) (int64, error) {
	query := `
		UPDATE role_assignments SET is_active = ?
		WHERE account_id = ? AND role_id = ? AND is_active = ?`

	result, err := r.q.ExecContext(ctx, query, false, accountID, roleID, true)
	if err != nil {
		return 0, mapError(err)
	}

	return result.RowsAffected()
}

func (r *RoleAssignmentRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.RoleAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + ` FROM role_assignments
		WHERE account_id = ?
		ORDER BY assigned_at DESC`

	rows, err := r.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]*models.RoleAssignment, 0)

	for rows.Next() {
		assignment, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return assignments, nil
}
