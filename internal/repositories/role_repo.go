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

// RoleRepository reads and writes role rows through any Querier
type RoleRepository struct {
	q storage.Querier
}

func NewRoleRepository(q storage.Querier) *RoleRepository {
	return &RoleRepository{q: q}
}

const roleColumns = `id, name, description, permissions, is_default, created_at, updated_at`

func scanRoleRow(scanner rowScanner) (*models.Role, error) {
	var role models.Role
	var permissions string
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&role.ID, &role.Name, &role.Description, &permissions,
		&role.IsDefault, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	role.Permissions = models.SplitPermissions(permissions)
	role.CreatedAt = storage.FromMillis(createdAt)
	role.UpdatedAt = storage.FromMillis(updatedAt)

	return &role, nil
}

func scanRoleRows(rows *sql.Rows) ([]*models.Role, error) {
	defer rows.Close()

	roles := make([]*models.Role, 0)

	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return roles, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = ?`
	return scanRoleRow(r.q.QueryRowContext(ctx, query, id))
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE name = ?`
	return scanRoleRow(r.q.QueryRowContext(ctx, query, models.NormalizeRoleName(name)))
}

// GetDefault returns the role granted to registrations that request none
func (r *RoleRepository) GetDefault(ctx context.Context) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE is_default = ? ORDER BY name LIMIT 1`
	return scanRoleRow(r.q.QueryRowContext(ctx, query, true))
}

func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}

	return scanRoleRows(rows)
}

// Create inserts a new role. The name must already be normalized.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	if err := role.Validate(); err != nil {
		return fmt.Errorf("invalid role: %w", err)
	}

	query := `
		INSERT INTO roles (` + roleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, query,
		role.ID, role.Name, role.Description, models.JoinPermissions(role.Permissions),
		role.IsDefault, storage.ToMillis(role.CreatedAt), storage.ToMillis(role.UpdatedAt),
	)
	return mapError(err)
}

// ListEffectiveForAccount returns the roles granted through assignments that
// are active and unexpired at the given instant.
func (r *RoleRepository) ListEffectiveForAccount(ctx context.Context, accountID string, now time.Time) ([]*models.Role, error) {
	query := `
		SELECT r.id, r.name, r.description, r.permissions, r.is_default, r.created_at, r.updated_at
		FROM roles r
		JOIN role_assignments ra ON ra.role_id = r.id
		WHERE ra.account_id = ?
		  AND ra.is_active = ?
		  AND (ra.expires_at IS NULL OR ra.expires_at > ?)
		ORDER BY r.name`

	rows, err := r.q.QueryContext(ctx, query, accountID, true, storage.ToMillis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query effective roles: %w", err)
	}

	return scanRoleRows(rows)
}
