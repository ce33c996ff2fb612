package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sacbeh/gatehouse/internal/models"
)

// BuiltinRoles are seeded on every open. Rows are inserted only when the
// name is absent, so operator edits to descriptions or permission sets
// survive restarts.
var BuiltinRoles = []models.Role{
	{
		Name:        models.RoleAdmin,
		Description: "System administrator with full access",
		Permissions: []models.Permission{
			models.PermissionRead,
			models.PermissionWrite,
			models.PermissionDelete,
			models.PermissionAdmin,
			models.PermissionUserManagement,
			models.PermissionSystemConfig,
		},
	},
	{
		Name:        models.RoleUser,
		Description: "Standard user with basic permissions",
		Permissions: []models.Permission{
			models.PermissionRead,
			models.PermissionWrite,
		},
		IsDefault: true,
	},
	{
		Name:        models.RoleGuest,
		Description: "Guest user with read-only access",
		Permissions: []models.Permission{
			models.PermissionRead,
		},
	},
}

// SeedRoles inserts any missing built-in roles inside one transaction
func SeedRoles(ctx context.Context, conn Connector) error {
	return conn.WithinTx(ctx, func(q Querier) error {
		for _, role := range BuiltinRoles {
			var count int
			err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles WHERE name = ?`, role.Name).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to check role %q: %w", role.Name, err)
			}
			if count > 0 {
				continue
			}

			now := ToMillis(time.Now())
			_, err = q.ExecContext(ctx, `
				INSERT INTO roles (id, name, description, permissions, is_default, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), role.Name, role.Description,
				models.JoinPermissions(role.Permissions), role.IsDefault, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to seed role %q: %w", role.Name, err)
			}
		}
		return nil
	})
}
