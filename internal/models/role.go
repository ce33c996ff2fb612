package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Permission is one entry of the closed permission catalog
type Permission string

const (
	PermissionRead           Permission = "read"
	PermissionWrite          Permission = "write"
	PermissionDelete         Permission = "delete"
	PermissionAdmin          Permission = "admin"
	PermissionUserManagement Permission = "user_management"
	PermissionSystemConfig   Permission = "system_config"
)

// AllPermissions is the whitelist of permissions a role may carry
var AllPermissions = map[Permission]bool{
	PermissionRead:           true,
	PermissionWrite:          true,
	PermissionDelete:         true,
	PermissionAdmin:          true,
	PermissionUserManagement: true,
	PermissionSystemConfig:   true,
}

// ParsePermission validates a raw permission string against the whitelist
func ParsePermission(s string) (Permission, error) {
	perm := Permission(s)
	if !AllPermissions[perm] {
		return "", fmt.Errorf("invalid permission %q", s)
	}
	return perm, nil
}

func (p Permission) Valid() bool {
	return AllPermissions[p]
}

func (p Permission) String() string {
	return string(p)
}

// Built-in role names seeded at storage bootstrap
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

const (
	MaxRoleNameLength        = 50
	MaxRoleDescriptionLength = 200
)

var roleNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeRoleName lowercases and trims a role name for storage and lookups
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Role is a named permission set granted to accounts through assignments
type Role struct {
	ID          string
	Name        string // normalized lowercase, [a-z0-9_-]
	Description string
	Permissions []Permission
	IsDefault   bool // granted on registration when no role is requested
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks structural invariants before a role row is written
func (r *Role) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("role name is required")
	}
	if len(r.Name) > MaxRoleNameLength {
		return fmt.Errorf("role name cannot exceed %d characters", MaxRoleNameLength)
	}
	if !roleNamePattern.MatchString(r.Name) {
		return fmt.Errorf("role name %q may only contain lowercase letters, digits, underscores and hyphens", r.Name)
	}
	if len(r.Description) > MaxRoleDescriptionLength {
		return fmt.Errorf("role description cannot exceed %d characters", MaxRoleDescriptionLength)
	}
	for _, p := range r.Permissions {
		if !p.Valid() {
			return fmt.Errorf("invalid permission %q", p)
		}
	}
	return nil
}

// HasPermission checks membership in the role's permission set
func (r *Role) HasPermission(p Permission) bool {
	for _, held := range r.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// JoinPermissions flattens a permission set into the stored column value:
// comma-joined, deduplicated, sorted.
func JoinPermissions(perms []Permission) string {
	seen := make(map[Permission]bool, len(perms))
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		if seen[p] {
			continue
		}
		seen[p] = true
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// SplitPermissions parses a stored permission column. Entries outside the
// catalog are dropped rather than failing the whole role.
func SplitPermissions(s string) []Permission {
	if s == "" {
		return []Permission{}
	}
	parts := strings.Split(s, ",")
	perms := make([]Permission, 0, len(parts))
	for _, part := range parts {
		perm, err := ParsePermission(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		perms = append(perms, perm)
	}
	return perms
}

// RoleAssignment links an account to a role, optionally until a deadline.
// Assignments are deactivated on revocation, never deleted.
type RoleAssignment struct {
	ID         string
	AccountID  string
	RoleID     string
	AssignedAt time.Time
	AssignedBy *string // nil means self-service or system
	ExpiresAt  *time.Time
	IsActive   bool
}

// Effective reports whether the assignment currently grants its role
func (ra *RoleAssignment) Effective(now time.Time) bool {
	if !ra.IsActive {
		return false
	}
	if ra.ExpiresAt != nil && !now.Before(*ra.ExpiresAt) {
		return false
	}
	return true
}
