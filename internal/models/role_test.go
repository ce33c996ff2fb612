package models

import (
	"strings"
	"testing"
	"time"
)

func TestParsePermission(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Permission
		wantErr bool
	}{
		{name: "read", input: "read", want: PermissionRead},
		{name: "write", input: "write", want: PermissionWrite},
		{name: "delete", input: "delete", want: PermissionDelete},
		{name: "admin", input: "admin", want: PermissionAdmin},
		{name: "user management", input: "user_management", want: PermissionUserManagement},
		{name: "system config", input: "system_config", want: PermissionSystemConfig},
		{name: "unknown", input: "superuser", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePermission(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePermission(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParsePermission(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRole_Validate(t *testing.T) {
	valid := func() *Role {
		return &Role{
			ID:          "role-1",
			Name:        "moderator",
			Description: "Forum moderator",
			Permissions: []Permission{PermissionRead, PermissionWrite},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *Role)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *Role) {}},
		{name: "name with underscore and hyphen", mutate: func(r *Role) { r.Name = "content_admin-2" }},
		{name: "empty name", mutate: func(r *Role) { r.Name = "" }, wantErr: true},
		{name: "uppercase name", mutate: func(r *Role) { r.Name = "Moderator" }, wantErr: true},
		{name: "name with spaces", mutate: func(r *Role) { r.Name = "forum moderator" }, wantErr: true},
		{name: "name too long", mutate: func(r *Role) { r.Name = strings.Repeat("a", MaxRoleNameLength+1) }, wantErr: true},
		{name: "description too long", mutate: func(r *Role) { r.Description = strings.Repeat("d", MaxRoleDescriptionLength+1) }, wantErr: true},
		{name: "invalid permission", mutate: func(r *Role) { r.Permissions = []Permission{"superuser"} }, wantErr: true},
		{name: "no permissions", mutate: func(r *Role) { r.Permissions = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoinPermissions(t *testing.T) {
	tests := []struct {
		name  string
		perms []Permission
		want  string
	}{
		{name: "sorted output", perms: []Permission{PermissionWrite, PermissionRead}, want: "read,write"},
		{name: "deduplicated", perms: []Permission{PermissionRead, PermissionRead, PermissionWrite}, want: "read,write"},
		{name: "empty", perms: nil, want: ""},
		{name: "single", perms: []Permission{PermissionAdmin}, want: "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinPermissions(tt.perms); got != tt.want {
				t.Errorf("JoinPermissions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitPermissions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Permission
	}{
		{name: "two entries", input: "read,write", want: []Permission{PermissionRead, PermissionWrite}},
		{name: "whitespace tolerated", input: "read, write", want: []Permission{PermissionRead, PermissionWrite}},
		{name: "unknown entries dropped", input: "read,superuser,write", want: []Permission{PermissionRead, PermissionWrite}},
		{name: "empty column", input: "", want: []Permission{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPermissions(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitPermissions(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitPermissions(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRoleAssignment_Effective(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name       string
		isActive   bool
		expiresAt  *time.Time
		want       bool
	}{
		{name: "active without expiry", isActive: true, expiresAt: nil, want: true},
		{name: "active with future expiry", isActive: true, expiresAt: &future, want: true},
		{name: "active but expired", isActive: true, expiresAt: &past, want: false},
		{name: "deactivated", isActive: false, expiresAt: nil, want: false},
		{name: "deactivated with future expiry", isActive: false, expiresAt: &future, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra := &RoleAssignment{
				ID:         "assign-1",
				AccountID:  "acct-1",
				RoleID:     "role-1",
				AssignedAt: past,
				ExpiresAt:  tt.expiresAt,
				IsActive:   tt.isActive,
			}
			if got := ra.Effective(now); got != tt.want {
				t.Errorf("Effective() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserInfo_HasPermissionAndRole(t *testing.T) {
	info := &UserInfo{
		AccountID:   "acct-1",
		Email:       "alice@example.com",
		Roles:       []string{"user", "moderator"},
		Permissions: []Permission{PermissionRead, PermissionWrite},
	}

	if !info.HasPermission(PermissionRead) {
		t.Error("expected read permission")
	}
	if info.HasPermission(PermissionAdmin) {
		t.Error("did not expect admin permission")
	}
	if !info.HasRole("user") {
		t.Error("expected user role")
	}
	if !info.HasRole("MODERATOR") {
		t.Error("role check should normalize case")
	}
	if info.HasRole("admin") {
		t.Error("did not expect admin role")
	}
}
