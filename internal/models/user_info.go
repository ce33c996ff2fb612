package models

// UserInfo is the snapshot returned by session verification: identity plus
// the effective roles and permission union at verification time.
type UserInfo struct {
	AccountID    string       `json:"account_id"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name"`
	Roles        []string     `json:"roles"`
	Permissions  []Permission `json:"permissions"`
	SessionToken string       `json:"-"`
}

// HasPermission checks the snapshot's permission union
func (ui *UserInfo) HasPermission(p Permission) bool {
	for _, held := range ui.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// HasRole checks the snapshot's role names
func (ui *UserInfo) HasRole(name string) bool {
	name = NormalizeRoleName(name)
	for _, held := range ui.Roles {
		if held == name {
			return true
		}
	}
	return false
}
