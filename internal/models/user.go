package models

// Role is the application-wide role assigned to a user by the host app.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleManager    Role = "manager"
	RoleDVS        Role = "dvs"
	RoleQA         Role = "qa"
	RoleRisk       Role = "risk"
	RoleUser       Role = "user"
)

// Privileged reports whether the role may read tombstoned content and edit history.
func (r Role) Privileged() bool {
	return r == RoleManager || r == RoleSuperadmin
}

// CanManageGroups reports whether the role may create group channels and
// override group-admin gates.
func (r Role) CanManageGroups() bool {
	return r == RoleManager || r == RoleSuperadmin
}

// User mirrors the host application's users table. The messaging subsystem
// only reads it; user records are owned by the host app.
type User struct {
	ID          int    `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url"`
	Role        Role   `db:"role" json:"role"`
}
