package model

import (
	"slices"
	"time"
)

// User is an account allowed to use the API. PasswordHash is persisted but never rendered.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email" validate:"required,email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password"`
	Role         string    `json:"role" validate:"required"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created"`
}

// UserView is the public representation of a user.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created"`
}

// View strips the password hash.
func (u User) View() UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Status: u.Status, CreatedAt: u.CreatedAt}
}

// User statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// Roles.
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleInspector = "inspector"
)

// Permissions checked by the API. PermissionAll grants everything.
const (
	PermissionAll             = "*"
	PermissionInventoryRead   = "inventory.read"
	PermissionInventoryWrite  = "inventory.write"
	PermissionInventoryCheck  = "inventory.check"
	PermissionCatalogWrite    = "catalog.write"
	PermissionPropertiesRead  = "properties.read"
	PermissionPropertiesWrite = "properties.write"
	PermissionUsersManage     = "users.manage"
)

// Role is a named set of permissions.
type Role struct {
	Permissions []string `json:"permissions"`
}

// Allows reports whether the role grants permission.
func (r Role) Allows(permission string) bool {
	return slices.Contains(r.Permissions, PermissionAll) || slices.Contains(r.Permissions, permission)
}

// DefaultRoles are seeded into an empty users document.
func DefaultRoles() map[string]Role {
	return map[string]Role{
		RoleAdmin: {Permissions: []string{PermissionAll}},
		RoleManager: {Permissions: []string{
			PermissionInventoryRead,
			PermissionInventoryWrite,
			PermissionInventoryCheck,
			PermissionCatalogWrite,
			PermissionPropertiesRead,
			PermissionPropertiesWrite,
		}},
		RoleInspector: {Permissions: []string{
			PermissionInventoryRead,
			PermissionInventoryCheck,
			PermissionPropertiesRead,
		}},
	}
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Invalid("password", "must be at least 8 characters")
	}
	return nil
}
