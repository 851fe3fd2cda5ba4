package user

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches users.role check)
type Role string

const (
	RoleStudent       Role = "student"
	RoleEducator      Role = "educator"
	RoleReviewer      Role = "reviewer"
	RoleApprover      Role = "approver"
	RolePlatformAdmin Role = "platform_admin"
)

// User is the identity record the engine trusts for role decisions.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        Role      `db:"role" json:"role"`
	IsBanned    bool      `db:"is_banned" json:"is_banned"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive returns true if user is not banned
func (u *User) IsActive() bool {
	return !u.IsBanned
}

// ValidRoles returns every role the users table accepts.
func ValidRoles() []Role {
	return []Role{RoleStudent, RoleEducator, RoleReviewer, RoleApprover, RolePlatformAdmin}
}

// IsValidRole checks if role is known
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if string(r) == role {
			return true
		}
	}
	return false
}
