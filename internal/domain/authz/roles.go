package authz

import "github.com/questboard/questboard-api/internal/domain/user"

// Role is re-exported so callers of the guard don't need the user package.
type Role = user.Role

// Role sets accepted by the mutating entry points.
var (
	Approvers      = []Role{user.RoleApprover, user.RolePlatformAdmin}
	Reviewers      = []Role{user.RoleReviewer, user.RoleApprover, user.RolePlatformAdmin}
	PlatformAdmins = []Role{user.RolePlatformAdmin}
	Creators       = []Role{user.RoleEducator, user.RoleApprover, user.RolePlatformAdmin}
	Submitters     = user.ValidRoles()
)

// Allows reports whether role is in the allowed set. An empty set allows nothing.
func Allows(allowed []Role, role Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
