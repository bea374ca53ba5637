package domain

import "strings"

// Role is a normalized actor role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDriver   Role = "DRIVER"
	RoleCustomer Role = "CUSTOMER"
)

// Actor identifies who is requesting an operation. It is always passed
// explicitly; the core never reads identity from ambient request state.
type Actor struct {
	ID    string
	Roles []Role
}

// IsAuthenticated reports whether the actor carries an identity.
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// NormalizeRoles maps raw role strings (single role or role list, any case)
// to the Role enum, dropping anything unknown. Called once per request at
// the boundary.
func NormalizeRoles(raw []string) []Role {
	var roles []Role
	for _, r := range raw {
		switch Role(strings.ToUpper(strings.TrimSpace(r))) {
		case RoleAdmin:
			roles = append(roles, RoleAdmin)
		case RoleDriver:
			roles = append(roles, RoleDriver)
		case RoleCustomer:
			roles = append(roles, RoleCustomer)
		}
	}
	return roles
}
