// Package authz implements the role and organization scoped permission model.
// Every function is pure: no I/O, no shared state, and unknown inputs fail closed.
package authz

import "strings"

// Role is the application-level privilege tier attached to a profile.
type Role string

const (
	// RoleAdmin bypasses the organization partition entirely.
	RoleAdmin Role = "admin"
	// RoleManager manages resources inside its own organization.
	RoleManager Role = "manager"
	// RoleUser is the default tier for helpdesk agents and requesters.
	RoleUser Role = "user"
	// RoleUnknown is returned for unrecognized input and grants nothing.
	RoleUnknown Role = ""
)

// ParseRole normalizes a stored role string. Unrecognized values map to
// RoleUnknown so downstream checks fail closed.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	case RoleUser:
		return RoleUser
	default:
		return RoleUnknown
	}
}

// Valid reports whether the role is one of the three recognized tiers.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleUser
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
