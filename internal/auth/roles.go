package auth

import "strings"

// Role is the closed set of identity roles.
type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

// DefaultRole is assigned when none is given.
const DefaultRole = RoleUser

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDoctor:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes raw input. An empty value yields DefaultRole.
func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return DefaultRole, nil
	}
	role := Role(raw)
	if !role.Valid() {
		return "", Invalid("role", "must be one of user, admin, doctor")
	}
	return role, nil
}
