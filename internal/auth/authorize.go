package auth

import "github.com/google/uuid"

// Authorize allows the operation only when user's role is in allowed.
func Authorize(user CurrentUser, allowed ...Role) error {
	for _, role := range allowed {
		if user.role == role {
			return nil
		}
	}
	return ErrRoleNotPermitted
}

// CheckActive rejects disabled accounts.
func CheckActive(user CurrentUser) error {
	if user.disabled {
		return ErrAccountDisabled
	}
	return nil
}

// AdminOrSelf allows admins and the identity that owns the resource.
func AdminOrSelf(user CurrentUser, ownerID uuid.UUID) error {
	if user.role == RoleAdmin || user.id == ownerID {
		return nil
	}
	return ErrRoleNotPermitted
}
