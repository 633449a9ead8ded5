package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/polyclinic/scheduler/internal/ids"
)

const purposeAccess = "access"

// Resolve turns a bearer token into the current user. Every failure matches
// ErrUnauthenticated; the stored role is checked on each call because it can
// change after the token was issued.
func (s *Service) Resolve(ctx context.Context, token string) (CurrentUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return CurrentUser{}, ErrNotAuthenticated
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return CurrentUser{}, ErrInvalidCredentials
	}
	if p := claims.Purpose(); p != "" && p != purposeAccess {
		return CurrentUser{}, ErrInvalidCredentials
	}
	id, ok := ids.ParseEntity(claims.Subject)
	if !ok {
		return CurrentUser{}, ErrInvalidCredentials
	}

	identity, err := s.identities.FindIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CurrentUser{}, ErrInvalidCredentials
		}
		return CurrentUser{}, err
	}
	if !identity.Role.Valid() {
		s.logger.WarnContext(ctx, "identity has unknown role", "user_id", identity.ID.String(), "role", string(identity.Role))
		return CurrentUser{}, ErrInvalidUserAttributes
	}
	if claims.Role != "" && claims.Role != identity.Role {
		return CurrentUser{}, ErrRoleMismatch
	}
	return newCurrentUser(identity, token), nil
}
