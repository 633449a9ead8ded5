package auth

import (
	"context"
	"errors"
	"strings"
)

// Login verifies username (the identity's email) and password and issues an
// access token carrying the identity's current role.
func (s *Service) Login(ctx context.Context, username, password string) (AccessToken, Identity, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return AccessToken{}, Identity{}, ErrUnknownUsername
	}
	identity, err := s.identities.FindIdentityByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AccessToken{}, Identity{}, ErrUnknownUsername
		}
		return AccessToken{}, Identity{}, err
	}
	if !s.hasher.Verify(password, identity.PasswordHash) {
		return AccessToken{}, Identity{}, ErrWrongPassword
	}
	if identity.Disabled {
		return AccessToken{}, Identity{}, ErrAccountDisabled
	}

	token, err := s.IssueAccessToken(identity)
	if err != nil {
		return AccessToken{}, Identity{}, err
	}
	return token, identity, nil
}

// IssueAccessToken signs an access token for identity.
func (s *Service) IssueAccessToken(identity Identity) (AccessToken, error) {
	expires := s.now().UTC().Add(s.accessTTL)
	signed, err := s.codec.Encode(identity.ID.String(), identity.Role, s.accessTTL, map[string]any{
		claimPurpose: purposeAccess,
	})
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Type: tokenTypeBearer, ExpiresAt: expires}, nil
}
