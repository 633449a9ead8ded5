package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const resetSubject = "Password reset"

// RequestPasswordReset issues a reset token for email, persists it on the
// identity and mails a link carrying it. Any previous reset token is replaced.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Invalid("email", "is required")
	}
	identity, err := s.identities.FindIdentityByEmail(ctx, email)
	if err != nil {
		return err
	}

	expires := s.now().UTC().Add(s.resetTTL)
	token, err := s.codec.Encode(email, "", s.resetTTL, map[string]any{claimPurpose: purposeReset})
	if err != nil {
		return err
	}
	if err := s.identities.SetResetToken(ctx, identity.ID, token, expires); err != nil {
		return err
	}
	if s.mailer == nil {
		s.logger.WarnContext(ctx, "no mailer configured; reset link not delivered", "user_id", identity.ID.String())
		return nil
	}
	msg := Message{
		To:      identity.Email,
		Subject: resetSubject,
		Body:    fmt.Sprintf("Follow this link to choose a new password:\n\n%s\n\nThe link expires at %s.\n", s.resetLink(token), expires.Format("2006-01-02 15:04 MST")),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("auth: send reset mail: %w", err)
	}
	return nil
}

// ConfirmPasswordReset consumes token and sets newPassword. The token is
// single-use: the stored copy is cleared in the same write that stores the
// new digest.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	claims, err := s.codec.Decode(token)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Purpose() != purposeReset || claims.Subject == "" {
		return ErrInvalidToken
	}
	identity, err := s.identities.FindIdentityByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if identity.ResetToken == "" || subtle.ConstantTimeCompare([]byte(identity.ResetToken), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	now := s.now().UTC()
	if identity.ResetTokenExpires == nil || now.After(*identity.ResetTokenExpires) {
		return ErrTokenExpired
	}

	if err := ValidatePassword("new_password", newPassword); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.identities.ConsumeResetToken(ctx, identity.ID, token, digest, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return nil
}

func (s *Service) resetLink(token string) string {
	if s.resetURL == "" {
		return token
	}
	sep := "?"
	if strings.Contains(s.resetURL, "?") {
		sep = "&"
	}
	return s.resetURL + sep + "token=" + url.QueryEscape(token)
}
