package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdentityStore is the persistence surface the auth core depends on.
// Lookups return ErrNotFound when no identity matches.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id uuid.UUID) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)

	// SetResetToken replaces any pending reset token in a single write.
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error

	// ConsumeResetToken stores passwordHash and clears the reset fields only if
	// the persisted token still equals token and has not expired at now.
	// It reports false when no row matched.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (bool, error)
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}
