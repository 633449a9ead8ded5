package auth

import (
	"log/slog"
	"strings"
	"time"
)

const (
	defaultResetTTL = time.Hour
	tokenTypeBearer = "bearer"
	purposeReset    = "password_reset"
)

// Service bundles the authentication core: login, session resolution and the
// password reset flow.
type Service struct {
	identities IdentityStore
	codec      *TokenCodec
	hasher     PasswordHasher
	mailer     Mailer
	logger     *slog.Logger
	now        func() time.Time

	accessTTL time.Duration
	resetTTL  time.Duration
	resetURL  string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithHasher overrides the password hasher.
func WithHasher(h PasswordHasher) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithMailer sets the collaborator used to deliver reset links.
func WithMailer(m Mailer) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithResetTTL configures reset token lifetime.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithResetURL sets the page the emailed link points to.
func WithResetURL(u string) ServiceOption {
	return func(s *Service) {
		s.resetURL = strings.TrimSpace(u)
	}
}

// NewService constructs Service. The codec and store are required.
func NewService(identities IdentityStore, codec *TokenCodec, opts ...ServiceOption) *Service {
	svc := &Service{
		identities: identities,
		codec:      codec,
		hasher:     NewBcryptHasher(0),
		logger:     slog.Default(),
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		resetTTL:   defaultResetTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Hasher exposes the configured password hasher.
func (s *Service) Hasher() PasswordHasher { return s.hasher }

// Codec exposes the token codec.
func (s *Service) Codec() *TokenCodec { return s.codec }
