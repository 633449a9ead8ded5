package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polyclinic/scheduler/internal/ids"
)

const defaultAccessTTL = 30 * time.Minute

// Claim names set by the codec. Extra claims never override them.
const (
	claimSubject   = "sub"
	claimRole      = "role"
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
	claimTokenID   = "jti"
	claimPurpose   = "purpose"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
	Extra     map[string]any
}

// Purpose returns the purpose claim, if any.
func (c Claims) Purpose() string {
	v, _ := c.Extra[claimPurpose].(string)
	return v
}

// TokenCodec signs and verifies expiring HMAC tokens.
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec) error

// WithAlgorithm selects the HMAC signing algorithm (HS256, HS384, HS512).
func WithAlgorithm(name string) CodecOption {
	return func(c *TokenCodec) error {
		name = strings.TrimSpace(strings.ToUpper(name))
		if name == "" {
			return nil
		}
		method, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC)
		if !ok {
			return fmt.Errorf("auth: unsupported signing algorithm %q", name)
		}
		c.method = method
		return nil
	}
}

// WithDefaultTTL sets the lifetime used when Encode receives a zero ttl.
func WithDefaultTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) error {
		if ttl > 0 {
			c.ttl = ttl
		}
		return nil
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewTokenCodec builds a codec around secret. The secret is required.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	c := &TokenCodec{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
		ttl:    defaultAccessTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Algorithm returns the JWT alg name in use.
func (c *TokenCodec) Algorithm() string { return c.method.Alg() }

// Encode signs a claim set for subject. A zero ttl uses the default lifetime;
// a negative ttl yields a token that is already expired.
func (c *TokenCodec) Encode(subject string, role Role, ttl time.Duration, extra map[string]any) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	now := c.now().UTC()

	claims := make(jwt.MapClaims, len(extra)+5)
	for k, v := range extra {
		claims[k] = v
	}
	claims[claimSubject] = subject
	claims[claimIssuedAt] = jwt.NewNumericDate(now)
	claims[claimExpiresAt] = jwt.NewNumericDate(now.Add(ttl))
	claims[claimTokenID] = ids.New()
	if role != "" {
		claims[claimRole] = string(role)
	} else {
		delete(claims, claimRole)
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry. Every failure is reported as ErrInvalidToken.
func (c *TokenCodec) Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}
	out := Claims{
		Subject:   sub,
		ExpiresAt: exp.Time,
		Extra:     make(map[string]any),
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if raw, ok := mc[claimRole]; ok {
		role, ok := raw.(string)
		if !ok {
			return Claims{}, ErrInvalidToken
		}
		out.Role = Role(role)
	}
	for k, v := range mc {
		switch k {
		case claimSubject, claimRole, claimExpiresAt, claimIssuedAt:
			continue
		}
		out.Extra[k] = v
	}
	return out, nil
}
