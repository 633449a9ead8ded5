package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("secret")
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	cases := []struct {
		subject string
		role    Role
	}{
		{"6f1c9c4e-8a55-4d0b-9f0a-9a3f3ee6c2d1", RoleUser},
		{"42", RoleAdmin},
		{"doctor@example.com", ""},
	}
	for _, tc := range cases {
		token, err := codec.Encode(tc.subject, tc.role, time.Minute, map[string]any{"scope": "test"})
		if err != nil {
			t.Fatalf("Encode(%q): %v", tc.subject, err)
		}
		claims, err := codec.Decode(token)
		if err != nil {
			t.Fatalf("Decode(%q): %v", tc.subject, err)
		}
		if claims.Subject != tc.subject {
			t.Fatalf("subject = %q, want %q", claims.Subject, tc.subject)
		}
		if claims.Role != tc.role {
			t.Fatalf("role = %q, want %q", claims.Role, tc.role)
		}
		if claims.Extra["scope"] != "test" {
			t.Fatalf("extra claim lost: %v", claims.Extra)
		}
	}
}

func TestTokenCodecReservedClaimsWin(t *testing.T) {
	codec, _ := NewTokenCodec("secret")
	token, err := codec.Encode("real", RoleUser, time.Minute, map[string]any{"sub": "forged", "role": "admin"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "real" || claims.Role != RoleUser {
		t.Fatalf("extra claims overrode reserved ones: %+v", claims)
	}
}

func TestTokenCodecExpiry(t *testing.T) {
	codec, _ := NewTokenCodec("secret")
	token, err := codec.Encode("subject", RoleUser, -time.Second, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	clock := newFakeClock()
	codec, _ = NewTokenCodec("secret", WithCodecClock(clock.Now))
	token, _ = codec.Encode("subject", RoleUser, time.Minute, nil)
	if _, err := codec.Decode(token); err != nil {
		t.Fatalf("Decode before expiry: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestTokenCodecDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	codec, _ := NewTokenCodec("secret", WithCodecClock(clock.Now), WithDefaultTTL(10*time.Minute))
	token, _ := codec.Encode("subject", "", 0, nil)
	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := claims.ExpiresAt.Sub(clock.Now()); got != 10*time.Minute {
		t.Fatalf("expected 10m lifetime, got %v", got)
	}
}

func TestTokenCodecTamperSensitivity(t *testing.T) {
	codec, _ := NewTokenCodec("secret")
	token, err := codec.Encode("subject", RoleDoctor, time.Hour, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if _, err := codec.Decode(string(b)); err == nil {
			t.Fatalf("tampered token accepted (position %d)", i)
		}
	}
}

func TestTokenCodecRejectsOtherSecretAndAlgorithm(t *testing.T) {
	a, _ := NewTokenCodec("secret-a")
	b, _ := NewTokenCodec("secret-b")
	token, _ := a.Encode("subject", RoleUser, time.Minute, nil)
	if _, err := b.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	hs512, err := NewTokenCodec("secret-a", WithAlgorithm("hs512"))
	if err != nil {
		t.Fatalf("NewTokenCodec HS512: %v", err)
	}
	if hs512.Algorithm() != "HS512" {
		t.Fatalf("unexpected algorithm %s", hs512.Algorithm())
	}
	if _, err := hs512.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected algorithm pinning to reject HS256 token, got %v", err)
	}
	if _, err := NewTokenCodec("secret", WithAlgorithm("RS256")); err == nil {
		t.Fatalf("expected non-HMAC algorithm to be rejected")
	}
	if _, err := NewTokenCodec("  "); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestTokenCodecDistinctTokens(t *testing.T) {
	codec, _ := NewTokenCodec("secret")
	a, _ := codec.Encode("subject", RoleUser, time.Minute, nil)
	b, _ := codec.Encode("subject", RoleUser, time.Minute, nil)
	if a == b {
		t.Fatalf("expected distinct tokens for repeated encodes")
	}
}
