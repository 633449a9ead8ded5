package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogin(t *testing.T) {
	clock := newFakeClock()
	id := newTestIdentity("ada@example.com", RoleDoctor)
	svc := newTestService(t, newMemIdentities(id), clock, WithAccessTTL(15*time.Minute))
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrUnknownUsername) {
		t.Fatalf("expected ErrUnknownUsername, got %v", err)
	}
	_, _, err := svc.Login(ctx, "ada@example.com", "wrong")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err.Error() == ErrUnknownUsername.Error() {
		t.Fatalf("username and password failures must differ")
	}

	tok, who, err := svc.Login(ctx, "ADA@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if who.ID != id.ID || tok.Type != "bearer" {
		t.Fatalf("unexpected login result %+v %+v", tok, who)
	}
	if !tok.ExpiresAt.Equal(clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}
	claims, err := svc.Codec().Decode(tok.Token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != id.ID.String() || claims.Role != RoleDoctor {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginDisabled(t *testing.T) {
	id := newTestIdentity("ada@example.com", RoleUser)
	id.Disabled = true
	svc := newTestService(t, newMemIdentities(id), newFakeClock())
	_, _, err := svc.Login(context.Background(), "ada@example.com", "s3cret-pass")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}
