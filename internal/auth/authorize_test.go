package auth

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	user := newCurrentUser(newTestIdentity("u@example.com", RoleUser), "tok")
	admin := newCurrentUser(newTestIdentity("a@example.com", RoleAdmin), "tok")

	if err := Authorize(admin, RoleAdmin); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	err := Authorize(user, RoleAdmin)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("forbidden must not be unauthenticated")
	}
	if err := Authorize(user, RoleDoctor, RoleUser); err != nil {
		t.Fatalf("user denied: %v", err)
	}
	if err := Authorize(user); !errors.Is(err, ErrForbidden) {
		t.Fatalf("empty allow list should deny, got %v", err)
	}
}

func TestCheckActive(t *testing.T) {
	id := newTestIdentity("u@example.com", RoleUser)
	if err := CheckActive(newCurrentUser(id, "")); err != nil {
		t.Fatalf("active user rejected: %v", err)
	}
	id.Disabled = true
	if err := CheckActive(newCurrentUser(id, "")); !errors.Is(err, ErrAccountDisabled) || !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestAdminOrSelf(t *testing.T) {
	owner := newTestIdentity("o@example.com", RoleUser)
	other := newTestIdentity("x@example.com", RoleUser)
	admin := newTestIdentity("a@example.com", RoleAdmin)

	if err := AdminOrSelf(newCurrentUser(owner, ""), owner.ID); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := AdminOrSelf(newCurrentUser(admin, ""), owner.ID); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	if err := AdminOrSelf(newCurrentUser(other, ""), owner.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(""); err != nil || r != RoleUser {
		t.Fatalf("empty role = %q, %v", r, err)
	}
	if r, err := ParseRole(" Doctor "); err != nil || r != RoleDoctor {
		t.Fatalf("doctor role = %q, %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
