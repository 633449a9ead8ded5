package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
)

// resolvedUser registers an identity with role and resolves it from a fresh token.
func resolvedUser(t *testing.T, role auth.Role, disabled bool) auth.CurrentUser {
	t.Helper()
	store := clinic.NewInMemory()
	hasher := auth.NewBcryptHasher(4)
	codec, err := auth.NewTokenCodec("authn-test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	svc := clinic.NewService(store, hasher)
	authn := auth.NewService(store, codec, auth.WithHasher(hasher))

	identity, err := svc.CreateUser(context.Background(), clinic.UserInput{
		Name: "Role", Email: string(role) + "@example.com", Password: testPassword, Role: string(role),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if disabled {
		off := true
		if _, err := store.UpdateUser(context.Background(), identity.ID, clinic.UserUpdate{Disabled: &off}); err != nil {
			t.Fatalf("disable user: %v", err)
		}
	}
	tok, err := authn.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	user, err := authn.Resolve(context.Background(), tok.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return user
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin, auth.RoleDoctor)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), resolvedUser(t, auth.RoleDoctor, false)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), resolvedUser(t, auth.RoleUser, false)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestRequireRolesRejectsDisabledUser(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), resolvedUser(t, auth.RoleAdmin, true)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disabled admin, got %d", rr.Code)
	}
}

func TestRequireRolesRejectsMissingUser(t *testing.T) {
	handler := RequireRoles(auth.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("unexpected WWW-Authenticate header: %q", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {header: "Bearer abc.def", token: "abc.def", ok: true},
		"lower scheme": {header: "bearer abc", token: "abc", ok: true},
		"empty":        {header: "", ok: false},
		"basic":        {header: "Basic dXNlcjpwYXNz", ok: false},
		"no token":     {header: "Bearer   ", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := extractBearerToken(tc.header)
			if ok != tc.ok || token != tc.token {
				t.Fatalf("extractBearerToken(%q) = %q, %v", tc.header, token, ok)
			}
		})
	}
}
