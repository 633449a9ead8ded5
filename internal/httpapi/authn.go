package httpapi

import (
	"net/http"
	"strings"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/token",
	"/v1/auth/register",
	"/v1/auth/password-reset/request",
	"/v1/auth/password-reset/confirm",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth resolves the bearer token of every non-public request into the
// current user and rejects disabled accounts.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractBearerToken(r.Header.Get(authHeader))
		if !ok {
			obs.AuthEvent("session", "missing")
			handleAuthError(w, r, auth.ErrNotAuthenticated)
			return
		}

		user, err := a.auth.Resolve(r.Context(), token)
		if err != nil {
			obs.AuthEvent("session", "rejected")
			handleAuthError(w, r, err)
			return
		}
		if err := auth.CheckActive(user); err != nil {
			obs.AuthEvent("session", "disabled")
			handleAuthError(w, r, err)
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles admits active users whose role is one of roles.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := authorize(w, r, roles...); !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize returns the current user when it is active and holds one of roles.
// With no roles any active user passes. On failure the response is written.
func authorize(w http.ResponseWriter, r *http.Request, roles ...auth.Role) (auth.CurrentUser, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		handleAuthError(w, r, auth.ErrNotAuthenticated)
		return auth.CurrentUser{}, false
	}
	if err := auth.CheckActive(user); err != nil {
		handleAuthError(w, r, err)
		return auth.CurrentUser{}, false
	}
	if len(roles) > 0 {
		if err := auth.Authorize(user, roles...); err != nil {
			handleAuthError(w, r, err)
			return auth.CurrentUser{}, false
		}
	}
	return user, true
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
