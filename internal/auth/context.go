package auth

import (
	"context"

	"github.com/google/uuid"
)

// CurrentUser is the verified principal of a request. It is only produced by
// Service.Resolve and is never partially populated.
type CurrentUser struct {
	id       uuid.UUID
	name     string
	surname  string
	email    string
	role     Role
	disabled bool
	token    string
}

func newCurrentUser(identity Identity, token string) CurrentUser {
	return CurrentUser{
		id:       identity.ID,
		name:     identity.Name,
		surname:  identity.Surname,
		email:    identity.Email,
		role:     identity.Role,
		disabled: identity.Disabled,
		token:    token,
	}
}

func (u CurrentUser) ID() uuid.UUID   { return u.id }
func (u CurrentUser) Name() string    { return u.name }
func (u CurrentUser) Surname() string { return u.surname }
func (u CurrentUser) Email() string   { return u.email }
func (u CurrentUser) Role() Role      { return u.role }
func (u CurrentUser) Disabled() bool  { return u.disabled }

// Token returns the bearer token the user was resolved from.
func (u CurrentUser) Token() string { return u.token }

// Is reports whether the user is the identity with the given id.
func (u CurrentUser) Is(id uuid.UUID) bool { return u.id == id }

type currentUserContextKey struct{}

// ContextWithUser attaches the resolved user to the context.
func ContextWithUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey{}, &user)
}

// UserFromContext extracts the resolved user from the context.
func UserFromContext(ctx context.Context) (CurrentUser, bool) {
	if ctx == nil {
		return CurrentUser{}, false
	}
	v, ok := ctx.Value(currentUserContextKey{}).(*CurrentUser)
	if !ok || v == nil {
		return CurrentUser{}, false
	}
	return *v, true
}

// UserIDFromContext returns the id of the resolved user, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.id.String(), true
}
