package auth

import "errors"

// Error classes. Boundaries match on these with errors.Is.
var (
	ErrUnauthenticated  = errors.New("auth: unauthenticated")
	ErrForbidden        = errors.New("auth: forbidden")
	ErrNotFound         = errors.New("auth: not found")
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrConflict         = errors.New("auth: duplicate entry")
	ErrInvalidReference = errors.New("auth: invalid reference")
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrEmptyPassword    = errors.New("auth: password is empty")
	ErrMissingSecret    = errors.New("auth: signing secret is not configured")
)

// Unauthenticated variants.
var (
	ErrNotAuthenticated      = &kindError{msg: "not authenticated", kind: ErrUnauthenticated}
	ErrInvalidCredentials    = &kindError{msg: "invalid authentication credentials", kind: ErrUnauthenticated}
	ErrRoleMismatch          = &kindError{msg: "token role does not match user role", kind: ErrUnauthenticated}
	ErrInvalidUserAttributes = &kindError{msg: "invalid user attributes", kind: ErrUnauthenticated}
	ErrUnknownUsername       = &kindError{msg: "incorrect username", kind: ErrUnauthenticated}
	ErrWrongPassword         = &kindError{msg: "incorrect password", kind: ErrUnauthenticated}
)

// Forbidden variants.
var (
	ErrRoleNotPermitted = &kindError{msg: "operation not permitted for your role", kind: ErrForbidden}
	ErrAccountDisabled  = &kindError{msg: "account is disabled", kind: ErrForbidden}
)

// kindError is a distinct failure that also matches its broader class.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// InvalidInput reports a validation failure for a single field.
type InvalidInput struct {
	Field  string
	Reason string
}

func (e *InvalidInput) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *InvalidInput) Is(target error) bool { return target == ErrInvalidInput }

// Invalid builds an InvalidInput error.
func Invalid(field, reason string) error {
	return &InvalidInput{Field: field, Reason: reason}
}
