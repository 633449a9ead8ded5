package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/ids"
	"github.com/polyclinic/scheduler/internal/obs"
)

const (
	msgNotAuthenticated   = "Not authenticated"
	msgInvalidCredentials = "Invalid authentication credentials"
	msgRoleMismatch       = "Token role does not match user role"
	msgInvalidAttributes  = "Invalid user attributes"
	msgIncorrectUsername  = "Incorrect username"
	msgIncorrectPassword  = "Incorrect password"
	msgNotPermitted       = "Operation not permitted for your role"
	msgAccountDisabled    = "Account is disabled"
	msgInvalidResetToken  = "Invalid or expired reset token"
	msgResetTokenExpired  = "Reset token has expired"
	msgDuplicateEntry     = "duplicate entry"
	msgInvalidReference   = "invalid reference"
	msgInternal           = "internal error"

	maxPageNumber = 1 << 20
)

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	payload := map[string]any{"error": msg}
	if r != nil {
		if rid := obs.RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
	}
	writeJSON(w, status, payload)
}

// writeUnauthorized answers 401 with the bearer challenge.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

// writeForbidden answers 403 with an insufficient_scope challenge.
func writeForbidden(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
	writeError(w, r, http.StatusForbidden, msg)
}

// handleAuthError maps auth core failures to a status and a caller-safe message.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *auth.InvalidInput
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		writeUnauthorized(w, r, msgNotAuthenticated)
	case errors.Is(err, auth.ErrRoleMismatch):
		writeUnauthorized(w, r, msgRoleMismatch)
	case errors.Is(err, auth.ErrInvalidUserAttributes):
		writeUnauthorized(w, r, msgInvalidAttributes)
	case errors.Is(err, auth.ErrUnknownUsername):
		writeUnauthorized(w, r, msgIncorrectUsername)
	case errors.Is(err, auth.ErrWrongPassword):
		writeUnauthorized(w, r, msgIncorrectPassword)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeUnauthorized(w, r, msgInvalidCredentials)
	case errors.Is(err, auth.ErrAccountDisabled):
		writeForbidden(w, r, msgAccountDisabled)
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, r, msgNotPermitted)
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusBadRequest, msgResetTokenExpired)
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, msgInvalidResetToken)
	case errors.As(err, &invalid):
		writeError(w, r, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, auth.ErrEmptyPassword):
		writeError(w, r, http.StatusBadRequest, "password: is required")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	default:
		obs.LogError(r.Context(), nil, "auth request failed", err)
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

// handleClinicError maps clinic failures. Auth failures surfaced by record-level
// checks fall through to handleAuthError.
func handleClinicError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var invalid *auth.InvalidInput
	switch {
	case errors.As(err, &invalid):
		writeError(w, r, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, clinic.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, clinic.ErrNotFound):
		writeError(w, r, http.StatusNotFound, resource+" not found")
	case errors.Is(err, clinic.ErrConflict):
		writeError(w, r, http.StatusConflict, msgDuplicateEntry)
	case errors.Is(err, clinic.ErrInvalidReference):
		writeError(w, r, http.StatusConflict, msgInvalidReference)
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrEmptyPassword):
		handleAuthError(w, r, err)
	default:
		obs.LogError(r.Context(), nil, resource+" request failed", err)
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected data after json body")
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if v < min || v > max {
		return 0, fmt.Errorf("must be between %d and %d", min, max)
	}
	return v, nil
}

// pageFromQuery reads ?page and ?size.
func pageFromQuery(r *http.Request) (clinic.Page, error) {
	q := r.URL.Query()
	number, err := parsePositiveInt(q.Get("page"), 1, 1, maxPageNumber)
	if err != nil {
		return clinic.Page{}, auth.Invalid("page", err.Error())
	}
	size, err := parsePositiveInt(q.Get("size"), clinic.DefaultPageSize, 1, clinic.MaxPageSize)
	if err != nil {
		return clinic.Page{}, auth.Invalid("size", err.Error())
	}
	return clinic.NewPage(number, size)
}

// resourceID splits "/v1/<collection>/<id>[/...]" after prefix and parses the id.
func resourceID(w http.ResponseWriter, r *http.Request, prefix, resource string) (uuid.UUID, bool) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return uuid.Nil, false
	}
	id, ok := ids.ParseEntity(rest)
	if !ok {
		writeError(w, r, http.StatusNotFound, resource+" not found")
		return uuid.Nil, false
	}
	return id, true
}
