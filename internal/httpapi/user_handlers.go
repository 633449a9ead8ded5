package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/audit"
	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
)

const usersPrefix = "/v1/users/"

// handleUsers serves the admin-only collection.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := pageFromQuery(r)
		if err != nil {
			handleClinicError(w, r, err, "user")
			return
		}
		page, err := a.clinic.ListUsers(r.Context(), p)
		if err != nil {
			handleClinicError(w, r, err, "user")
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req clinic.UserInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.clinic.CreateUser(r.Context(), req)
		if err != nil {
			handleClinicError(w, r, err, "user")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.UserCreated, map[string]any{
			"id":     user.ID.String(),
			"role":   user.Role.String(),
			"source": "admin",
		})
		w.Header().Set("Location", usersPrefix+user.ID.String())
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	if strings.Trim(strings.TrimPrefix(r.URL.Path, usersPrefix), "/") == "me" {
		a.handleMe(w, r)
		return
	}
	actor, ok := authorize(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, usersPrefix, "user")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.clinic.GetUser(r.Context(), actor, id)
		if err != nil {
			handleClinicError(w, r, err, "user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		a.patchUser(w, r, actor, id)
	case http.MethodDelete:
		if err := auth.Authorize(actor, auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.clinic.DeleteUser(r.Context(), id); err != nil {
			handleClinicError(w, r, err, "user")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.UserDeleted, map[string]any{"id": id.String()})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) patchUser(w http.ResponseWriter, r *http.Request, actor auth.CurrentUser, id uuid.UUID) {
	var patch clinic.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.clinic.UpdateUser(r.Context(), actor, id, patch)
	if err != nil {
		handleClinicError(w, r, err, "user")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.UserUpdated, map[string]any{
		"id":               id.String(),
		"privileged":       patch.Privileged(),
		"password_changed": patch.Password != nil,
	})
	writeJSON(w, http.StatusOK, user)
}

// handleMe returns the caller's own profile.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := authorize(w, r)
	if !ok {
		return
	}
	user, err := a.clinic.GetUser(r.Context(), actor, actor.ID())
	if err != nil {
		handleClinicError(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
