package httpapi

import (
	"net/http"

	"github.com/polyclinic/scheduler/internal/audit"
	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
)

const doctorsPrefix = "/v1/doctors/"

func (a *API) handleDoctors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := authorize(w, r); !ok {
			return
		}
		p, err := pageFromQuery(r)
		if err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		page, err := a.clinic.ListDoctors(r.Context(), p)
		if err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		var req clinic.DoctorInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doctor, err := a.clinic.CreateDoctor(r.Context(), req)
		if err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.DoctorChanged, map[string]any{"id": doctor.ID.String(), "action": "create"})
		w.Header().Set("Location", doctorsPrefix+doctor.ID.String())
		writeJSON(w, http.StatusCreated, doctor)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDoctorResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, doctorsPrefix, "doctor")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := authorize(w, r); !ok {
			return
		}
		doctor, err := a.clinic.GetDoctor(r.Context(), id)
		if err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	case http.MethodPatch:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		var patch clinic.DoctorPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doctor, err := a.clinic.UpdateDoctor(r.Context(), id, patch)
		if err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.DoctorChanged, map[string]any{"id": id.String(), "action": "update"})
		writeJSON(w, http.StatusOK, doctor)
	case http.MethodDelete:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		if err := a.clinic.DeleteDoctor(r.Context(), id); err != nil {
			handleClinicError(w, r, err, "doctor")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.DoctorChanged, map[string]any{"id": id.String(), "action": "delete"})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
