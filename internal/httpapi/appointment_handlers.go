package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/audit"
	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/obs"
	"github.com/polyclinic/scheduler/internal/stream"
)

const appointmentsPrefix = "/v1/appointments/"

func (a *API) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		actor, ok := authorize(w, r)
		if !ok {
			return
		}
		p, err := pageFromQuery(r)
		if err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		page, err := a.clinic.ListAppointments(r.Context(), actor, p)
		if err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		actor, ok := authorize(w, r, auth.RoleUser, auth.RoleDoctor, auth.RoleAdmin)
		if !ok {
			return
		}
		var req clinic.AppointmentInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		appt, err := a.clinic.CreateAppointment(r.Context(), actor, req)
		if err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		a.appointmentChanged(r, stream.Created, appt)
		w.Header().Set("Location", appointmentsPrefix+appt.ID.String())
		writeJSON(w, http.StatusCreated, appt)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := authorize(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, appointmentsPrefix, "appointment")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		appt, err := a.clinic.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		writeJSON(w, http.StatusOK, appt)
	case http.MethodPatch:
		if err := auth.Authorize(actor, auth.RoleDoctor, auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var patch clinic.AppointmentPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		appt, err := a.clinic.UpdateAppointment(r.Context(), id, patch)
		if err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		a.appointmentChanged(r, stream.Updated, appt)
		writeJSON(w, http.StatusOK, appt)
	case http.MethodDelete:
		if err := a.clinic.DeleteAppointment(r.Context(), actor, id); err != nil {
			handleClinicError(w, r, err, "appointment")
			return
		}
		a.appointmentChanged(r, stream.Deleted, clinic.Appointment{ID: id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) appointmentChanged(r *http.Request, kind stream.Kind, appt clinic.Appointment) {
	_ = audit.LogEvent(r.Context(), audit.AppointmentChanged, map[string]any{
		"id":     appt.ID.String(),
		"action": string(kind),
	})
	if a.events == nil {
		return
	}
	evt := stream.Event{
		Kind:          kind,
		AppointmentID: appt.ID,
		StartsAt:      appt.StartsAt,
	}
	if appt.DoctorID != uuid.Nil {
		evt.DoctorID, evt.UserID, evt.RoomID = appt.DoctorID, appt.UserID, appt.RoomID
	}
	a.events.Publish(evt)
}

// Events streams appointment changes as Server-Sent Events.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := a.events.Subscribe(r.Context())

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	if err := rc.Flush(); err != nil {
		obs.LogError(r.Context(), nil, "event stream flush failed", err)
		return
	}

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("event: " + string(event.Kind) + "\ndata: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
