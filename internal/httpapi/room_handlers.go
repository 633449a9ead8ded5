package httpapi

import (
	"net/http"

	"github.com/polyclinic/scheduler/internal/audit"
	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
)

const roomsPrefix = "/v1/rooms/"

func (a *API) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := authorize(w, r); !ok {
			return
		}
		p, err := pageFromQuery(r)
		if err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		page, err := a.clinic.ListRooms(r.Context(), p)
		if err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		var req clinic.RoomInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		room, err := a.clinic.CreateRoom(r.Context(), req)
		if err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.RoomChanged, map[string]any{"id": room.ID.String(), "action": "create"})
		w.Header().Set("Location", roomsPrefix+room.ID.String())
		writeJSON(w, http.StatusCreated, room)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoomResource(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(w, r, roomsPrefix, "room")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := authorize(w, r); !ok {
			return
		}
		room, err := a.clinic.GetRoom(r.Context(), id)
		if err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		writeJSON(w, http.StatusOK, room)
	case http.MethodPatch:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		var req clinic.RoomInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		room, err := a.clinic.UpdateRoom(r.Context(), id, req)
		if err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.RoomChanged, map[string]any{"id": id.String(), "action": "update"})
		writeJSON(w, http.StatusOK, room)
	case http.MethodDelete:
		if _, ok := authorize(w, r, auth.RoleAdmin); !ok {
			return
		}
		if err := a.clinic.DeleteRoom(r.Context(), id); err != nil {
			handleClinicError(w, r, err, "room")
			return
		}
		_ = audit.LogEvent(r.Context(), audit.RoomChanged, map[string]any{"id": id.String(), "action": "delete"})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
