package clinic

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
)

const minDoctorNameLen = 3

func invalid(field, reason string) error {
	return auth.Invalid(field, reason)
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", invalid("email", "is not a valid address")
	}
	return strings.ToLower(addr.Address), nil
}

func validateIdentity(u auth.Identity) error {
	if strings.TrimSpace(u.Name) == "" {
		return invalid("name", "is required")
	}
	if u.Age < 0 {
		return invalid("age", "must be >= 0")
	}
	if !u.Role.Valid() {
		return invalid("role", "must be one of user, admin, doctor")
	}
	return nil
}

func validateDoctor(d Doctor) error {
	if len([]rune(strings.TrimSpace(d.Name))) < minDoctorNameLen {
		return invalid("name", "must be at least 3 characters")
	}
	if d.Age < 0 {
		return invalid("age", "must be >= 0")
	}
	if !d.Category.Valid() {
		return invalid("category", "must be one of first, second, highest, no_category")
	}
	return nil
}

func validateRoom(r Room) error {
	if r.Number <= 0 {
		return invalid("number", "must be > 0")
	}
	return nil
}

func validateAppointment(a Appointment) error {
	switch {
	case a.StartsAt.IsZero():
		return invalid("starts_at", "is required")
	case a.DoctorID == uuid.Nil:
		return invalid("doctor_id", "is required")
	case a.UserID == uuid.Nil:
		return invalid("user_id", "is required")
	case a.RoomID == uuid.Nil:
		return invalid("room_id", "is required")
	}
	return nil
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
