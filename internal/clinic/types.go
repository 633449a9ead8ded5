package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
)

// Errors shared with the auth core so that boundaries map them uniformly.
var (
	ErrNotFound         = auth.ErrNotFound
	ErrConflict         = auth.ErrConflict
	ErrInvalidReference = auth.ErrInvalidReference
	ErrInvalidInput     = auth.ErrInvalidInput
)

// Category is a doctor's qualification category.
type Category string

const (
	CategoryFirst   Category = "first"
	CategorySecond  Category = "second"
	CategoryHighest Category = "highest"
	CategoryNone    Category = "no_category"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFirst, CategorySecond, CategoryHighest, CategoryNone:
		return true
	}
	return false
}

type Doctor struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname,omitempty"`
	Age            int       `json:"age"`
	Specialization string    `json:"specialization,omitempty"`
	Category       Category  `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
}

type Room struct {
	ID        uuid.UUID `json:"id"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment books a user with a doctor in a room. Deleting any of the three
// referenced records deletes the appointment.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	StartsAt  time.Time `json:"starts_at"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	UserID    uuid.UUID `json:"user_id"`
	RoomID    uuid.UUID `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserInput creates an identity. Password is plaintext and hashed before storage.
type UserInput struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserPatch carries a partial update; nil fields are left untouched.
type UserPatch struct {
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Email    *string `json:"email"`
	Age      *int    `json:"age"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Disabled *bool   `json:"disabled"`
}

// UserUpdate is a normalized set of column changes. Nil fields keep the
// stored value. A non-nil PasswordHash also clears any pending reset token.
type UserUpdate struct {
	Name         *string
	Surname      *string
	Email        *string
	Age          *int
	Phone        *string
	Role         *auth.Role
	Disabled     *bool
	PasswordHash *string
	UpdatedAt    time.Time
}

// Privileged reports whether the patch touches admin-only fields.
func (p UserPatch) Privileged() bool {
	return p.Role != nil || p.Disabled != nil
}

type DoctorInput struct {
	Name           string   `json:"name"`
	Surname        string   `json:"surname"`
	Age            int      `json:"age"`
	Specialization string   `json:"specialization"`
	Category       Category `json:"category"`
}

type DoctorPatch struct {
	Name           *string   `json:"name"`
	Surname        *string   `json:"surname"`
	Age            *int      `json:"age"`
	Specialization *string   `json:"specialization"`
	Category       *Category `json:"category"`
}

type RoomInput struct {
	Number int `json:"number"`
}

type AppointmentInput struct {
	StartsAt time.Time `json:"starts_at"`
	DoctorID uuid.UUID `json:"doctor_id"`
	UserID   uuid.UUID `json:"user_id"`
	RoomID   uuid.UUID `json:"room_id"`
}

type AppointmentPatch struct {
	StartsAt *time.Time `json:"starts_at"`
	DoctorID *uuid.UUID `json:"doctor_id"`
	RoomID   *uuid.UUID `json:"room_id"`
}

// AppointmentFilter narrows appointment listings. Zero values match everything.
type AppointmentFilter struct {
	UserID   uuid.UUID
	DoctorID uuid.UUID
}
