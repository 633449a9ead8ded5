package clinic

import (
	"context"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
)

// Store persists clinic records. Lookups return ErrNotFound when nothing
// matches; writes return ErrConflict on duplicates and ErrInvalidReference
// when a referenced record is missing.
type Store interface {
	auth.IdentityStore

	CreateUser(ctx context.Context, u auth.Identity) (auth.Identity, error)
	ListUsers(ctx context.Context, p Page) ([]auth.Identity, error)
	UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (auth.Identity, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateDoctor(ctx context.Context, d Doctor) (Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (Doctor, error)
	ListDoctors(ctx context.Context, p Page) ([]Doctor, error)
	UpdateDoctor(ctx context.Context, d Doctor) (Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error

	CreateRoom(ctx context.Context, r Room) (Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (Room, error)
	ListRooms(ctx context.Context, p Page) ([]Room, error)
	UpdateRoom(ctx context.Context, r Room) (Room, error)
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	CreateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter, p Page) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}
