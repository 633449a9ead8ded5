package clinic

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
)

// InMemory implements Store with in-process concurrency safety. It enforces
// the same uniqueness, reference and cascade rules as the Postgres schema.
type InMemory struct {
	mu sync.RWMutex

	users        map[uuid.UUID]auth.Identity
	userOrder    []uuid.UUID
	doctors      map[uuid.UUID]Doctor
	doctorOrder  []uuid.UUID
	rooms        map[uuid.UUID]Room
	roomOrder    []uuid.UUID
	appointments map[uuid.UUID]Appointment
	apptOrder    []uuid.UUID
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:        make(map[uuid.UUID]auth.Identity),
		doctors:      make(map[uuid.UUID]Doctor),
		rooms:        make(map[uuid.UUID]Room),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (s *InMemory) FindIdentity(ctx context.Context, id uuid.UUID) (auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.Identity{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemory) FindIdentityByEmail(ctx context.Context, email string) (auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.userByEmail(email); ok {
		return u, nil
	}
	return auth.Identity{}, ErrNotFound
}

func (s *InMemory) userByEmail(email string) (auth.Identity, bool) {
	if email == "" {
		return auth.Identity{}, false
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return auth.Identity{}, false
}

func (s *InMemory) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpires = &expiresAt
	s.users[id] = u
	return nil
}

func (s *InMemory) ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.ResetToken == "" || u.ResetToken != token {
		return false, nil
	}
	if u.ResetTokenExpires == nil || u.ResetTokenExpires.Before(now) {
		return false, nil
	}
	u.PasswordHash = passwordHash
	u.ResetToken = ""
	u.ResetTokenExpires = nil
	u.UpdatedAt = now
	s.users[id] = u
	return true, nil
}

func (s *InMemory) CreateUser(ctx context.Context, u auth.Identity) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return auth.Identity{}, ErrConflict
	}
	if _, taken := s.userByEmail(u.Email); taken {
		return auth.Identity{}, ErrConflict
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return u, nil
}

func (s *InMemory) ListUsers(ctx context.Context, p Page) ([]auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.Identity, 0, len(s.userOrder))
	for _, id := range window(s.userOrder, p) {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *InMemory) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.Identity{}, ErrNotFound
	}
	if upd.Email != nil {
		if other, taken := s.userByEmail(*upd.Email); taken && other.ID != id {
			return auth.Identity{}, ErrConflict
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Surname != nil {
		u.Surname = *upd.Surname
	}
	if upd.Age != nil {
		u.Age = *upd.Age
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Disabled != nil {
		u.Disabled = *upd.Disabled
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
		u.ResetToken = ""
		u.ResetTokenExpires = nil
	}
	u.UpdatedAt = upd.UpdatedAt
	s.users[id] = u
	return u, nil
}

func (s *InMemory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	s.userOrder = without(s.userOrder, id)
	s.cascade(func(a Appointment) bool { return a.UserID == id })
	return nil
}

func (s *InMemory) CreateDoctor(ctx context.Context, d Doctor) (Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[d.ID]; ok {
		return Doctor{}, ErrConflict
	}
	s.doctors[d.ID] = d
	s.doctorOrder = append(s.doctorOrder, d.ID)
	return d, nil
}

func (s *InMemory) GetDoctor(ctx context.Context, id uuid.UUID) (Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return Doctor{}, ErrNotFound
	}
	return d, nil
}

func (s *InMemory) ListDoctors(ctx context.Context, p Page) ([]Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Doctor, 0, p.Limit())
	for _, id := range window(s.doctorOrder, p) {
		out = append(out, s.doctors[id])
	}
	return out, nil
}

func (s *InMemory) UpdateDoctor(ctx context.Context, d Doctor) (Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[d.ID]; !ok {
		return Doctor{}, ErrNotFound
	}
	s.doctors[d.ID] = d
	return d, nil
}

func (s *InMemory) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(s.doctors, id)
	s.doctorOrder = without(s.doctorOrder, id)
	s.cascade(func(a Appointment) bool { return a.DoctorID == id })
	return nil
}

func (s *InMemory) CreateRoom(ctx context.Context, r Room) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; ok || s.roomNumberTaken(r) {
		return Room{}, ErrConflict
	}
	s.rooms[r.ID] = r
	s.roomOrder = append(s.roomOrder, r.ID)
	return r, nil
}

func (s *InMemory) roomNumberTaken(r Room) bool {
	for _, other := range s.rooms {
		if other.Number == r.Number && other.ID != r.ID {
			return true
		}
	}
	return false
}

func (s *InMemory) GetRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemory) ListRooms(ctx context.Context, p Page) ([]Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Room, 0, p.Limit())
	for _, id := range window(s.roomOrder, p) {
		out = append(out, s.rooms[id])
	}
	return out, nil
}

func (s *InMemory) UpdateRoom(ctx context.Context, r Room) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; !ok {
		return Room{}, ErrNotFound
	}
	if s.roomNumberTaken(r) {
		return Room{}, ErrConflict
	}
	s.rooms[r.ID] = r
	return r, nil
}

func (s *InMemory) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	s.roomOrder = without(s.roomOrder, id)
	s.cascade(func(a Appointment) bool { return a.RoomID == id })
	return nil
}

func (s *InMemory) CreateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; ok {
		return Appointment{}, ErrConflict
	}
	if !s.referencesExist(a) {
		return Appointment{}, ErrInvalidReference
	}
	s.appointments[a.ID] = a
	s.apptOrder = append(s.apptOrder, a.ID)
	return a, nil
}

func (s *InMemory) referencesExist(a Appointment) bool {
	_, user := s.users[a.UserID]
	_, doctor := s.doctors[a.DoctorID]
	_, room := s.rooms[a.RoomID]
	return user && doctor && room
}

func (s *InMemory) GetAppointment(ctx context.Context, id uuid.UUID) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemory) ListAppointments(ctx context.Context, f AppointmentFilter, p Page) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]uuid.UUID, 0, len(s.apptOrder))
	for _, id := range s.apptOrder {
		a := s.appointments[id]
		if f.UserID != uuid.Nil && a.UserID != f.UserID {
			continue
		}
		if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
			continue
		}
		matched = append(matched, id)
	}
	out := make([]Appointment, 0, p.Limit())
	for _, id := range window(matched, p) {
		out = append(out, s.appointments[id])
	}
	return out, nil
}

func (s *InMemory) UpdateAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; !ok {
		return Appointment{}, ErrNotFound
	}
	if !s.referencesExist(a) {
		return Appointment{}, ErrInvalidReference
	}
	s.appointments[a.ID] = a
	return a, nil
}

func (s *InMemory) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(s.appointments, id)
	s.apptOrder = without(s.apptOrder, id)
	return nil
}

// cascade drops appointments matching fn. Callers hold the write lock.
func (s *InMemory) cascade(fn func(Appointment) bool) {
	kept := s.apptOrder[:0]
	for _, id := range s.apptOrder {
		if fn(s.appointments[id]) {
			delete(s.appointments, id)
			continue
		}
		kept = append(kept, id)
	}
	s.apptOrder = kept
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

var _ Store = (*InMemory)(nil)
