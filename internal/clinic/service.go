package clinic

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/ids"
)

// Service validates clinic operations and applies record-level access rules
// before delegating to a Store. Route-level role checks happen at the edge.
type Service struct {
	store  Store
	hasher auth.PasswordHasher
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires a Service over store, hashing passwords with hasher.
func NewService(store Store, hasher auth.PasswordHasher, opts ...Option) *Service {
	s := &Service{store: store, hasher: hasher, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a self-service account. The role is always user.
func (s *Service) Register(ctx context.Context, in UserInput) (auth.Identity, error) {
	if strings.TrimSpace(in.Email) == "" {
		return auth.Identity{}, invalid("email", "is required")
	}
	in.Role = string(auth.RoleUser)
	return s.CreateUser(ctx, in)
}

// CreateUser creates an identity with any role.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (auth.Identity, error) {
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return auth.Identity{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return auth.Identity{}, err
	}
	if err := auth.ValidatePassword("password", in.Password); err != nil {
		return auth.Identity{}, err
	}
	now := truncate(s.now())
	u := auth.Identity{
		ID:        ids.NewEntity(),
		Name:      strings.TrimSpace(in.Name),
		Surname:   strings.TrimSpace(in.Surname),
		Email:     email,
		Age:       in.Age,
		Phone:     strings.TrimSpace(in.Phone),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateIdentity(u); err != nil {
		return auth.Identity{}, err
	}
	if u.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
		return auth.Identity{}, err
	}
	return s.store.CreateUser(ctx, u)
}

// GetUser returns the identity id if actor is an admin or that identity.
func (s *Service) GetUser(ctx context.Context, actor auth.CurrentUser, id uuid.UUID) (auth.Identity, error) {
	if err := auth.AdminOrSelf(actor, id); err != nil {
		return auth.Identity{}, err
	}
	return s.store.FindIdentity(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, p Page) (PageOf[auth.Identity], error) {
	items, err := s.store.ListUsers(ctx, p)
	if err != nil {
		return PageOf[auth.Identity]{}, err
	}
	return pageOf(items, p), nil
}

// UpdateUser applies patch to identity id. Only admins may change role or the
// disabled flag. Only the patched columns are written, so a concurrent reset
// confirm is never undone. A password change also drops any pending reset token.
func (s *Service) UpdateUser(ctx context.Context, actor auth.CurrentUser, id uuid.UUID, patch UserPatch) (auth.Identity, error) {
	if err := auth.AdminOrSelf(actor, id); err != nil {
		return auth.Identity{}, err
	}
	if patch.Privileged() {
		if err := auth.Authorize(actor, auth.RoleAdmin); err != nil {
			return auth.Identity{}, err
		}
	}
	u, err := s.store.FindIdentity(ctx, id)
	if err != nil {
		return auth.Identity{}, err
	}

	var upd UserUpdate
	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
		upd.Name = &u.Name
	}
	if patch.Surname != nil {
		u.Surname = strings.TrimSpace(*patch.Surname)
		upd.Surname = &u.Surname
	}
	if patch.Email != nil {
		if u.Email, err = normalizeEmail(*patch.Email); err != nil {
			return auth.Identity{}, err
		}
		upd.Email = &u.Email
	}
	if patch.Age != nil {
		u.Age = *patch.Age
		upd.Age = &u.Age
	}
	if patch.Phone != nil {
		u.Phone = strings.TrimSpace(*patch.Phone)
		upd.Phone = &u.Phone
	}
	if patch.Role != nil {
		if u.Role, err = auth.ParseRole(*patch.Role); err != nil {
			return auth.Identity{}, err
		}
		upd.Role = &u.Role
	}
	if patch.Disabled != nil {
		u.Disabled = *patch.Disabled
		upd.Disabled = &u.Disabled
	}
	if err := validateIdentity(u); err != nil {
		return auth.Identity{}, err
	}
	if patch.Password != nil {
		if err := auth.ValidatePassword("password", *patch.Password); err != nil {
			return auth.Identity{}, err
		}
		digest, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return auth.Identity{}, err
		}
		upd.PasswordHash = &digest
	}
	upd.UpdatedAt = truncate(s.now())
	return s.store.UpdateUser(ctx, id, upd)
}

// DeleteUser removes the identity and, through the store, its appointments.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteUser(ctx, id)
}

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (Doctor, error) {
	d := Doctor{
		ID:             ids.NewEntity(),
		Name:           strings.TrimSpace(in.Name),
		Surname:        strings.TrimSpace(in.Surname),
		Age:            in.Age,
		Specialization: strings.TrimSpace(in.Specialization),
		Category:       in.Category,
		CreatedAt:      truncate(s.now()),
	}
	if err := validateDoctor(d); err != nil {
		return Doctor{}, err
	}
	return s.store.CreateDoctor(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (Doctor, error) {
	return s.store.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, p Page) (PageOf[Doctor], error) {
	items, err := s.store.ListDoctors(ctx, p)
	if err != nil {
		return PageOf[Doctor]{}, err
	}
	return pageOf(items, p), nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, patch DoctorPatch) (Doctor, error) {
	d, err := s.store.GetDoctor(ctx, id)
	if err != nil {
		return Doctor{}, err
	}
	if patch.Name != nil {
		d.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Surname != nil {
		d.Surname = strings.TrimSpace(*patch.Surname)
	}
	if patch.Age != nil {
		d.Age = *patch.Age
	}
	if patch.Specialization != nil {
		d.Specialization = strings.TrimSpace(*patch.Specialization)
	}
	if patch.Category != nil {
		d.Category = *patch.Category
	}
	if err := validateDoctor(d); err != nil {
		return Doctor{}, err
	}
	return s.store.UpdateDoctor(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteDoctor(ctx, id)
}

func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (Room, error) {
	r := Room{ID: ids.NewEntity(), Number: in.Number, CreatedAt: truncate(s.now())}
	if err := validateRoom(r); err != nil {
		return Room{}, err
	}
	return s.store.CreateRoom(ctx, r)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	return s.store.GetRoom(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, p Page) (PageOf[Room], error) {
	items, err := s.store.ListRooms(ctx, p)
	if err != nil {
		return PageOf[Room]{}, err
	}
	return pageOf(items, p), nil
}

func (s *Service) UpdateRoom(ctx context.Context, id uuid.UUID, in RoomInput) (Room, error) {
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return Room{}, err
	}
	r.Number = in.Number
	if err := validateRoom(r); err != nil {
		return Room{}, err
	}
	return s.store.UpdateRoom(ctx, r)
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteRoom(ctx, id)
}

// CreateAppointment books an appointment. Users may only book for themselves;
// an omitted user_id means the actor.
func (s *Service) CreateAppointment(ctx context.Context, actor auth.CurrentUser, in AppointmentInput) (Appointment, error) {
	if in.UserID == uuid.Nil {
		in.UserID = actor.ID()
	}
	if actor.Role() == auth.RoleUser && in.UserID != actor.ID() {
		return Appointment{}, auth.ErrRoleNotPermitted
	}
	a := Appointment{
		ID:        ids.NewEntity(),
		StartsAt:  truncate(in.StartsAt),
		DoctorID:  in.DoctorID,
		UserID:    in.UserID,
		RoomID:    in.RoomID,
		CreatedAt: truncate(s.now()),
	}
	if err := validateAppointment(a); err != nil {
		return Appointment{}, err
	}
	return s.store.CreateAppointment(ctx, a)
}

// GetAppointment is visible to its user, to doctors and to admins.
func (s *Service) GetAppointment(ctx context.Context, actor auth.CurrentUser, id uuid.UUID) (Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if actor.Is(a.UserID) {
		return a, nil
	}
	if err := auth.Authorize(actor, auth.RoleAdmin, auth.RoleDoctor); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// ListAppointments lists everything for staff and only their own bookings for users.
func (s *Service) ListAppointments(ctx context.Context, actor auth.CurrentUser, p Page) (PageOf[Appointment], error) {
	var f AppointmentFilter
	if actor.Role() == auth.RoleUser {
		f.UserID = actor.ID()
	}
	items, err := s.store.ListAppointments(ctx, f, p)
	if err != nil {
		return PageOf[Appointment]{}, err
	}
	return pageOf(items, p), nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if patch.StartsAt != nil {
		a.StartsAt = truncate(*patch.StartsAt)
	}
	if patch.DoctorID != nil {
		a.DoctorID = *patch.DoctorID
	}
	if patch.RoomID != nil {
		a.RoomID = *patch.RoomID
	}
	if err := validateAppointment(a); err != nil {
		return Appointment{}, err
	}
	return s.store.UpdateAppointment(ctx, a)
}

// DeleteAppointment is allowed for the appointment's user and for admins.
func (s *Service) DeleteAppointment(ctx context.Context, actor auth.CurrentUser, id uuid.UUID) error {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.AdminOrSelf(actor, a.UserID); err != nil {
		return err
	}
	return s.store.DeleteAppointment(ctx, id)
}
