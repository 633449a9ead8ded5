package clinic

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyclinic/scheduler/internal/auth"
)

type fixture struct {
	store *InMemory
	svc   *Service
	authn *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewInMemory()
	hasher := auth.NewBcryptHasher(4)
	codec, err := auth.NewTokenCodec("clinic-test-secret")
	require.NoError(t, err)
	return &fixture{
		store: store,
		svc:   NewService(store, hasher),
		authn: auth.NewService(store, codec, auth.WithHasher(hasher)),
	}
}

// actor resolves a CurrentUser for identity the same way a request would.
func (f *fixture) actor(t *testing.T, identity auth.Identity) auth.CurrentUser {
	t.Helper()
	tok, err := f.authn.IssueAccessToken(identity)
	require.NoError(t, err)
	user, err := f.authn.Resolve(context.Background(), tok.Token)
	require.NoError(t, err)
	return user
}

func (f *fixture) user(t *testing.T, email string, role auth.Role) auth.Identity {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), UserInput{
		Name: "Grace", Surname: "Hopper", Email: email, Password: "password-123", Role: string(role),
	})
	require.NoError(t, err)
	return u
}

func TestRegisterForcesUserRole(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Register(context.Background(), UserInput{
		Name: "Grace", Email: "Grace@Example.com", Password: "password-123", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)
	assert.Equal(t, "grace@example.com", u.Email)
	assert.NotEqual(t, "password-123", u.PasswordHash)

	_, err = f.svc.Register(context.Background(), UserInput{
		Name: "Twin", Email: "grace@example.com", Password: "password-123",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := map[string]UserInput{
		"missing name":   {Email: "a@example.com", Password: "password-123"},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "password-123"},
		"short password": {Name: "A", Email: "a@example.com", Password: "short"},
		"negative age":   {Name: "A", Email: "a@example.com", Password: "password-123", Age: -1},
		"unknown role":   {Name: "A", Email: "a@example.com", Password: "password-123", Role: "root"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	_, err := f.svc.Register(ctx, UserInput{Name: "A", Password: "password-123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateUserAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com", auth.RoleUser)
	other := f.user(t, "other@example.com", auth.RoleUser)
	admin := f.user(t, "admin@example.com", auth.RoleAdmin)

	name := "Renamed"
	updated, err := f.svc.UpdateUser(ctx, f.actor(t, owner), owner.ID, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = f.svc.UpdateUser(ctx, f.actor(t, other), owner.ID, UserPatch{Name: &name})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	role := "doctor"
	_, err = f.svc.UpdateUser(ctx, f.actor(t, owner), owner.ID, UserPatch{Role: &role})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	updated, err = f.svc.UpdateUser(ctx, f.actor(t, admin), owner.ID, UserPatch{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDoctor, updated.Role)

	taken := "admin@example.com"
	_, err = f.svc.UpdateUser(ctx, f.actor(t, admin), owner.ID, UserPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateUserPasswordClearsReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "reset@example.com", auth.RoleUser)
	actor := f.actor(t, u)
	require.NoError(t, f.store.SetResetToken(ctx, u.ID, "pending", time.Now().Add(time.Hour)))

	pw := "new-password-1"
	updated, err := f.svc.UpdateUser(ctx, actor, u.ID, UserPatch{Password: &pw})
	require.NoError(t, err)
	assert.False(t, updated.HasPendingReset())

	_, _, err = f.authn.Login(ctx, "reset@example.com", pw)
	assert.NoError(t, err)
}

// interleavedStore runs between once, right after the first identity read,
// to land a concurrent write inside a read-modify-write.
type interleavedStore struct {
	*InMemory
	between func()
}

func (s *interleavedStore) FindIdentity(ctx context.Context, id uuid.UUID) (auth.Identity, error) {
	u, err := s.InMemory.FindIdentity(ctx, id)
	if fn := s.between; fn != nil {
		s.between = nil
		fn()
	}
	return u, err
}

func TestUpdateUserKeepsConcurrentReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "race@example.com", auth.RoleUser)
	actor := f.actor(t, u)

	require.NoError(t, f.authn.RequestPasswordReset(ctx, "race@example.com"))
	pending, err := f.store.FindIdentity(ctx, u.ID)
	require.NoError(t, err)
	token := pending.ResetToken
	require.NotEmpty(t, token)

	newPassword := "new-password-1"
	store := &interleavedStore{InMemory: f.store, between: func() {
		require.NoError(t, f.authn.ConfirmPasswordReset(ctx, token, newPassword))
	}}
	svc := NewService(store, auth.NewBcryptHasher(4))

	name := "Renamed"
	updated, err := svc.UpdateUser(ctx, actor, u.ID, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.HasPendingReset())

	stored, err := f.store.FindIdentity(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPendingReset())

	_, _, err = f.authn.Login(ctx, "race@example.com", newPassword)
	assert.NoError(t, err)
	_, _, err = f.authn.Login(ctx, "race@example.com", "password-123")
	assert.Error(t, err)
	assert.ErrorIs(t, f.authn.ConfirmPasswordReset(ctx, token, "another-password"), auth.ErrInvalidToken)
}

func TestUpdateUserKeepsConcurrentRoleChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "promote@example.com", auth.RoleUser)
	actor := f.actor(t, u)

	doctor := auth.RoleDoctor
	store := &interleavedStore{InMemory: f.store, between: func() {
		_, err := f.store.UpdateUser(ctx, u.ID, UserUpdate{Role: &doctor, UpdatedAt: time.Now()})
		require.NoError(t, err)
	}}
	svc := NewService(store, auth.NewBcryptHasher(4))

	phone := "+7 700 000 0000"
	updated, err := svc.UpdateUser(ctx, actor, u.ID, UserPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDoctor, updated.Role)
	assert.Equal(t, phone, updated.Phone)
}

func TestDoctorsAndRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDoctor(ctx, DoctorInput{Name: "Al", Category: CategoryFirst})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateDoctor(ctx, DoctorInput{Name: "Alice", Category: "chief"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	d, err := f.svc.CreateDoctor(ctx, DoctorInput{Name: "Alice", Age: 40, Category: CategoryHighest})
	require.NoError(t, err)
	cat := CategorySecond
	d, err = f.svc.UpdateDoctor(ctx, d.ID, DoctorPatch{Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, CategorySecond, d.Category)

	_, err = f.svc.CreateRoom(ctx, RoomInput{Number: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	r, err := f.svc.CreateRoom(ctx, RoomInput{Number: 101})
	require.NoError(t, err)
	_, err = f.svc.CreateRoom(ctx, RoomInput{Number: 101})
	assert.ErrorIs(t, err, ErrConflict)
	r2, err := f.svc.CreateRoom(ctx, RoomInput{Number: 102})
	require.NoError(t, err)
	_, err = f.svc.UpdateRoom(ctx, r2.ID, RoomInput{Number: r.Number})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.GetDoctor(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteRoom(ctx, uuid.New()), ErrNotFound)
}

func TestAppointmentsAccessAndCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient := f.user(t, "patient@example.com", auth.RoleUser)
	stranger := f.user(t, "stranger@example.com", auth.RoleUser)
	doctorUser := f.user(t, "doc@example.com", auth.RoleDoctor)
	d, _ := f.svc.CreateDoctor(ctx, DoctorInput{Name: "Alice", Category: CategoryFirst})
	r, _ := f.svc.CreateRoom(ctx, RoomInput{Number: 7})
	when := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	_, err := f.svc.CreateAppointment(ctx, f.actor(t, patient), AppointmentInput{
		StartsAt: when, DoctorID: d.ID, RoomID: r.ID, UserID: stranger.ID,
	})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.CreateAppointment(ctx, f.actor(t, patient), AppointmentInput{
		StartsAt: when, DoctorID: uuid.New(), RoomID: r.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidReference)

	a, err := f.svc.CreateAppointment(ctx, f.actor(t, patient), AppointmentInput{
		StartsAt: when, DoctorID: d.ID, RoomID: r.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, patient.ID, a.UserID)

	_, err = f.svc.GetAppointment(ctx, f.actor(t, stranger), a.ID)
	assert.ErrorIs(t, err, auth.ErrForbidden)
	_, err = f.svc.GetAppointment(ctx, f.actor(t, doctorUser), a.ID)
	assert.NoError(t, err)

	own, err := f.svc.ListAppointments(ctx, f.actor(t, stranger), Page{})
	require.NoError(t, err)
	assert.Empty(t, own.Items)
	all, err := f.svc.ListAppointments(ctx, f.actor(t, doctorUser), Page{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)

	assert.ErrorIs(t, f.svc.DeleteAppointment(ctx, f.actor(t, stranger), a.ID), auth.ErrForbidden)

	require.NoError(t, f.svc.DeleteDoctor(ctx, d.ID))
	_, err = f.svc.GetAppointment(ctx, f.actor(t, patient), a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient := f.user(t, "patient@example.com", auth.RoleUser)
	admin := f.user(t, "admin@example.com", auth.RoleAdmin)
	d, _ := f.svc.CreateDoctor(ctx, DoctorInput{Name: "Alice", Category: CategoryNone})
	r, _ := f.svc.CreateRoom(ctx, RoomInput{Number: 3})
	_, err := f.svc.CreateAppointment(ctx, f.actor(t, patient), AppointmentInput{
		StartsAt: time.Now(), DoctorID: d.ID, RoomID: r.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, patient.ID))
	left, err := f.svc.ListAppointments(ctx, f.actor(t, admin), Page{})
	require.NoError(t, err)
	assert.Empty(t, left.Items)
}
