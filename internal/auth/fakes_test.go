package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memIdentities struct {
	mu   sync.Mutex
	byID map[uuid.UUID]Identity
}

func newMemIdentities(items ...Identity) *memIdentities {
	m := &memIdentities{byID: make(map[uuid.UUID]Identity)}
	for _, it := range items {
		m.byID[it.ID] = it
	}
	return m
}

func (m *memIdentities) FindIdentity(_ context.Context, id uuid.UUID) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return it, nil
}

func (m *memIdentities) FindIdentityByEmail(_ context.Context, email string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.byID {
		if strings.EqualFold(it.Email, email) {
			return it, nil
		}
	}
	return Identity{}, ErrNotFound
}

func (m *memIdentities) SetResetToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	it.ResetToken = token
	it.ResetTokenExpires = &expiresAt
	m.byID[id] = it
	return nil
}

func (m *memIdentities) ConsumeResetToken(_ context.Context, id uuid.UUID, token, hash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.byID[id]
	if !ok || it.ResetToken != token || it.ResetTokenExpires == nil || it.ResetTokenExpires.Before(now) {
		return false, nil
	}
	it.PasswordHash = hash
	it.ResetToken = ""
	it.ResetTokenExpires = nil
	m.byID[id] = it
	return true, nil
}

func (m *memIdentities) update(id uuid.UUID, fn func(*Identity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.byID[id]
	fn(&it)
	m.byID[id] = it
}

func (m *memIdentities) get(id uuid.UUID) Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type outbox struct {
	mu   sync.Mutex
	sent []Message
}

func (o *outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fastHasher keeps bcrypt at its minimum cost so tests stay quick.
var fastHasher = NewBcryptHasher(4)

func newTestIdentity(email string, role Role) Identity {
	hash, err := fastHasher.Hash("s3cret-pass")
	if err != nil {
		panic(err)
	}
	return Identity{
		ID:           uuid.New(),
		Name:         "Ada",
		Surname:      "Lovelace",
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
}

func newTestService(t interface{ Fatalf(string, ...any) }, store IdentityStore, clock *fakeClock, opts ...ServiceOption) *Service {
	codec, err := NewTokenCodec("test-secret", WithCodecClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	base := []ServiceOption{WithHasher(fastHasher), WithClock(clock.Now)}
	return NewService(store, codec, append(base, opts...)...)
}
