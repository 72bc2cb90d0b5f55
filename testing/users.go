package testing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaulFidika/moodkit/identity"
)

// MemoryUsers is an in-memory stand-in for identity.Store with the same
// uniqueness rules: case-insensitive email, exact username.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]identity.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[uuid.UUID]identity.User{}}
}

func (m *MemoryUsers) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	email = identity.NormalizeEmail(email)
	return m.find(func(u identity.User) bool { return u.Email == email })
}

func (m *MemoryUsers) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	return m.find(func(u identity.User) bool { return u.Username == username })
}

func (m *MemoryUsers) Create(_ context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = identity.NormalizeEmail(u.Email)
	for _, other := range m.users {
		if other.Email == u.Email {
			return identity.ErrEmailTaken
		}
		if other.Username == u.Username {
			return identity.ErrUsernameTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryUsers) LinkGoogle(_ context.Context, id uuid.UUID, sub string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.GoogleSub != nil || strings.TrimSpace(sub) == "" {
		return nil
	}
	u.GoogleSub = &sub
	m.users[id] = u
	return nil
}

// Len reports the number of stored users.
func (m *MemoryUsers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *MemoryUsers) find(match func(identity.User) bool) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, identity.ErrNotFound
}
