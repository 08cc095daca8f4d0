package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	CreateFn   func(ctx context.Context, user *domain.User) error
	GetByIDFn  func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDsFn func(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)

	GetByIDsCalls atomic.Int64

	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a MockUserStore holding users.
func NewMockUserStore(users ...*domain.User) *MockUserStore {
	m := &MockUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if err := user.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByIDs implements the UserStore interface. Results come back in map
// order, which is as unordered as a database bulk fetch.
func (m *MockUserStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	m.GetByIDsCalls.Add(1)
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make([]*domain.User, 0, len(ids))
	for id, u := range m.users {
		if wanted[id] {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
