package mocks

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

// MockPostStore implements store.PostStore for testing
type MockPostStore struct {
	CreateFn  func(ctx context.Context, post *domain.Post) error
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	UpdateFn  func(ctx context.Context, post *domain.Post) error
	DeleteFn  func(ctx context.Context, id uuid.UUID) error
	ExistsFn  func(ctx context.Context, id uuid.UUID) (bool, error)

	CreateCalls atomic.Int64
	ExistsCalls atomic.Int64

	mu    sync.RWMutex
	posts map[uuid.UUID]*domain.Post
}

var _ store.PostStore = (*MockPostStore)(nil)

// NewMockPostStore creates an empty MockPostStore.
func NewMockPostStore() *MockPostStore {
	return &MockPostStore{posts: make(map[uuid.UUID]*domain.Post)}
}

// Put stores a copy of post directly, bypassing overrides.
func (m *MockPostStore) Put(post *domain.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *post
	m.posts[post.ID] = &cp
}

// All returns copies of every stored post.
func (m *MockPostStore) All() []*domain.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Len returns the number of stored posts.
func (m *MockPostStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.posts)
}

// Create implements the PostStore interface
func (m *MockPostStore) Create(ctx context.Context, post *domain.Post) error {
	m.CreateCalls.Add(1)
	if m.CreateFn != nil {
		return m.CreateFn(ctx, post)
	}
	if err := post.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.posts[post.ID]; exists {
		return store.ErrDuplicate
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

// GetByID implements the PostStore interface
func (m *MockPostStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

// Update implements the PostStore interface
func (m *MockPostStore) Update(ctx context.Context, post *domain.Post) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, post)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[post.ID]; !ok {
		return store.ErrPostNotFound
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

// Delete implements the PostStore interface
func (m *MockPostStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

// Exists implements the PostStore interface
func (m *MockPostStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.ExistsCalls.Add(1)
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.posts[id]
	return ok, nil
}

// WithTx returns the same mock; transactions are not simulated.
func (m *MockPostStore) WithTx(*sql.Tx) store.PostStore {
	return m
}
