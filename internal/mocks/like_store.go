package mocks

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

type likeKey struct {
	postID, userID uuid.UUID
}

// MockLikeStore implements store.LikeStore for testing
type MockLikeStore struct {
	CreateFn     func(ctx context.Context, like *domain.Like) error
	GetFn        func(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error)
	DeleteFn     func(ctx context.Context, postID, userID uuid.UUID) error
	ListLikersFn func(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Like, error)

	CreateCalls     atomic.Int64
	ListLikersCalls atomic.Int64

	mu    sync.RWMutex
	likes map[likeKey]*domain.Like
}

var _ store.LikeStore = (*MockLikeStore)(nil)

// NewMockLikeStore creates an empty MockLikeStore.
func NewMockLikeStore() *MockLikeStore {
	return &MockLikeStore{likes: make(map[likeKey]*domain.Like)}
}

// Put stores a copy of like directly, bypassing overrides.
func (m *MockLikeStore) Put(like *domain.Like) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *like
	m.likes[likeKey{like.PostID, like.UserID}] = &cp
}

// Has reports whether userID likes postID.
func (m *MockLikeStore) Has(postID, userID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.likes[likeKey{postID, userID}]
	return ok
}

// Create implements the LikeStore interface
func (m *MockLikeStore) Create(ctx context.Context, like *domain.Like) error {
	m.CreateCalls.Add(1)
	if m.CreateFn != nil {
		return m.CreateFn(ctx, like)
	}
	if err := like.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := likeKey{like.PostID, like.UserID}
	if _, ok := m.likes[k]; ok {
		return store.ErrAlreadyLiked
	}
	cp := *like
	m.likes[k] = &cp
	return nil
}

// Get implements the LikeStore interface
func (m *MockLikeStore) Get(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, postID, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.likes[likeKey{postID, userID}]
	if !ok {
		return nil, store.ErrLikeNotFound
	}
	cp := *l
	return &cp, nil
}

// Delete implements the LikeStore interface
func (m *MockLikeStore) Delete(ctx context.Context, postID, userID uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, postID, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := likeKey{postID, userID}
	if _, ok := m.likes[k]; !ok {
		return store.ErrLikeNotFound
	}
	delete(m.likes, k)
	return nil
}

// Count implements the LikeStore interface
func (m *MockLikeStore) Count(_ context.Context, postID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for k := range m.likes {
		if k.postID == postID {
			n++
		}
	}
	return n, nil
}

// ListLikers implements the LikeStore interface
func (m *MockLikeStore) ListLikers(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Like, error) {
	m.ListLikersCalls.Add(1)
	if m.ListLikersFn != nil {
		return m.ListLikersFn(ctx, postID, after, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var likes []*domain.Like
	for k, l := range m.likes {
		if k.postID == postID {
			cp := *l
			likes = append(likes, &cp)
		}
	}
	sort.Slice(likes, func(i, j int) bool { return earlierLike(likes[i], likes[j]) })

	if after != nil {
		cursor, ok := m.likes[likeKey{postID, *after}]
		if !ok {
			return []*domain.Like{}, nil
		}
		start := len(likes)
		for i, l := range likes {
			if earlierLike(cursor, l) {
				start = i
				break
			}
		}
		likes = likes[start:]
	}

	if limit >= 0 && len(likes) > limit {
		likes = likes[:limit]
	}
	if likes == nil {
		likes = []*domain.Like{}
	}
	return likes, nil
}

// earlierLike orders by (created_at, user_id).
func earlierLike(a, b *domain.Like) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.UserID[:], b.UserID[:]) < 0
}
