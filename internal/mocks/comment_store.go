package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

// MockCommentStore implements store.CommentStore for testing
type MockCommentStore struct {
	CreateFn       func(ctx context.Context, comment *domain.Comment) error
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	UpdateTextFn   func(ctx context.Context, id uuid.UUID, text string, updatedAt time.Time) error
	DeleteFn       func(ctx context.Context, id uuid.UUID) (int64, error)
	ListTopLevelFn func(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Comment, error)

	CreateCalls       atomic.Int64
	ListTopLevelCalls atomic.Int64

	mu       sync.RWMutex
	comments map[uuid.UUID]*domain.Comment
}

var _ store.CommentStore = (*MockCommentStore)(nil)

// NewMockCommentStore creates an empty MockCommentStore.
func NewMockCommentStore() *MockCommentStore {
	return &MockCommentStore{comments: make(map[uuid.UUID]*domain.Comment)}
}

// Put stores a copy of comment directly, bypassing overrides.
func (m *MockCommentStore) Put(comment *domain.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *comment
	m.comments[comment.ID] = &cp
}

// Len returns the number of stored comments.
func (m *MockCommentStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.comments)
}

// All returns copies of every stored comment.
func (m *MockCommentStore) All() []*domain.Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

// Create implements the CommentStore interface
func (m *MockCommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	m.CreateCalls.Add(1)
	if m.CreateFn != nil {
		return m.CreateFn(ctx, comment)
	}
	if err := comment.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if comment.ParentID != nil {
		if _, ok := m.comments[*comment.ParentID]; !ok {
			return store.ErrInvalidEntity
		}
	}
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

// GetByID implements the CommentStore interface
func (m *MockCommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, store.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

// UpdateText implements the CommentStore interface
func (m *MockCommentStore) UpdateText(ctx context.Context, id uuid.UUID, text string, updatedAt time.Time) error {
	if m.UpdateTextFn != nil {
		return m.UpdateTextFn(ctx, id, text, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return store.ErrCommentNotFound
	}
	c.Text = text
	c.UpdatedAt = updatedAt
	return nil
}

// Delete implements the CommentStore interface
func (m *MockCommentStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for cid, c := range m.comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(m.comments, cid)
			n++
		}
	}
	if n == 0 {
		return 0, store.ErrCommentNotFound
	}
	return n, nil
}

// ListTopLevel implements the CommentStore interface
func (m *MockCommentStore) ListTopLevel(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Comment, error) {
	m.ListTopLevelCalls.Add(1)
	if m.ListTopLevelFn != nil {
		return m.ListTopLevelFn(ctx, postID, after, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var top []*domain.Comment
	for _, c := range m.comments {
		if c.PostID == postID && c.IsTopLevel() {
			cp := *c
			top = append(top, &cp)
		}
	}
	sort.Slice(top, func(i, j int) bool { return newerComment(top[i], top[j]) })

	if after != nil {
		cursor, ok := m.comments[*after]
		if !ok || cursor.PostID != postID {
			return []*domain.Comment{}, nil
		}
		start := len(top)
		for i, c := range top {
			if newerComment(cursor, c) {
				start = i
				break
			}
		}
		top = top[start:]
	}

	if limit >= 0 && len(top) > limit {
		top = top[:limit]
	}
	if top == nil {
		top = []*domain.Comment{}
	}
	return top, nil
}

// LatestReplies implements the CommentStore interface
func (m *MockCommentStore) LatestReplies(_ context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]*domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]*domain.Comment)
	for _, c := range m.comments {
		if c.ParentID == nil || !wanted[*c.ParentID] {
			continue
		}
		if cur, ok := out[*c.ParentID]; !ok || newerComment(c, cur) {
			cp := *c
			out[*c.ParentID] = &cp
		}
	}
	return out, nil
}

// WithTx returns the same mock; transactions are not simulated.
func (m *MockCommentStore) WithTx(*sql.Tx) store.CommentStore {
	return m
}

// newerComment orders by (created_at DESC, id DESC).
func newerComment(a, b *domain.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}
