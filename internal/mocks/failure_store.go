package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

// MockFailureStore implements store.FailureStore for testing
type MockFailureStore struct {
	AppendFn     func(ctx context.Context, rec *domain.FailureRecord) error
	ListRecentFn func(ctx context.Context, limit int) ([]*domain.FailureRecord, error)

	mu      sync.Mutex
	records []*domain.FailureRecord
}

var _ store.FailureStore = (*MockFailureStore)(nil)

// NewMockFailureStore creates an empty MockFailureStore.
func NewMockFailureStore() *MockFailureStore {
	return &MockFailureStore{}
}

// Records returns the appended records in insertion order.
func (m *MockFailureStore) Records() []*domain.FailureRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.FailureRecord(nil), m.records...)
}

// Append implements the FailureStore interface
func (m *MockFailureStore) Append(ctx context.Context, rec *domain.FailureRecord) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

// ListRecent implements the FailureStore interface
func (m *MockFailureStore) ListRecent(ctx context.Context, limit int) ([]*domain.FailureRecord, error) {
	if m.ListRecentFn != nil {
		return m.ListRecentFn(ctx, limit)
	}
	recs := m.Records()
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].FailedAt.After(recs[j].FailedAt) })
	if limit >= 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// MockJobStore implements store.JobStore for testing
type MockJobStore struct {
	RecordFn func(ctx context.Context, rec *domain.JobRecord) error

	mu      sync.Mutex
	records []*domain.JobRecord
}

var _ store.JobStore = (*MockJobStore)(nil)

// NewMockJobStore creates an empty MockJobStore.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{}
}

// Records returns the recorded outcomes in insertion order.
func (m *MockJobStore) Records() []*domain.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.JobRecord(nil), m.records...)
}

// Record implements the JobStore interface
func (m *MockJobStore) Record(ctx context.Context, rec *domain.JobRecord) error {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

// ListByQueue implements the JobStore interface
func (m *MockJobStore) ListByQueue(_ context.Context, queue string, limit int) ([]*domain.JobRecord, error) {
	var out []*domain.JobRecord
	recs := m.Records()
	for i := len(recs) - 1; i >= 0 && (limit < 0 || len(out) < limit); i-- {
		if recs[i].QueueName == queue {
			out = append(out, recs[i])
		}
	}
	return out, nil
}
