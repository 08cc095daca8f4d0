// Package mocks provides centralized in-memory implementations of the store
// interfaces for testing.
//
// Each mock keeps its data in maps guarded by a mutex, so it can be shared
// by concurrently running workers. Every method can be overridden through a
// function field:
//
//	posts := mocks.NewMockPostStore()
//	posts.CreateFn = func(ctx context.Context, p *domain.Post) error {
//	    return errors.New("db down")
//	}
//
// Call counters (e.g. CreateCalls) record how often a method ran,
// including calls answered by an override.
package mocks
