package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// Enqueuer hands a validated payload to its queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, p queue.Payload) (*queue.Job, error)
}

var _ Enqueuer = (*queue.Producer)(nil)

// postExists checks the known-posts set first. Only a hit short-circuits;
// a miss or an unavailable cache is answered by the store, and a positive
// answer is written back to the set.
func postExists(ctx context.Context, c *cache.Store, posts store.PostStore, id uuid.UUID) error {
	if c.SIsMember(ctx, feed.PostsKey, id.String()).Hit() {
		return nil
	}
	ok, err := posts.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check post %s: %w", id, err)
	}
	if !ok {
		return store.ErrPostNotFound
	}
	c.SAdd(ctx, feed.PostsKey, id.String())
	return nil
}
