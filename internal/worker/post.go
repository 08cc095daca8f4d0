package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// PostHandler applies post jobs.
type PostHandler struct {
	posts  store.PostStore
	cache  *cache.Store
	logger *slog.Logger
}

var _ Handler = (*PostHandler)(nil)

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts store.PostStore, c *cache.Store, log *slog.Logger) *PostHandler {
	if posts == nil || c == nil {
		panic("post handler needs a post store and a cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostHandler{
		posts:  posts,
		cache:  c,
		logger: log.With(slog.String("component", "post_handler")),
	}
}

// Handle dispatches on the payload type.
func (h *PostHandler) Handle(ctx context.Context, p queue.Payload) error {
	switch p := p.(type) {
	case queue.CreatePost:
		return h.create(ctx, p)
	case queue.UpdatePost:
		return h.update(ctx, p)
	case queue.DeletePost:
		return h.delete(ctx, p)
	default:
		return fmt.Errorf("%w: %T on post queue", queue.ErrUnknownJob, p)
	}
}

func (h *PostHandler) create(ctx context.Context, p queue.CreatePost) error {
	post, err := domain.NewPost(p.UserID, p.Description, p.Photos)
	if err != nil {
		return queue.Permanent(err)
	}
	if err := h.posts.Create(ctx, post); err != nil {
		return classify(fmt.Errorf("failed to create post: %w", err))
	}

	h.mirror(ctx, post)
	h.cache.SAdd(ctx, feed.PostsKey, post.ID.String())

	logger.FromContextOrDefault(ctx, h.logger).Debug("post created",
		"post_id", post.ID,
		"user_id", post.UserID)
	return nil
}

func (h *PostHandler) update(ctx context.Context, p queue.UpdatePost) error {
	post, err := h.posts.GetByID(ctx, p.PostID)
	if err != nil {
		return classify(fmt.Errorf("failed to load post: %w", err))
	}

	p.Patch.Apply(post)
	if err := post.Validate(); err != nil {
		return queue.Permanent(err)
	}
	if err := h.posts.Update(ctx, post); err != nil {
		return classify(fmt.Errorf("failed to update post: %w", err))
	}

	h.mirror(ctx, post)
	return nil
}

func (h *PostHandler) delete(ctx context.Context, p queue.DeletePost) error {
	err := h.posts.Delete(ctx, p.PostID)
	switch {
	case errors.Is(err, store.ErrPostNotFound):
		logger.FromContextOrDefault(ctx, h.logger).Debug("post already deleted", "post_id", p.PostID)
	case err != nil:
		return fmt.Errorf("failed to delete post: %w", err)
	}

	h.cache.SRem(ctx, feed.PostsKey, p.PostID.String())
	h.cache.Delete(ctx,
		feed.PostKey(p.PostID),
		feed.LikeCountKey(p.PostID),
		feed.LikersKey(p.PostID),
		feed.CommentsKey(p.PostID),
	)
	return nil
}

// mirror caches the post and lists it in its author's key index.
func (h *PostHandler) mirror(ctx context.Context, post *domain.Post) {
	key := feed.PostKey(post.ID)
	h.cache.Set(ctx, key, post, 0)
	h.cache.SetIndex(ctx, feed.UserIndexGroup, post.UserID.String(), map[string]string{key: key}, 0)
}

// classify marks store errors that no retry can fix as permanent.
func classify(err error) error {
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrInvalidEntity) ||
		errors.Is(err, domain.ErrValidation) {
		return queue.Permanent(err)
	}
	return err
}
