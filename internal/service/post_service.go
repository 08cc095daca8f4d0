package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// PostService provides post operations
type PostService interface {
	// CreatePost enqueues the creation of a post authored by userID.
	// The post id is assigned when the job runs.
	CreatePost(ctx context.Context, userID uuid.UUID, description string, photos []string) (*queue.Job, error)

	// UpdatePost enqueues a patch of an existing post.
	// Returns store.ErrPostNotFound if the post does not exist.
	UpdatePost(ctx context.Context, actorID, postID uuid.UUID, patch domain.PostPatch) (*queue.Job, error)

	// DeletePost enqueues the removal of a post with its likes and comments.
	// Returns store.ErrPostNotFound if the post does not exist.
	DeletePost(ctx context.Context, actorID, postID uuid.UUID) (*queue.Job, error)

	// GetPost returns a post from the cache, or from the store on a miss.
	GetPost(ctx context.Context, postID uuid.UUID) (*domain.Post, error)

	// InvalidateUser drops every cache entry indexed under userID.
	InvalidateUser(ctx context.Context, userID uuid.UUID) bool
}

// PostServiceImpl implements the PostService interface
type PostServiceImpl struct {
	queue  Enqueuer
	posts  store.PostStore
	cache  *cache.Store
	logger *slog.Logger
}

var _ PostService = (*PostServiceImpl)(nil)

// NewPostService creates a new PostService
func NewPostService(q Enqueuer, posts store.PostStore, c *cache.Store, log *slog.Logger) PostService {
	if q == nil || posts == nil || c == nil {
		panic("post service needs a queue, a post store, and a cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostServiceImpl{
		queue:  q,
		posts:  posts,
		cache:  c,
		logger: log.With("component", "post_service"),
	}
}

// CreatePost enqueues the creation of a post.
func (s *PostServiceImpl) CreatePost(ctx context.Context, userID uuid.UUID, description string, photos []string) (*queue.Job, error) {
	job, err := s.queue.Enqueue(ctx, queue.CreatePost{
		UserID:      userID,
		Description: description,
		Photos:      photos,
	})
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	return job, nil
}

// UpdatePost enqueues a patch of an existing post.
func (s *PostServiceImpl) UpdatePost(ctx context.Context, actorID, postID uuid.UUID, patch domain.PostPatch) (*queue.Job, error) {
	payload := queue.UpdatePost{PostID: postID, ActorID: actorID, Patch: patch}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	return job, nil
}

// DeletePost enqueues the removal of a post.
func (s *PostServiceImpl) DeletePost(ctx context.Context, actorID, postID uuid.UUID) (*queue.Job, error) {
	payload := queue.DeletePost{PostID: postID, ActorID: actorID}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "delete", err)
	}
	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, "delete", err)
	}
	return job, nil
}

// GetPost returns a post. A cache miss is refilled from the store; an
// unavailable cache is bypassed.
func (s *PostServiceImpl) GetPost(ctx context.Context, postID uuid.UUID) (*domain.Post, error) {
	cached := cache.GetJSON[domain.Post](ctx, s.cache, feed.PostKey(postID))
	if cached.Hit() {
		return &cached.Value, nil
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	if cached.Miss() {
		s.cache.Set(ctx, feed.PostKey(postID), post, 0)
		s.cache.SAdd(ctx, feed.PostsKey, postID.String())
	}
	return post, nil
}

// InvalidateUser drops every cache entry indexed under userID.
func (s *PostServiceImpl) InvalidateUser(ctx context.Context, userID uuid.UUID) bool {
	return s.cache.RemoveIndex(ctx, feed.UserIndexGroup, userID.String())
}

// fail passes expected errors through and wraps the rest.
func (s *PostServiceImpl) fail(ctx context.Context, op string, err error) error {
	return failure(ctx, s.logger, "post", op, err)
}

func failure(ctx context.Context, log *slog.Logger, service, op string, err error) error {
	if errors.Is(err, domain.ErrValidation) || store.IsNotFoundError(err) ||
		errors.Is(err, ErrAlreadyLiked) || errors.Is(err, ErrNotLiked) {
		logger.FromContextOrDefault(ctx, log).Debug("request rejected",
			"op", op,
			"error", err)
		return err
	}
	logger.FromContextOrDefault(ctx, log).Error("operation failed",
		"op", op,
		"error", err)
	return NewServiceError(service, op, err)
}
