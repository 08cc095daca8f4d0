package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// LikeService provides like operations
type LikeService interface {
	// Like enqueues a like of postID by userID and mirrors it into the
	// like counter and the likers set right away.
	// Returns store.ErrPostNotFound or ErrAlreadyLiked.
	Like(ctx context.Context, userID, postID uuid.UUID) (*queue.Job, error)

	// Unlike enqueues the removal of a like and mirrors it right away.
	// Returns store.ErrPostNotFound or ErrNotLiked.
	Unlike(ctx context.Context, userID, postID uuid.UUID) (*queue.Job, error)

	// LikeCount returns the like counter of a post. The counter is a cached
	// projection and may briefly disagree with the store.
	LikeCount(ctx context.Context, postID uuid.UUID) (int64, error)

	// Likers returns a page of the users that liked a post, oldest first.
	Likers(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, size int) (*feed.LikersPage, error)
}

// LikeServiceImpl implements the LikeService interface
type LikeServiceImpl struct {
	queue  Enqueuer
	posts  store.PostStore
	likes  store.LikeStore
	likers *feed.Likers
	clock  *feed.ScoreClock
	cache  *cache.Store
	logger *slog.Logger
}

var _ LikeService = (*LikeServiceImpl)(nil)

// NewLikeService creates a new LikeService
func NewLikeService(
	q Enqueuer,
	posts store.PostStore,
	likes store.LikeStore,
	likers *feed.Likers,
	c *cache.Store,
	log *slog.Logger,
) LikeService {
	if q == nil || posts == nil || likes == nil || likers == nil || c == nil {
		panic("like service needs a queue, post and like stores, the likers cache, and a cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LikeServiceImpl{
		queue:  q,
		posts:  posts,
		likes:  likes,
		likers: likers,
		clock:  feed.NewScoreClock(),
		cache:  c,
		logger: log.With("component", "like_service"),
	}
}

// Like enqueues a like and mirrors it into the cache.
func (s *LikeServiceImpl) Like(ctx context.Context, userID, postID uuid.UUID) (*queue.Job, error) {
	payload := queue.Like{PostID: postID, UserID: userID, LikedAt: s.clock.Next()}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "like", err)
	}
	liked, err := s.liked(ctx, postID, userID)
	if err != nil {
		return nil, s.fail(ctx, "like", err)
	}
	if liked {
		return nil, s.fail(ctx, "like", ErrAlreadyLiked)
	}

	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, "like", err)
	}

	if added := s.likers.AddIfAbsent(ctx, postID, userID, payload.LikedAt); added.Hit() && added.Value {
		s.adjustCount(ctx, postID, 1)
	}
	return job, nil
}

// Unlike enqueues the removal of a like and mirrors it into the cache.
func (s *LikeServiceImpl) Unlike(ctx context.Context, userID, postID uuid.UUID) (*queue.Job, error) {
	payload := queue.Unlike{PostID: postID, UserID: userID}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "unlike", err)
	}
	liked, err := s.liked(ctx, postID, userID)
	if err != nil {
		return nil, s.fail(ctx, "unlike", err)
	}
	if !liked {
		return nil, s.fail(ctx, "unlike", ErrNotLiked)
	}

	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, "unlike", err)
	}

	s.likers.Remove(ctx, postID, userID)
	s.adjustCount(ctx, postID, -1)
	return job, nil
}

// liked reports whether userID likes postID. A likers set known to hold
// every stored like answers both ways, since it also reflects queued likes
// and unlikes the store has not applied. Otherwise the store decides.
func (s *LikeServiceImpl) liked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	if liked, known := s.likers.Liked(ctx, postID, userID); known {
		return liked, nil
	}

	_, err := s.likes.Get(ctx, postID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrLikeNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to look up like: %w", err)
	}
}

// adjustCount moves the cached counter by delta. A missing counter is first
// primed from the store, which has not applied the job just enqueued.
func (s *LikeServiceImpl) adjustCount(ctx context.Context, postID uuid.UUID, delta int64) {
	key := feed.LikeCountKey(postID)
	current := s.cache.GetInt(ctx, key)
	if current.Miss() {
		n, err := s.likes.Count(ctx, postID)
		if err != nil {
			s.logger.Warn("failed to prime like counter", "post_id", postID, "error", err)
			return
		}
		s.cache.SetInt(ctx, key, n)
		current = cache.Result[int64]{Value: n, Status: cache.StatusHit}
	}
	if !current.Hit() {
		return
	}
	if delta > 0 {
		s.cache.Incr(ctx, key)
		return
	}
	if current.Value > 0 {
		s.cache.Decr(ctx, key)
	}
}

// LikeCount returns the cached counter, priming it from the store on a miss.
func (s *LikeServiceImpl) LikeCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	key := feed.LikeCountKey(postID)
	cached := s.cache.GetInt(ctx, key)
	if cached.Hit() {
		return cached.Value, nil
	}

	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	n, err := s.likes.Count(ctx, postID)
	if err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	if cached.Miss() {
		s.cache.SetInt(ctx, key, n)
	}
	return n, nil
}

// Likers returns a page of the users that liked a post.
func (s *LikeServiceImpl) Likers(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, size int) (*feed.LikersPage, error) {
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "likers", err)
	}
	page, err := s.likers.Page(ctx, postID, cursor, size)
	if err != nil {
		return nil, s.fail(ctx, "likers", err)
	}
	return page, nil
}

func (s *LikeServiceImpl) fail(ctx context.Context, op string, err error) error {
	return failure(ctx, s.logger, "like", op, err)
}
