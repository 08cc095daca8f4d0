package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// LikeHandler applies like and unlike jobs. The like counter is maintained
// by the caller at enqueue time; the handler only re-asserts the likers set,
// which is idempotent.
type LikeHandler struct {
	likes  store.LikeStore
	likers *feed.Likers
	logger *slog.Logger
}

var _ Handler = (*LikeHandler)(nil)

// NewLikeHandler creates a LikeHandler.
func NewLikeHandler(likes store.LikeStore, likers *feed.Likers, log *slog.Logger) *LikeHandler {
	if likes == nil || likers == nil {
		panic("like handler needs a like store and the likers cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &LikeHandler{
		likes:  likes,
		likers: likers,
		logger: log.With(slog.String("component", "like_handler")),
	}
}

// Handle dispatches on the payload type.
func (h *LikeHandler) Handle(ctx context.Context, p queue.Payload) error {
	switch p := p.(type) {
	case queue.Like:
		return h.like(ctx, p)
	case queue.Unlike:
		return h.unlike(ctx, p)
	default:
		return fmt.Errorf("%w: %T on like queue", queue.ErrUnknownJob, p)
	}
}

func (h *LikeHandler) like(ctx context.Context, p queue.Like) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	existing, err := h.likes.Get(ctx, p.PostID, p.UserID)
	switch {
	case err == nil:
		log.Debug("like already stored", "post_id", p.PostID, "user_id", p.UserID)
		h.likers.AddIfAbsent(ctx, p.PostID, p.UserID, existing.CreatedAt)
		return nil
	case !store.IsNotFoundError(err):
		return fmt.Errorf("failed to look up like: %w", err)
	}

	like, err := domain.NewLike(p.PostID, p.UserID, p.LikedAt)
	if err != nil {
		return queue.Permanent(err)
	}
	err = h.likes.Create(ctx, like)
	switch {
	case errors.Is(err, store.ErrAlreadyLiked):
		log.Debug("like stored concurrently", "post_id", p.PostID, "user_id", p.UserID)
	case err != nil:
		return classify(fmt.Errorf("failed to create like: %w", err))
	}

	h.likers.AddIfAbsent(ctx, like.PostID, like.UserID, like.CreatedAt)
	return nil
}

func (h *LikeHandler) unlike(ctx context.Context, p queue.Unlike) error {
	err := h.likes.Delete(ctx, p.PostID, p.UserID)
	switch {
	case errors.Is(err, store.ErrLikeNotFound):
		logger.FromContextOrDefault(ctx, h.logger).Debug("like already removed",
			"post_id", p.PostID,
			"user_id", p.UserID)
	case err != nil:
		return fmt.Errorf("failed to delete like: %w", err)
	}

	h.likers.Remove(ctx, p.PostID, p.UserID)
	return nil
}
