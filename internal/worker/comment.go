package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// ErrParentOnOtherPost is returned when a reply names a parent comment that
// belongs to a different post.
var ErrParentOnOtherPost = fmt.Errorf("%w: parent comment belongs to another post", domain.ErrValidation)

// CommentHandler applies comment jobs and keeps the recent-comments list of
// each post in step with the store.
type CommentHandler struct {
	comments store.CommentStore
	recent   *feed.RecentComments
	logger   *slog.Logger
}

var _ Handler = (*CommentHandler)(nil)

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments store.CommentStore, recent *feed.RecentComments, log *slog.Logger) *CommentHandler {
	if comments == nil || recent == nil {
		panic("comment handler needs a comment store and the recent comments cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CommentHandler{
		comments: comments,
		recent:   recent,
		logger:   log.With(slog.String("component", "comment_handler")),
	}
}

// Handle dispatches on the payload type.
func (h *CommentHandler) Handle(ctx context.Context, p queue.Payload) error {
	switch p := p.(type) {
	case queue.AddComment:
		return h.add(ctx, p)
	case queue.UpdateComment:
		return h.update(ctx, p)
	case queue.DeleteComment:
		return h.delete(ctx, p)
	default:
		return fmt.Errorf("%w: %T on comment queue", queue.ErrUnknownJob, p)
	}
}

func (h *CommentHandler) add(ctx context.Context, p queue.AddComment) error {
	parentID, err := h.resolveParent(ctx, p.PostID, p.ParentID)
	if err != nil {
		return err
	}

	c, err := domain.NewComment(p.PostID, p.UserID, parentID, p.Text)
	if err != nil {
		return queue.Permanent(err)
	}
	if err := h.comments.Create(ctx, c); err != nil {
		return classify(fmt.Errorf("failed to create comment: %w", err))
	}

	if c.IsTopLevel() {
		h.recent.Push(ctx, feed.NewThread(c, nil))
	} else {
		h.recent.SetLatestReply(ctx, c.PostID, *c.ParentID, c)
	}

	logger.FromContextOrDefault(ctx, h.logger).Debug("comment created",
		"comment_id", c.ID,
		"post_id", c.PostID,
		"reply", !c.IsTopLevel())
	return nil
}

// resolveParent checks the parent of a reply. Replies only nest one level,
// so a reply to a reply is attached to the top-level comment above it.
func (h *CommentHandler) resolveParent(ctx context.Context, postID uuid.UUID, parentID *uuid.UUID) (*uuid.UUID, error) {
	if parentID == nil || *parentID == uuid.Nil {
		return nil, nil
	}
	parent, err := h.comments.GetByID(ctx, *parentID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to load parent comment: %w", err))
	}
	if parent.PostID != postID {
		return nil, queue.Permanent(ErrParentOnOtherPost)
	}
	if !parent.IsTopLevel() {
		root := *parent.ParentID
		return &root, nil
	}
	return &parent.ID, nil
}

func (h *CommentHandler) update(ctx context.Context, p queue.UpdateComment) error {
	now := time.Now().UTC()
	if err := h.comments.UpdateText(ctx, p.CommentID, p.Text, now); err != nil {
		return classify(fmt.Errorf("failed to update comment: %w", err))
	}

	h.recent.UpdateText(ctx, p.PostID, p.CommentID, p.Text, now)
	return nil
}

func (h *CommentHandler) delete(ctx context.Context, p queue.DeleteComment) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	c, err := h.comments.GetByID(ctx, p.CommentID)
	switch {
	case errors.Is(err, store.ErrCommentNotFound):
		log.Debug("comment already deleted", "comment_id", p.CommentID)
		h.recent.Remove(ctx, p.PostID, p.CommentID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to load comment: %w", err)
	}

	n, err := h.comments.Delete(ctx, c.ID)
	switch {
	case errors.Is(err, store.ErrCommentNotFound):
		log.Debug("comment deleted concurrently", "comment_id", c.ID)
	case err != nil:
		return fmt.Errorf("failed to delete comment: %w", err)
	default:
		log.Debug("comment deleted", "comment_id", c.ID, "rows", n)
	}

	if c.IsTopLevel() {
		h.recent.Remove(ctx, c.PostID, c.ID)
		return nil
	}

	// The parent's cached reply may have been the deleted one.
	parentID := *c.ParentID
	latest, err := h.comments.LatestReplies(ctx, []uuid.UUID{parentID})
	if err != nil {
		log.Warn("failed to refresh latest reply, clearing it",
			"parent_id", parentID,
			"error", err)
		h.recent.Remove(ctx, c.PostID, c.ID)
		return nil
	}
	h.recent.SetLatestReply(ctx, c.PostID, parentID, latest[parentID])
	return nil
}
