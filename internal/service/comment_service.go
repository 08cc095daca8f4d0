package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// Page size bounds for comment listings
const (
	DefaultCommentPageSize = feed.DefaultRecentComments
	MaxCommentPageSize     = 100
)

// ErrParentOnOtherPost is returned when a reply names a parent comment of a
// different post.
var ErrParentOnOtherPost = fmt.Errorf("%w: parent comment belongs to another post", domain.ErrValidation)

// CommentsPage is one page of the top-level comments of a post, newest
// first, each with its latest reply.
type CommentsPage struct {
	Comments []*feed.Thread `json:"comments"`

	// NextCursor is set when the page is full and more comments may follow.
	NextCursor *uuid.UUID `json:"next_cursor,omitempty"`
}

// CommentService provides comment operations
type CommentService interface {
	// AddComment enqueues a comment on postID, or a reply when parentID is set.
	// Returns store.ErrPostNotFound or store.ErrCommentNotFound for a missing parent.
	AddComment(ctx context.Context, userID, postID uuid.UUID, parentID *uuid.UUID, text string) (*queue.Job, error)

	// UpdateComment enqueues a new text for a comment.
	// Returns store.ErrCommentNotFound if the comment does not exist.
	UpdateComment(ctx context.Context, actorID, commentID uuid.UUID, text string) (*queue.Job, error)

	// DeleteComment enqueues the removal of a comment and its replies.
	// Returns store.ErrCommentNotFound if the comment does not exist.
	DeleteComment(ctx context.Context, actorID, commentID uuid.UUID) (*queue.Job, error)

	// ListComments returns a page of the top-level comments of a post.
	ListComments(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, limit int) (*CommentsPage, error)
}

// CommentServiceImpl implements the CommentService interface
type CommentServiceImpl struct {
	queue    Enqueuer
	posts    store.PostStore
	comments store.CommentStore
	recent   *feed.RecentComments
	cache    *cache.Store
	logger   *slog.Logger
}

var _ CommentService = (*CommentServiceImpl)(nil)

// NewCommentService creates a new CommentService
func NewCommentService(
	q Enqueuer,
	posts store.PostStore,
	comments store.CommentStore,
	recent *feed.RecentComments,
	c *cache.Store,
	log *slog.Logger,
) CommentService {
	if q == nil || posts == nil || comments == nil || recent == nil || c == nil {
		panic("comment service needs a queue, post and comment stores, the recent comments cache, and a cache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CommentServiceImpl{
		queue:    q,
		posts:    posts,
		comments: comments,
		recent:   recent,
		cache:    c,
		logger:   log.With("component", "comment_service"),
	}
}

// AddComment enqueues a comment or a reply.
func (s *CommentServiceImpl) AddComment(ctx context.Context, userID, postID uuid.UUID, parentID *uuid.UUID, text string) (*queue.Job, error) {
	payload := queue.AddComment{PostID: postID, UserID: userID, ParentID: parentID, Text: text}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "add", err)
	}
	if parentID != nil {
		parent, err := s.comments.GetByID(ctx, *parentID)
		if err != nil {
			return nil, s.fail(ctx, "add", err)
		}
		if parent.PostID != postID {
			return nil, s.fail(ctx, "add", ErrParentOnOtherPost)
		}
	}

	job, err := s.queue.Enqueue(ctx, payload)
	if err != nil {
		return nil, s.fail(ctx, "add", err)
	}
	return job, nil
}

// UpdateComment enqueues a new text for a comment.
func (s *CommentServiceImpl) UpdateComment(ctx context.Context, actorID, commentID uuid.UUID, text string) (*queue.Job, error) {
	if err := domain.ValidateCommentText(text); err != nil {
		return nil, err
	}
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}

	job, err := s.queue.Enqueue(ctx, queue.UpdateComment{
		CommentID: c.ID,
		PostID:    c.PostID,
		ActorID:   actorID,
		Text:      text,
	})
	if err != nil {
		return nil, s.fail(ctx, "update", err)
	}
	return job, nil
}

// DeleteComment enqueues the removal of a comment.
func (s *CommentServiceImpl) DeleteComment(ctx context.Context, actorID, commentID uuid.UUID) (*queue.Job, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, s.fail(ctx, "delete", err)
	}

	job, err := s.queue.Enqueue(ctx, queue.DeleteComment{
		CommentID: c.ID,
		PostID:    c.PostID,
		ActorID:   actorID,
	})
	if err != nil {
		return nil, s.fail(ctx, "delete", err)
	}
	return job, nil
}

// ListComments serves the first page from the recent-comments list when it
// holds enough entries. Every other page, and a first page the list cannot
// fill, comes from the store.
func (s *CommentServiceImpl) ListComments(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, limit int) (*CommentsPage, error) {
	limit = clampCommentPageSize(limit)
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cursor == nil {
		cached := s.recent.List(ctx, postID)
		if cached.Hit() && len(cached.Value) >= limit {
			return newCommentsPage(cached.Value[:limit], limit), nil
		}
	}

	if err := postExists(ctx, s.cache, s.posts, postID); err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	log.Debug("comments page served from store", "post_id", postID)
	comments, err := s.comments.ListTopLevel(ctx, postID, cursor, limit)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}

	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	latest := map[uuid.UUID]*domain.Comment{}
	if len(ids) > 0 {
		latest, err = s.comments.LatestReplies(ctx, ids)
		if err != nil {
			return nil, s.fail(ctx, "list", err)
		}
	}

	threads := make([]*feed.Thread, len(comments))
	for i, c := range comments {
		threads[i] = feed.NewThread(c, latest[c.ID])
	}
	return newCommentsPage(threads, limit), nil
}

func newCommentsPage(threads []*feed.Thread, limit int) *CommentsPage {
	page := &CommentsPage{Comments: threads}
	if len(threads) == limit && limit > 0 {
		last := threads[len(threads)-1].ID
		page.NextCursor = &last
	}
	return page
}

func clampCommentPageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultCommentPageSize
	case limit > MaxCommentPageSize:
		return MaxCommentPageSize
	default:
		return limit
	}
}

func (s *CommentServiceImpl) fail(ctx context.Context, op string, err error) error {
	return failure(ctx, s.logger, "comment", op, err)
}
