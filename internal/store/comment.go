package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
)

// CommentStore defines the interface for comment data persistence.
type CommentStore interface {
	// Create saves a new comment or reply.
	// Returns ErrInvalidEntity if the post or the parent comment does not exist.
	Create(ctx context.Context, comment *domain.Comment) error

	// GetByID retrieves a comment by its unique ID.
	// Returns ErrCommentNotFound if the comment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)

	// UpdateText replaces the text of a comment.
	// Returns ErrCommentNotFound if the comment does not exist.
	UpdateText(ctx context.Context, id uuid.UUID, text string, updatedAt time.Time) error

	// Delete removes a comment and all of its replies, returning the number
	// of rows removed. Returns ErrCommentNotFound if nothing was removed.
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// ListTopLevel returns up to limit top-level comments of a post, newest
	// first, ordered by (created_at DESC, id DESC). When after is set, only
	// comments strictly older than that comment are returned; an unknown
	// cursor yields an empty page.
	ListTopLevel(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Comment, error)

	// LatestReplies returns the newest reply of each of the given parents,
	// keyed by parent ID. Parents without replies are absent from the map.
	LatestReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]*domain.Comment, error)

	// WithTx returns a new CommentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CommentStore
}
