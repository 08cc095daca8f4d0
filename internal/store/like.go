package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
)

// LikeStore defines the interface for like data persistence.
// A user likes a post at most once; the (user, post) pair is unique.
type LikeStore interface {
	// Create saves a new like.
	// Returns ErrAlreadyLiked if the user already liked the post.
	Create(ctx context.Context, like *domain.Like) error

	// Get retrieves the like of userID on postID.
	// Returns ErrLikeNotFound if there is none.
	Get(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error)

	// Delete removes the like of userID on postID.
	// Returns ErrLikeNotFound if there is none.
	Delete(ctx context.Context, postID, userID uuid.UUID) error

	// Count returns the number of likes on a post.
	Count(ctx context.Context, postID uuid.UUID) (int64, error)

	// ListLikers returns up to limit likes of a post ordered by
	// (created_at, user_id). When after is set, the page starts strictly
	// after that user's like; an unknown cursor yields an empty page.
	ListLikers(ctx context.Context, postID uuid.UUID, after *uuid.UUID, limit int) ([]*domain.Like, error)
}
