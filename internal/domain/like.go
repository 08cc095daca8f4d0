package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Like validation errors
var (
	ErrEmptyLikePostID = fmt.Errorf("%w: like post ID cannot be empty", ErrValidation)
	ErrEmptyLikeUserID = fmt.Errorf("%w: like user ID cannot be empty", ErrValidation)
)

// Like records that a user liked a post. A user likes a given post at most once.
type Like struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLike creates a Like stamped with likedAt. A zero likedAt means now.
func NewLike(postID, userID uuid.UUID, likedAt time.Time) (*Like, error) {
	if likedAt.IsZero() {
		likedAt = time.Now()
	}
	l := &Like{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: likedAt.UTC(),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks if the Like has valid data.
func (l *Like) Validate() error {
	if l.PostID == uuid.Nil {
		return ErrEmptyLikePostID
	}
	if l.UserID == uuid.Nil {
		return ErrEmptyLikeUserID
	}
	return nil
}
