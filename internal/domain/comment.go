package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxCommentLength bounds the length of a comment.
const MaxCommentLength = 2000

// Comment validation errors
var (
	ErrEmptyCommentID     = fmt.Errorf("%w: comment ID cannot be empty", ErrValidation)
	ErrEmptyCommentPostID = fmt.Errorf("%w: comment post ID cannot be empty", ErrValidation)
	ErrEmptyCommentUserID = fmt.Errorf("%w: comment user ID cannot be empty", ErrValidation)
	ErrEmptyCommentText   = fmt.Errorf("%w: comment text cannot be empty", ErrValidation)
	ErrCommentTooLong     = fmt.Errorf("%w: comment text is too long", ErrValidation)
	ErrSelfParent         = fmt.Errorf("%w: comment cannot reply to itself", ErrValidation)
)

// Comment is a remark on a post. A comment with a ParentID is a reply to
// another comment on the same post; top-level comments have no parent.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	PostID    uuid.UUID  `json:"post_id"`
	UserID    uuid.UUID  `json:"user_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Text      string     `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewComment creates a new Comment with a freshly generated ID.
func NewComment(postID, userID uuid.UUID, parentID *uuid.UUID, text string) (*Comment, error) {
	now := time.Now().UTC()
	c := &Comment{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    userID,
		ParentID:  parentID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// IsTopLevel reports whether the comment is not a reply.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil || *c.ParentID == uuid.Nil
}

// Validate checks if the Comment has valid data.
func (c *Comment) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCommentID
	}
	if c.PostID == uuid.Nil {
		return ErrEmptyCommentPostID
	}
	if c.UserID == uuid.Nil {
		return ErrEmptyCommentUserID
	}
	if err := ValidateCommentText(c.Text); err != nil {
		return err
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return ErrSelfParent
	}
	return nil
}

// ValidateCommentText checks the text of a new or edited comment.
func ValidateCommentText(text string) error {
	if text == "" {
		return ErrEmptyCommentText
	}
	if len(text) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}
