package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxDescriptionLength bounds the length of a post description.
const MaxDescriptionLength = 5000

// Post validation errors
var (
	ErrEmptyPostID         = fmt.Errorf("%w: post ID cannot be empty", ErrValidation)
	ErrEmptyPostUserID     = fmt.Errorf("%w: post user ID cannot be empty", ErrValidation)
	ErrPostDescriptionLong = fmt.Errorf("%w: post description is too long", ErrValidation)
	ErrPostWithoutContent  = fmt.Errorf("%w: post needs a description or at least one photo", ErrValidation)
)

// Post is a user-authored entry in the feed.
type Post struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Description string    `json:"description"`
	Photos      []string  `json:"photos"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPost creates a new Post owned by userID with a freshly generated ID.
// Returns an error if validation fails.
func NewPost(userID uuid.UUID, description string, photos []string) (*Post, error) {
	now := time.Now().UTC()
	if photos == nil {
		photos = []string{}
	}
	post := &Post{
		ID:          uuid.New(),
		UserID:      userID,
		Description: description,
		Photos:      photos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}
	return post, nil
}

// Validate checks if the Post has valid data.
func (p *Post) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPostID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyPostUserID
	}
	if len(p.Description) > MaxDescriptionLength {
		return ErrPostDescriptionLong
	}
	if p.Description == "" && len(p.Photos) == 0 {
		return ErrPostWithoutContent
	}
	return nil
}

// PostPatch lists the fields of a post that an update may change.
// Nil fields are left untouched.
type PostPatch struct {
	Description *string  `json:"description,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Description == nil && p.Photos == nil
}

// Apply writes the patch onto post and bumps UpdatedAt.
func (p PostPatch) Apply(post *Post) {
	if p.Description != nil {
		post.Description = *p.Description
	}
	if p.Photos != nil {
		post.Photos = p.Photos
	}
	post.UpdatedAt = time.Now().UTC()
}
