package queue

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
)

var validate = validator.New()

// Payload is the closed set of job payloads. Workers switch over the
// concrete types exhaustively; there is no free-form job data.
type Payload interface {
	Kind() Kind
	JobType() JobType
	// EntityKey names the logical entity the job mutates. Jobs with the
	// same key are never processed concurrently by one worker.
	EntityKey() string
	Validate() error

	isPayload()
}

// CreatePost asks the post worker to insert a new post.
type CreatePost struct {
	UserID      uuid.UUID `json:"userId"`
	Description string    `json:"description" validate:"max=5000"`
	Photos      []string  `json:"photos,omitempty" validate:"omitempty,max=20,dive,required,max=2048"`
}

// UpdatePost asks the post worker to apply Patch to an existing post.
type UpdatePost struct {
	PostID  uuid.UUID        `json:"postId"`
	ActorID uuid.UUID        `json:"actorId"`
	Patch   domain.PostPatch `json:"patch"`
}

// DeletePost asks the post worker to remove a post.
type DeletePost struct {
	PostID  uuid.UUID `json:"postId"`
	ActorID uuid.UUID `json:"actorId"`
}

// Like records that UserID liked PostID at LikedAt.
type Like struct {
	PostID  uuid.UUID `json:"postId"`
	UserID  uuid.UUID `json:"userId"`
	LikedAt time.Time `json:"likedAt"`
}

// Unlike removes the like of UserID on PostID.
type Unlike struct {
	PostID uuid.UUID `json:"postId"`
	UserID uuid.UUID `json:"userId"`
}

// AddComment asks the comment worker to insert a comment or, when ParentID
// is set, a reply.
type AddComment struct {
	PostID   uuid.UUID  `json:"postId"`
	UserID   uuid.UUID  `json:"userId"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
	Text     string     `json:"comment" validate:"required,max=2000"`
}

// UpdateComment replaces the text of a comment.
type UpdateComment struct {
	CommentID uuid.UUID `json:"commentId"`
	PostID    uuid.UUID `json:"postId"`
	ActorID   uuid.UUID `json:"actorId"`
	Text      string    `json:"comment" validate:"required,max=2000"`
}

// DeleteComment removes a comment together with its replies.
type DeleteComment struct {
	CommentID uuid.UUID `json:"commentId"`
	PostID    uuid.UUID `json:"postId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (CreatePost) Kind() Kind    { return KindPost }
func (UpdatePost) Kind() Kind    { return KindPost }
func (DeletePost) Kind() Kind    { return KindPost }
func (Like) Kind() Kind          { return KindLike }
func (Unlike) Kind() Kind        { return KindLike }
func (AddComment) Kind() Kind    { return KindComment }
func (UpdateComment) Kind() Kind { return KindComment }
func (DeleteComment) Kind() Kind { return KindComment }

func (CreatePost) JobType() JobType    { return TypeCreate }
func (UpdatePost) JobType() JobType    { return TypeUpdate }
func (DeletePost) JobType() JobType    { return TypeDelete }
func (Like) JobType() JobType          { return TypeLike }
func (Unlike) JobType() JobType        { return TypeUnlike }
func (AddComment) JobType() JobType    { return TypeAdd }
func (UpdateComment) JobType() JobType { return TypeUpdate }
func (DeleteComment) JobType() JobType { return TypeDelete }

// A new post has no identity until the worker assigns one, so creates are
// keyed by author.
func (p CreatePost) EntityKey() string    { return "user:" + p.UserID.String() }
func (p UpdatePost) EntityKey() string    { return "post:" + p.PostID.String() }
func (p DeletePost) EntityKey() string    { return "post:" + p.PostID.String() }
func (p Like) EntityKey() string          { return likeKey(p.PostID, p.UserID) }
func (p Unlike) EntityKey() string        { return likeKey(p.PostID, p.UserID) }
func (p AddComment) EntityKey() string    { return "post:" + p.PostID.String() }
func (p UpdateComment) EntityKey() string { return "post:" + p.PostID.String() }
func (p DeleteComment) EntityKey() string { return "post:" + p.PostID.String() }

func likeKey(postID, userID uuid.UUID) string {
	return "post:" + postID.String() + ":user:" + userID.String()
}

func (CreatePost) isPayload()    {}
func (UpdatePost) isPayload()    {}
func (DeletePost) isPayload()    {}
func (Like) isPayload()          {}
func (Unlike) isPayload()        {}
func (AddComment) isPayload()    {}
func (UpdateComment) isPayload() {}
func (DeleteComment) isPayload() {}

// Validate checks the payload before it is enqueued.
func (p CreatePost) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.UserID == uuid.Nil {
		return domain.ErrEmptyPostUserID
	}
	if p.Description == "" && len(p.Photos) == 0 {
		return domain.ErrPostWithoutContent
	}
	return nil
}

// Validate checks the payload before it is enqueued.
func (p UpdatePost) Validate() error {
	if p.PostID == uuid.Nil {
		return domain.ErrEmptyPostID
	}
	if p.ActorID == uuid.Nil {
		return fmt.Errorf("%w: actor ID cannot be empty", domain.ErrValidation)
	}
	if p.Patch.IsEmpty() {
		return fmt.Errorf("%w: update changes nothing", domain.ErrValidation)
	}
	if p.Patch.Description != nil && len(*p.Patch.Description) > domain.MaxDescriptionLength {
		return domain.ErrPostDescriptionLong
	}
	return nil
}

// Validate checks the payload before it is enqueued.
func (p DeletePost) Validate() error {
	if p.PostID == uuid.Nil {
		return domain.ErrEmptyPostID
	}
	if p.ActorID == uuid.Nil {
		return fmt.Errorf("%w: actor ID cannot be empty", domain.ErrValidation)
	}
	return nil
}

// Validate checks the payload before it is enqueued.
func (p Like) Validate() error {
	return validateLike(p.PostID, p.UserID)
}

// Validate checks the payload before it is enqueued.
func (p Unlike) Validate() error {
	return validateLike(p.PostID, p.UserID)
}

func validateLike(postID, userID uuid.UUID) error {
	if postID == uuid.Nil {
		return domain.ErrEmptyLikePostID
	}
	if userID == uuid.Nil {
		return domain.ErrEmptyLikeUserID
	}
	return nil
}

// Validate checks the payload before it is enqueued.
func (p AddComment) Validate() error {
	if p.PostID == uuid.Nil {
		return domain.ErrEmptyCommentPostID
	}
	if p.UserID == uuid.Nil {
		return domain.ErrEmptyCommentUserID
	}
	if p.ParentID != nil && *p.ParentID == uuid.Nil {
		return fmt.Errorf("%w: parent ID cannot be empty when set", domain.ErrValidation)
	}
	return validateStruct(p)
}

// Validate checks the payload before it is enqueued.
func (p UpdateComment) Validate() error {
	if p.CommentID == uuid.Nil {
		return domain.ErrEmptyCommentID
	}
	if p.PostID == uuid.Nil {
		return domain.ErrEmptyCommentPostID
	}
	return validateStruct(p)
}

// Validate checks the payload before it is enqueued.
func (p DeleteComment) Validate() error {
	if p.CommentID == uuid.Nil {
		return domain.ErrEmptyCommentID
	}
	if p.PostID == uuid.Nil {
		return domain.ErrEmptyCommentPostID
	}
	return nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return nil
}
