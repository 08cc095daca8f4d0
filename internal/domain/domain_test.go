package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPost(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	post, err := NewPost(userID, "hello", nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, post.ID)
	assert.Equal(t, userID, post.UserID)
	assert.NotNil(t, post.Photos)
	assert.False(t, post.CreatedAt.IsZero())

	_, err = NewPost(uuid.Nil, "hello", nil)
	assert.ErrorIs(t, err, ErrEmptyPostUserID)

	_, err = NewPost(userID, "", nil)
	assert.ErrorIs(t, err, ErrPostWithoutContent)

	_, err = NewPost(userID, "", []string{"a.jpg"})
	assert.NoError(t, err)

	_, err = NewPost(userID, strings.Repeat("x", MaxDescriptionLength+1), nil)
	assert.ErrorIs(t, err, ErrPostDescriptionLong)
}

func TestValidationErrorsWrapErrValidation(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		ErrEmptyPostID, ErrEmptyPostUserID, ErrPostDescriptionLong, ErrPostWithoutContent,
		ErrEmptyCommentID, ErrEmptyCommentPostID, ErrEmptyCommentUserID, ErrEmptyCommentText,
		ErrCommentTooLong, ErrSelfParent, ErrEmptyLikePostID, ErrEmptyLikeUserID,
		ErrEmptyUserID, ErrEmptyUserName,
	} {
		assert.True(t, errors.Is(err, ErrValidation), "%v should wrap ErrValidation", err)
	}
}

func TestPostPatch(t *testing.T) {
	t.Parallel()

	post, err := NewPost(uuid.New(), "before", []string{"a.jpg"})
	require.NoError(t, err)

	assert.True(t, PostPatch{}.IsEmpty())

	desc := "after"
	patch := PostPatch{Description: &desc}
	assert.False(t, patch.IsEmpty())
	patch.Apply(post)
	assert.Equal(t, "after", post.Description)
	assert.Equal(t, []string{"a.jpg"}, post.Photos)
}

func TestComment(t *testing.T) {
	t.Parallel()

	postID, userID := uuid.New(), uuid.New()

	top, err := NewComment(postID, userID, nil, "first")
	require.NoError(t, err)
	assert.True(t, top.IsTopLevel())

	reply, err := NewComment(postID, userID, &top.ID, "reply")
	require.NoError(t, err)
	assert.False(t, reply.IsTopLevel())

	_, err = NewComment(postID, userID, nil, "")
	assert.ErrorIs(t, err, ErrEmptyCommentText)

	_, err = NewComment(uuid.Nil, userID, nil, "x")
	assert.ErrorIs(t, err, ErrEmptyCommentPostID)

	self := *top
	self.ParentID = &self.ID
	assert.ErrorIs(t, self.Validate(), ErrSelfParent)
}

func TestNewLike(t *testing.T) {
	t.Parallel()

	l, err := NewLike(uuid.New(), uuid.New(), time.Time{})
	require.NoError(t, err)
	assert.False(t, l.CreatedAt.IsZero())

	_, err = NewLike(uuid.Nil, uuid.New(), time.Time{})
	assert.ErrorIs(t, err, ErrEmptyLikePostID)
}

func TestUserName(t *testing.T) {
	t.Parallel()

	u, err := NewUser("Ada", "Lovelace", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name())

	u.DisplayName = "ada"
	assert.Equal(t, "ada", u.Name())

	_, err = NewUser("", "", "", "")
	assert.ErrorIs(t, err, ErrEmptyUserName)
}
