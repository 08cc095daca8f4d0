package feed

import (
	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
)

// PostsKey is the set of ids of every known post.
const PostsKey = "posts"

// UserIndexGroup is the index group holding, per user, the cache keys
// written on that user's behalf.
const UserIndexGroup = "user"

// PostKey is the cached body of a post.
func PostKey(postID uuid.UUID) string {
	return cache.Key("post", postID.String())
}

// LikeCountKey is the like counter of a post.
func LikeCountKey(postID uuid.UUID) string {
	return cache.Key("post", postID.String(), "likes")
}

// LikersKey is the sorted set of user ids that liked a post, scored by the
// time of the like in milliseconds.
func LikersKey(postID uuid.UUID) string {
	return cache.Key("post", postID.String(), "likers")
}

// CommentsKey is the bounded list of a post's most recent top-level comments.
func CommentsKey(postID uuid.UUID) string {
	return cache.Key("post", postID.String(), "comments")
}
