package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
)

// DefaultRecentComments is the number of top-level comments kept per post.
const DefaultRecentComments = 10

// Reply is the cached form of a reply.
type Reply struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Text      string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Thread is a top-level comment with the most recent of its replies.
type Thread struct {
	ID          uuid.UUID `json:"id"`
	PostID      uuid.UUID `json:"postId"`
	UserID      uuid.UUID `json:"userId"`
	Text        string    `json:"comment"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LatestReply *Reply    `json:"latestReply,omitempty"`
}

// NewThread builds the thread of a top-level comment.
func NewThread(c *domain.Comment, latest *domain.Comment) *Thread {
	t := &Thread{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if latest != nil {
		t.LatestReply = NewReply(latest)
	}
	return t
}

// NewReply builds the cached form of a reply.
func NewReply(c *domain.Comment) *Reply {
	return &Reply{ID: c.ID, UserID: c.UserID, Text: c.Text, CreatedAt: c.CreatedAt}
}

// RecentComments keeps, per post, a list of the newest top-level comments
// capped at a fixed size, newest first. Only the latest reply of each
// comment is kept. Edits to comments that have aged out of the list are
// no-ops; the durable store stays authoritative for them.
//
// Updates locate entries by scanning the list and then write by index, so
// callers must not mutate one post's list concurrently.
type RecentComments struct {
	cache  *cache.Store
	size   int
	logger *slog.Logger
}

// NewRecentComments creates a RecentComments keeping size comments per post.
func NewRecentComments(c *cache.Store, size int, log *slog.Logger) *RecentComments {
	if c == nil {
		panic("cache cannot be nil")
	}
	if size < 1 {
		size = DefaultRecentComments
	}
	if log == nil {
		log = slog.Default()
	}
	return &RecentComments{
		cache:  c,
		size:   size,
		logger: log.With(slog.String("component", "recent_comments")),
	}
}

// Size returns the capacity of each list.
func (r *RecentComments) Size() int { return r.size }

// Push adds a new top-level comment to the front of its post's list and
// trims the list to capacity.
func (r *RecentComments) Push(ctx context.Context, t *Thread) bool {
	raw, err := json.Marshal(t)
	if err != nil {
		return false
	}
	return r.cache.PushCapped(ctx, CommentsKey(t.PostID), string(raw), int64(r.size))
}

// List returns the cached threads of postID, newest first. Entries that
// fail to decode are skipped.
func (r *RecentComments) List(ctx context.Context, postID uuid.UUID) cache.Result[[]*Thread] {
	res := r.cache.LRange(ctx, CommentsKey(postID), 0, int64(r.size-1))
	if !res.Hit() {
		return cache.Result[[]*Thread]{Status: res.Status}
	}
	threads := make([]*Thread, 0, len(res.Value))
	for _, raw := range res.Value {
		var t Thread
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			logger.FromContextOrDefault(ctx, r.logger).Warn("skipping undecodable comment entry",
				"post_id", postID, "error", err)
			continue
		}
		threads = append(threads, &t)
	}
	return cache.Result[[]*Thread]{Value: threads, Status: cache.StatusHit}
}

// SetLatestReply records reply as the latest reply of its parent. A nil
// reply clears it. It reports whether a cached entry was changed.
func (r *RecentComments) SetLatestReply(ctx context.Context, postID, parentID uuid.UUID, reply *domain.Comment) bool {
	return r.modify(ctx, postID, func(t *Thread) (bool, bool) {
		if t.ID != parentID {
			return false, false
		}
		if reply == nil {
			t.LatestReply = nil
		} else {
			t.LatestReply = NewReply(reply)
		}
		return true, false
	})
}

// UpdateText replaces the text of commentID, whether it is cached as a
// thread or as a latest reply.
func (r *RecentComments) UpdateText(ctx context.Context, postID, commentID uuid.UUID, text string, updatedAt time.Time) bool {
	return r.modify(ctx, postID, func(t *Thread) (bool, bool) {
		switch {
		case t.ID == commentID:
			t.Text = text
			t.UpdatedAt = updatedAt
			return true, false
		case t.LatestReply != nil && t.LatestReply.ID == commentID:
			t.LatestReply.Text = text
			return true, false
		}
		return false, false
	})
}

// Remove drops commentID from the list, or clears it when it is cached as
// a latest reply.
func (r *RecentComments) Remove(ctx context.Context, postID, commentID uuid.UUID) bool {
	return r.modify(ctx, postID, func(t *Thread) (bool, bool) {
		switch {
		case t.ID == commentID:
			return true, true
		case t.LatestReply != nil && t.LatestReply.ID == commentID:
			t.LatestReply = nil
			return true, false
		}
		return false, false
	})
}

// Clear drops the list of postID.
func (r *RecentComments) Clear(ctx context.Context, postID uuid.UUID) bool {
	return r.cache.Delete(ctx, CommentsKey(postID))
}

// modify scans the list for the first entry fn matches. fn mutates the
// entry in place and reports whether it matched and whether the entry is to
// be removed rather than rewritten.
func (r *RecentComments) modify(ctx context.Context, postID uuid.UUID, fn func(t *Thread) (matched, remove bool)) bool {
	key := CommentsKey(postID)
	res := r.cache.LRange(ctx, key, 0, int64(r.size-1))
	if !res.Hit() {
		return false
	}

	for i, raw := range res.Value {
		var t Thread
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		matched, remove := fn(&t)
		if !matched {
			continue
		}
		if remove {
			return r.cache.LRem(ctx, key, 1, raw).OrElse(0) > 0
		}
		updated, err := json.Marshal(&t)
		if err != nil {
			return false
		}
		return r.cache.LSet(ctx, key, int64(i), string(updated))
	}

	logger.FromContextOrDefault(ctx, r.logger).Debug("comment not in cached window", "post_id", postID)
	return false
}
