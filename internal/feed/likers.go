package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/store"
)

// Page size bounds for liker listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// completeMember marks a likers set that holds every like in the store. It
// scores below any like, so it always sits at rank 0. A set without it was
// started by a single like after a flush and cannot answer for the others.
const completeMember = "~complete"

// warmBatch is the number of likes read from the store per query when a
// likers set is loaded.
const warmBatch = 500

// LikersPage is one page of the users that liked a post, oldest like first.
type LikersPage struct {
	Users []*domain.User `json:"users"`

	// NextCursor is the id to pass as the cursor of the following page.
	// It is nil once a page comes back empty.
	NextCursor *uuid.UUID `json:"next_cursor,omitempty"`
}

// Likers mirrors the likers of each post into a sorted set and pages
// through it. Members tied on score are ordered by id, as Redis orders
// them.
type Likers struct {
	cache  *cache.Store
	likes  store.LikeStore
	users  store.UserStore
	logger *slog.Logger
}

// NewLikers creates a Likers over the given cache and stores.
func NewLikers(c *cache.Store, likes store.LikeStore, users store.UserStore, log *slog.Logger) *Likers {
	if c == nil || likes == nil || users == nil {
		panic("likers needs a cache, a like store, and a user store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Likers{
		cache:  c,
		likes:  likes,
		users:  users,
		logger: log.With(slog.String("component", "likers")),
	}
}

// Add records userID as a liker of postID at likedAt, overwriting any
// previous score.
func (l *Likers) Add(ctx context.Context, postID, userID uuid.UUID, likedAt time.Time) bool {
	return l.cache.ZAdd(ctx, LikersKey(postID), userID.String(), Score(likedAt))
}

// AddIfAbsent records userID as a liker of postID unless it is already
// present, keeping the existing score.
func (l *Likers) AddIfAbsent(ctx context.Context, postID, userID uuid.UUID, likedAt time.Time) cache.Result[bool] {
	return l.cache.ZAddNX(ctx, LikersKey(postID), userID.String(), Score(likedAt))
}

// Remove drops userID from the likers of postID.
func (l *Likers) Remove(ctx context.Context, postID, userID uuid.UUID) bool {
	return l.cache.ZRem(ctx, LikersKey(postID), userID.String())
}

// Clear drops the whole likers set of postID.
func (l *Likers) Clear(ctx context.Context, postID uuid.UUID) bool {
	return l.cache.Delete(ctx, LikersKey(postID))
}

// Warm makes sure the likers set of postID holds every like in the store,
// loading it when it is missing or partial. It reports whether the set can
// now be trusted for both hits and misses.
func (l *Likers) Warm(ctx context.Context, postID uuid.UUID) bool {
	key := LikersKey(postID)
	marker := l.cache.ZScore(ctx, key, completeMember)
	switch {
	case marker.Hit():
		return true
	case marker.Unavailable():
		return false
	}

	log := logger.FromContextOrDefault(ctx, l.logger)
	var after *uuid.UUID
	loaded := 0
	for {
		likes, err := l.likes.ListLikers(ctx, postID, after, warmBatch)
		if err != nil {
			log.Warn("failed to load likers from store", "post_id", postID, "error", err)
			return false
		}
		for _, like := range likes {
			// members already present carry likes the store has not applied
			if l.cache.ZAddNX(ctx, key, like.UserID.String(), Score(like.CreatedAt)).Unavailable() {
				return false
			}
		}
		if len(likes) == 0 && after != nil {
			// an unlike applied mid-load ends the keyset walk early
			if _, err := l.likes.Get(ctx, postID, *after); err != nil {
				log.Debug("likers load lost its cursor", "post_id", postID, "error", err)
				return false
			}
		}
		loaded += len(likes)
		if len(likes) < warmBatch {
			break
		}
		last := likes[len(likes)-1].UserID
		after = &last
	}

	if !l.cache.ZAdd(ctx, key, completeMember, 0) {
		return false
	}
	log.Debug("likers set loaded from store", "post_id", postID, "likes", loaded)
	return true
}

// Liked reports whether userID likes postID according to the likers set.
// known is false when the set could not be loaded, and the store has to
// answer instead.
func (l *Likers) Liked(ctx context.Context, postID, userID uuid.UUID) (liked, known bool) {
	if !l.Warm(ctx, postID) {
		return false, false
	}
	score := l.cache.ZScore(ctx, LikersKey(postID), userID.String())
	switch {
	case score.Hit():
		return true, true
	case score.Miss():
		return false, true
	default:
		return false, false
	}
}

// Page returns up to size likers of postID. A nil cursor starts at the
// oldest like; otherwise the page starts right after the cursor user. A
// cursor that no longer likes the post yields an empty page.
func (l *Likers) Page(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, size int) (*LikersPage, error) {
	size = clampPageSize(size)
	log := logger.FromContextOrDefault(ctx, l.logger)

	ids, ok := l.cachedPage(ctx, postID, cursor, size)
	if !ok {
		log.Debug("likers page served from store", "post_id", postID)
		likes, err := l.likes.ListLikers(ctx, postID, cursor, size)
		if err != nil {
			return nil, fmt.Errorf("failed to list likers: %w", err)
		}
		ids = make([]uuid.UUID, len(likes))
		for i, like := range likes {
			ids[i] = like.UserID
		}
	}

	users, err := l.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}

	page := &LikersPage{Users: users}
	if len(ids) > 0 {
		last := ids[len(ids)-1]
		page.NextCursor = &last
	}
	return page, nil
}

// cachedPage resolves the ids of a page from the sorted set. It reports
// false when the set cannot answer and the store has to.
func (l *Likers) cachedPage(ctx context.Context, postID uuid.UUID, cursor *uuid.UUID, size int) ([]uuid.UUID, bool) {
	key := LikersKey(postID)

	if !l.Warm(ctx, postID) {
		return nil, false
	}

	if cursor == nil {
		members := l.cache.ZRange(ctx, key, 1, int64(size))
		if !members.Hit() {
			return nil, false
		}
		return parseMembers(members.Value, l.logger), true
	}

	member := cursor.String()
	score := l.cache.ZScore(ctx, key, member)
	switch {
	case score.Miss():
		return []uuid.UUID{}, true
	case !score.Hit():
		return nil, false
	}

	// Members sharing the cursor's score sort by id. Skip those up to and
	// including the cursor: rank(cursor) - count(score < s) + 1. The
	// completeness marker counts on both sides.
	rank := l.cache.ZRank(ctx, key, member)
	s := strconv.FormatFloat(score.Value, 'f', -1, 64)
	below := l.cache.ZCount(ctx, key, "-inf", "("+s)
	if !rank.Hit() || !below.Hit() {
		if rank.Miss() {
			// removed between the two reads
			return []uuid.UUID{}, true
		}
		return nil, false
	}
	offset := rank.Value - below.Value + 1

	members := l.cache.ZRangeByScore(ctx, key, s, "+inf", offset, int64(size))
	if !members.Hit() {
		return nil, false
	}
	return parseMembers(members.Value, l.logger), true
}

// hydrate loads the users of ids in bulk and returns them in the order of
// ids. Users missing from the store are skipped.
func (l *Likers) hydrate(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	found, err := l.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load likers: %w", err)
	}

	byID := make(map[uuid.UUID]*domain.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func parseMembers(members []string, log *slog.Logger) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			log.Warn("skipping malformed liker id", "member", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func clampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}
