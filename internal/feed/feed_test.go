package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, cache.Options{Namespace: "TEST", OpTimeout: 200 * time.Millisecond}), mr
}

func newUsers(t *testing.T, n int) []*domain.User {
	t.Helper()
	users := make([]*domain.User, n)
	for i := range users {
		u, err := domain.NewUser(fmt.Sprintf("user%02d", i), "", "", "")
		require.NoError(t, err)
		users[i] = u
	}
	return users
}

func threadAt(postID uuid.UUID, i int) *Thread {
	c := &domain.Comment{
		ID:        uuid.New(),
		PostID:    postID,
		UserID:    uuid.New(),
		Text:      fmt.Sprintf("comment %d", i),
		CreatedAt: time.Unix(int64(1000+i), 0).UTC(),
	}
	return NewThread(c, nil)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("8a1e2b3c-0000-4000-8000-000000000001")
	assert.Equal(t, "post:8a1e2b3c-0000-4000-8000-000000000001:comments", CommentsKey(id))
	assert.Equal(t, "post:8a1e2b3c-0000-4000-8000-000000000001:likes", LikeCountKey(id))
	assert.Equal(t, "post:8a1e2b3c-0000-4000-8000-000000000001:likers", LikersKey(id))
	assert.Equal(t, "post:8a1e2b3c-0000-4000-8000-000000000001", PostKey(id))
}

func TestScoreClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(5000)
	clock := &ScoreClock{now: func() time.Time { return fixed }}

	first := clock.Next()
	second := clock.Next()
	third := clock.Next()

	assert.Equal(t, int64(5000), first.UnixMilli())
	assert.Equal(t, int64(5001), second.UnixMilli())
	assert.Equal(t, int64(5002), third.UnixMilli())
	assert.Less(t, Score(first), Score(second))

	wall := NewScoreClock()
	a, b := wall.Next(), wall.Next()
	assert.True(t, b.After(a))
}

func TestRecentCommentsKeepsNewest(t *testing.T) {
	c, _ := newTestCache(t)
	rc := NewRecentComments(c, DefaultRecentComments, nil)
	ctx := context.Background()
	postID := uuid.New()

	var pushed []*Thread
	for i := 0; i < 15; i++ {
		th := threadAt(postID, i)
		pushed = append(pushed, th)
		require.True(t, rc.Push(ctx, th))

		// edits to entries that have aged out never resurrect them
		if i >= 12 {
			assert.False(t, rc.UpdateText(ctx, postID, pushed[0].ID, "edited", time.Now()))
			assert.False(t, rc.Remove(ctx, postID, pushed[1].ID))
		}
	}

	res := rc.List(ctx, postID)
	require.True(t, res.Hit())
	require.Len(t, res.Value, 10)
	for i, th := range res.Value {
		want := pushed[14-i]
		assert.Equal(t, want.ID, th.ID, "position %d", i)
		assert.Equal(t, want.Text, th.Text)
	}
}

func TestRecentCommentsEdits(t *testing.T) {
	c, _ := newTestCache(t)
	rc := NewRecentComments(c, 3, nil)
	ctx := context.Background()
	postID := uuid.New()

	a, b := threadAt(postID, 1), threadAt(postID, 2)
	require.True(t, rc.Push(ctx, a))
	require.True(t, rc.Push(ctx, b))

	reply := &domain.Comment{ID: uuid.New(), PostID: postID, UserID: uuid.New(), ParentID: &a.ID, Text: "reply"}
	assert.True(t, rc.SetLatestReply(ctx, postID, a.ID, reply))
	assert.False(t, rc.SetLatestReply(ctx, postID, uuid.New(), reply), "unknown parent")

	assert.True(t, rc.UpdateText(ctx, postID, b.ID, "b edited", time.Now()))
	assert.True(t, rc.UpdateText(ctx, postID, reply.ID, "reply edited", time.Now()))

	list := rc.List(ctx, postID).Value
	require.Len(t, list, 2)
	assert.Equal(t, "b edited", list[0].Text)
	require.NotNil(t, list[1].LatestReply)
	assert.Equal(t, reply.ID, list[1].LatestReply.ID)
	assert.Equal(t, "reply edited", list[1].LatestReply.Text)

	// removing the reply clears it; removing the thread drops the entry
	assert.True(t, rc.Remove(ctx, postID, reply.ID))
	assert.Nil(t, rc.List(ctx, postID).Value[1].LatestReply)
	assert.True(t, rc.Remove(ctx, postID, b.ID))

	list = rc.List(ctx, postID).Value
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	assert.True(t, rc.Clear(ctx, postID))
	empty := rc.List(ctx, postID)
	assert.True(t, empty.Hit())
	assert.Empty(t, empty.Value)
}

func TestRecentCommentsCacheDown(t *testing.T) {
	c, mr := newTestCache(t)
	rc := NewRecentComments(c, 0, nil)
	assert.Equal(t, DefaultRecentComments, rc.Size())
	mr.Close()

	ctx := context.Background()
	postID := uuid.New()
	assert.False(t, rc.Push(ctx, threadAt(postID, 1)))
	assert.True(t, rc.List(ctx, postID).Unavailable())
	assert.False(t, rc.UpdateText(ctx, postID, uuid.New(), "x", time.Now()))
	assert.False(t, rc.Remove(ctx, postID, uuid.New()))
}

func pageAll(t *testing.T, l *Likers, postID uuid.UUID, size int) [][]uuid.UUID {
	t.Helper()
	var pages [][]uuid.UUID
	var cursor *uuid.UUID
	for i := 0; i < 100; i++ {
		page, err := l.Page(context.Background(), postID, cursor, size)
		require.NoError(t, err)
		ids := make([]uuid.UUID, len(page.Users))
		for j, u := range page.Users {
			ids[j] = u.ID
		}
		pages = append(pages, ids)
		if len(ids) == 0 {
			assert.Nil(t, page.NextCursor)
			return pages
		}
		require.NotNil(t, page.NextCursor)
		cursor = page.NextCursor
	}
	t.Fatal("paging did not terminate")
	return nil
}

func flatten(pages [][]uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}

func TestLikersPagingVisitsEachOnce(t *testing.T) {
	c, _ := newTestCache(t)
	users := newUsers(t, 23)
	l := NewLikers(c, mocks.NewMockLikeStore(), mocks.NewMockUserStore(users...), nil)
	ctx := context.Background()
	postID := uuid.New()

	clock := NewScoreClock()
	want := make([]uuid.UUID, len(users))
	for i, u := range users {
		require.True(t, l.Add(ctx, postID, u.ID, clock.Next()))
		want[i] = u.ID
	}

	pages := pageAll(t, l, postID, 5)
	require.Len(t, pages, 6, "five full or partial pages and a final empty one")
	assert.Len(t, pages[4], 3)
	assert.Empty(t, pages[5])
	assert.Equal(t, want, flatten(pages))
}

func TestLikersPagingWithTiedScores(t *testing.T) {
	c, _ := newTestCache(t)
	users := newUsers(t, 12)
	l := NewLikers(c, mocks.NewMockLikeStore(), mocks.NewMockUserStore(users...), nil)
	ctx := context.Background()
	postID := uuid.New()

	// three groups of four likes sharing a timestamp
	for i, u := range users {
		require.True(t, l.Add(ctx, postID, u.ID, time.UnixMilli(int64(1000*(i/4+1)))))
	}

	got := flatten(pageAll(t, l, postID, 3))
	require.Len(t, got, len(users))
	seen := make(map[uuid.UUID]bool)
	for _, id := range got {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}

	// order matches the sorted set, after the completeness marker
	members := c.ZRange(ctx, LikersKey(postID), 1, -1)
	require.True(t, members.Hit())
	for i, m := range members.Value {
		assert.Equal(t, m, got[i].String())
	}
}

func TestLikersRemovedCursorEndsPaging(t *testing.T) {
	c, _ := newTestCache(t)
	users := newUsers(t, 4)
	l := NewLikers(c, mocks.NewMockLikeStore(), mocks.NewMockUserStore(users...), nil)
	ctx := context.Background()
	postID := uuid.New()

	clock := NewScoreClock()
	for _, u := range users {
		require.True(t, l.Add(ctx, postID, u.ID, clock.Next()))
	}

	page, err := l.Page(ctx, postID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	require.True(t, l.Remove(ctx, postID, *page.NextCursor))

	next, err := l.Page(ctx, postID, page.NextCursor, 2)
	require.NoError(t, err)
	assert.Empty(t, next.Users)
	assert.Nil(t, next.NextCursor)
}

func TestLikersFallsBackToStore(t *testing.T) {
	users := newUsers(t, 5)
	likes := mocks.NewMockLikeStore()
	postID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, u := range users {
		likes.Put(&domain.Like{ID: uuid.New(), PostID: postID, UserID: u.ID, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	userStore := mocks.NewMockUserStore(users...)

	tests := []struct {
		name  string
		setup func(mr *miniredis.Miniredis)
	}{
		{"cold cache", func(*miniredis.Miniredis) {}},
		{"cache down", func(mr *miniredis.Miniredis) { mr.Close() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mr := newTestCache(t)
			tt.setup(mr)
			l := NewLikers(c, likes, userStore, nil)

			got := flatten(pageAll(t, l, postID, 2))
			want := make([]uuid.UUID, len(users))
			for i, u := range users {
				want[i] = u.ID
			}
			assert.Equal(t, want, got)
		})
	}
	assert.Positive(t, likes.ListLikersCalls.Load())
}

func TestLikersPartialSetIsCompletedFromStore(t *testing.T) {
	c, _ := newTestCache(t)
	users := newUsers(t, 3)
	likes := mocks.NewMockLikeStore()
	l := NewLikers(c, likes, mocks.NewMockUserStore(users...), nil)
	ctx := context.Background()
	postID := uuid.New()

	// two likes only in the store, then a fresh like lands on a flushed cache
	base := time.UnixMilli(1_000_000)
	for i, u := range users[:2] {
		likes.Put(&domain.Like{ID: uuid.New(), PostID: postID, UserID: u.ID, CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	added := l.AddIfAbsent(ctx, postID, users[2].ID, base.Add(time.Minute))
	require.True(t, added.Hit())

	liked, known := l.Liked(ctx, postID, users[0].ID)
	require.True(t, known)
	assert.True(t, liked, "a like held only by the store is still a like")

	got := flatten(pageAll(t, l, postID, 2))
	assert.Equal(t, []uuid.UUID{users[0].ID, users[1].ID, users[2].ID}, got)
	assert.Equal(t, int64(1), likes.ListLikersCalls.Load(), "the set is loaded once")

	liked, known = l.Liked(ctx, postID, uuid.New())
	require.True(t, known)
	assert.False(t, liked)
}

func TestLikersWarmLoadsInBatches(t *testing.T) {
	c, _ := newTestCache(t)
	likes := mocks.NewMockLikeStore()
	l := NewLikers(c, likes, mocks.NewMockUserStore(), nil)
	ctx := context.Background()
	postID := uuid.New()

	base := time.UnixMilli(1_000_000)
	for i := 0; i < warmBatch+3; i++ {
		likes.Put(&domain.Like{ID: uuid.New(), PostID: postID, UserID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Millisecond)})
	}

	require.True(t, l.Warm(ctx, postID))
	card := c.ZCard(ctx, LikersKey(postID))
	require.True(t, card.Hit())
	assert.EqualValues(t, warmBatch+3+1, card.Value, "every like plus the marker")
	assert.Equal(t, int64(2), likes.ListLikersCalls.Load())
}

func TestLikersWarmFailures(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		c, _ := newTestCache(t)
		likes := mocks.NewMockLikeStore()
		likes.ListLikersFn = func(context.Context, uuid.UUID, *uuid.UUID, int) ([]*domain.Like, error) {
			return nil, errors.New("connection reset")
		}
		l := NewLikers(c, likes, mocks.NewMockUserStore(), nil)

		assert.False(t, l.Warm(context.Background(), uuid.New()))
		_, known := l.Liked(context.Background(), uuid.New(), uuid.New())
		assert.False(t, known)
	})

	t.Run("cache down", func(t *testing.T) {
		c, mr := newTestCache(t)
		mr.Close()
		likes := mocks.NewMockLikeStore()
		l := NewLikers(c, likes, mocks.NewMockUserStore(), nil)

		_, known := l.Liked(context.Background(), uuid.New(), uuid.New())
		assert.False(t, known)
		assert.Zero(t, likes.ListLikersCalls.Load())
	})
}

func TestLikersHydrationKeepsCacheOrder(t *testing.T) {
	c, _ := newTestCache(t)
	users := newUsers(t, 6)
	userStore := mocks.NewMockUserStore(users...)
	l := NewLikers(c, mocks.NewMockLikeStore(), userStore, nil)
	ctx := context.Background()
	postID := uuid.New()

	// insert in reverse so cache order differs from creation order
	clock := NewScoreClock()
	for i := len(users) - 1; i >= 0; i-- {
		require.True(t, l.Add(ctx, postID, users[i].ID, clock.Next()))
	}
	// a liker whose profile is gone is skipped
	ghost := uuid.New()
	require.True(t, l.Add(ctx, postID, ghost, clock.Next()))

	page, err := l.Page(ctx, postID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Users, 6)
	for i, u := range page.Users {
		assert.Equal(t, users[len(users)-1-i].ID, u.ID)
	}
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, ghost, *page.NextCursor, "cursor follows the cache even when hydration skips")
	assert.Equal(t, int64(1), userStore.GetByIDsCalls.Load())
}

func TestLikersAddIfAbsentKeepsScore(t *testing.T) {
	c, _ := newTestCache(t)
	l := NewLikers(c, mocks.NewMockLikeStore(), mocks.NewMockUserStore(), nil)
	ctx := context.Background()
	postID, userID := uuid.New(), uuid.New()

	first := time.UnixMilli(1000)
	require.True(t, l.Add(ctx, postID, userID, first))

	res := l.AddIfAbsent(ctx, postID, userID, time.UnixMilli(9000))
	require.True(t, res.Hit())
	assert.False(t, res.Value)

	score := c.ZScore(ctx, LikersKey(postID), userID.String())
	require.True(t, score.Hit())
	assert.Equal(t, Score(first), score.Value)
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, clampPageSize(0))
	assert.Equal(t, DefaultPageSize, clampPageSize(-3))
	assert.Equal(t, MaxPageSize, clampPageSize(1000))
	assert.Equal(t, 7, clampPageSize(7))
}
