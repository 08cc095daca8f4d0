//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/testdb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisStore returns a Store on the shared test Redis under a namespace
// of its own, so tests never see each other's keys.
func newRedisStore(t *testing.T) (*cache.Store, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testdb.GetTestRedisAddr(t)})
	t.Cleanup(func() { _ = client.Close() })

	s := cache.New(client, cache.Options{
		Namespace: "IT" + uuid.NewString()[:8],
		OpTimeout: 2 * time.Second,
	})
	require.NoError(t, s.Ping(context.Background()))
	t.Cleanup(func() { s.Clear(context.Background()) })
	return s, client
}

func TestRedis_PushCappedKeepsNewest(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.True(t, s.PushCapped(ctx, "comments", fmt.Sprint(i), 10))
	}

	got := s.LRange(ctx, "comments", 0, -1)
	require.True(t, got.Hit())
	require.Len(t, got.Value, 10)
	assert.Equal(t, "14", got.Value[0])
	assert.Equal(t, "5", got.Value[9])
}

func TestRedis_SortedSetTiesOrderByMember(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	for _, m := range []string{"c", "a", "b"} {
		added := s.ZAddNX(ctx, "likers", m, 100)
		require.True(t, added.Hit())
		assert.True(t, added.Value)
	}
	again := s.ZAddNX(ctx, "likers", "a", 50)
	require.True(t, again.Hit())
	assert.False(t, again.Value, "an existing member keeps its score")

	score := s.ZScore(ctx, "likers", "a")
	require.True(t, score.Hit())
	assert.Equal(t, float64(100), score.Value)

	page := s.ZRangeByScore(ctx, "likers", "100", "+inf", 1, 2)
	require.True(t, page.Hit())
	assert.Equal(t, []string{"b", "c"}, page.Value)

	rank := s.ZRank(ctx, "likers", "c")
	require.True(t, rank.Hit())
	assert.Equal(t, int64(2), rank.Value)
}

func TestRedis_RemoveIndexDropsListedKeys(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.True(t, s.Set(ctx, "post:1", "one", 0))
	require.True(t, s.Set(ctx, "post:2", "two", 0))
	require.True(t, s.Set(ctx, "post:3", "three", 0))
	require.True(t, s.SetIndex(ctx, "user", "u1", map[string]string{"p1": "post:1", "p2": "post:2"}, 0))

	require.True(t, s.RemoveIndex(ctx, "user", "u1"))

	assert.True(t, s.Get(ctx, "post:1").Miss())
	assert.True(t, s.Get(ctx, "post:2").Miss())
	assert.True(t, s.Get(ctx, "post:3").Hit())
}

func TestRedis_ClearStaysInNamespace(t *testing.T) {
	s, client := newRedisStore(t)
	ctx := context.Background()

	outside := "OTHER" + uuid.NewString()[:8] + ":keep"
	require.NoError(t, client.Set(ctx, outside, "x", time.Minute).Err())
	t.Cleanup(func() { client.Del(context.Background(), outside) })

	require.True(t, s.Set(ctx, "a", "1", 0))
	require.True(t, s.SAdd(ctx, "posts", "p1"))
	require.True(t, s.Clear(ctx))

	assert.True(t, s.Get(ctx, "a").Miss())
	n, err := client.Exists(ctx, outside).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
