package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// SAdd adds members to the set at key.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) bool {
	args := toAny(members)
	return applied(s.exec(ctx, "sadd", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.SAdd(ctx, s.key(key), args...).Err()
	}))
}

// SRem removes members from the set at key.
func (s *Store) SRem(ctx context.Context, key string, members ...string) bool {
	args := toAny(members)
	return applied(s.exec(ctx, "srem", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.SRem(ctx, s.key(key), args...).Err()
	}))
}

// SIsMember reports membership as a hit with Value true. A non-member is a
// miss, so callers treat it exactly like an absent key.
func (s *Store) SIsMember(ctx context.Context, key, member string) Result[bool] {
	var ok bool
	st := s.exec(ctx, "sismember", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		ok, err = c.SIsMember(ctx, s.key(key), member).Result()
		return err
	})
	if st == StatusHit && !ok {
		st = StatusMiss
	}
	return result(ok, st)
}

// ZAdd sets the score of member, adding it if needed.
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) bool {
	return applied(s.exec(ctx, "zadd", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.ZAdd(ctx, s.key(key), redis.Z{Score: score, Member: member}).Err()
	}))
}

// ZAddNX adds member only if it is not present, keeping an existing score.
// It reports whether the member was added.
func (s *Store) ZAddNX(ctx context.Context, key, member string, score float64) Result[bool] {
	var n int64
	st := s.exec(ctx, "zaddnx", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		n, err = c.ZAddNX(ctx, s.key(key), redis.Z{Score: score, Member: member}).Result()
		return err
	})
	return result(n == 1, st)
}

// ZRem removes members from the sorted set at key.
func (s *Store) ZRem(ctx context.Context, key string, members ...string) bool {
	args := toAny(members)
	return applied(s.exec(ctx, "zrem", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.ZRem(ctx, s.key(key), args...).Err()
	}))
}

// ZRank returns the ascending rank of member; a miss if it is absent.
func (s *Store) ZRank(ctx context.Context, key, member string) Result[int64] {
	var rank int64
	st := s.exec(ctx, "zrank", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		rank, err = c.ZRank(ctx, s.key(key), member).Result()
		return err
	})
	return result(rank, st)
}

// ZScore returns the score of member; a miss if it is absent.
func (s *Store) ZScore(ctx context.Context, key, member string) Result[float64] {
	var score float64
	st := s.exec(ctx, "zscore", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		score, err = c.ZScore(ctx, s.key(key), member).Result()
		return err
	})
	return result(score, st)
}

// ZCard returns the number of members of the sorted set at key.
func (s *Store) ZCard(ctx context.Context, key string) Result[int64] {
	var n int64
	st := s.exec(ctx, "zcard", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		n, err = c.ZCard(ctx, s.key(key)).Result()
		return err
	})
	return result(n, st)
}

// ZCount counts members with min <= score <= max. Bounds use Redis syntax,
// so "(" makes a bound exclusive and "-inf"/"+inf" are accepted.
func (s *Store) ZCount(ctx context.Context, key, min, max string) Result[int64] {
	var n int64
	st := s.exec(ctx, "zcount", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		n, err = c.ZCount(ctx, s.key(key), min, max).Result()
		return err
	})
	return result(n, st)
}

// ZRange returns members by ascending rank, stop inclusive.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) Result[[]string] {
	var members []string
	st := s.exec(ctx, "zrange", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		members, err = c.ZRange(ctx, s.key(key), start, stop).Result()
		return err
	})
	return result(members, st)
}

// ZRangeByScore returns up to count members with scores in [min, max],
// skipping offset of them. Bounds use Redis syntax.
func (s *Store) ZRangeByScore(ctx context.Context, key, min, max string, offset, count int64) Result[[]string] {
	var members []string
	st := s.exec(ctx, "zrangebyscore", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		members, err = c.ZRangeByScore(ctx, s.key(key), &redis.ZRangeBy{
			Min:    min,
			Max:    max,
			Offset: offset,
			Count:  count,
		}).Result()
		return err
	})
	return result(members, st)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
