package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LPush prepends values to the list at key.
func (s *Store) LPush(ctx context.Context, key string, values ...string) bool {
	args := toAny(values)
	return applied(s.exec(ctx, "lpush", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.LPush(ctx, s.key(key), args...).Err()
	}))
}

// LTrim keeps only the elements between start and stop inclusive.
func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) bool {
	return applied(s.exec(ctx, "ltrim", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.LTrim(ctx, s.key(key), start, stop).Err()
	}))
}

// PushCapped prepends value and trims the list to its newest size
// elements in a single round trip.
func (s *Store) PushCapped(ctx context.Context, key, value string, size int64) bool {
	return applied(s.exec(ctx, "lpush_capped", key, func(ctx context.Context, c redis.UniversalClient) error {
		_, err := c.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LPush(ctx, s.key(key), value)
			p.LTrim(ctx, s.key(key), 0, size-1)
			return nil
		})
		return err
	}))
}

// LRange returns the elements between start and stop inclusive. An absent
// list is a hit with no elements.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) Result[[]string] {
	var values []string
	st := s.exec(ctx, "lrange", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		values, err = c.LRange(ctx, s.key(key), start, stop).Result()
		return err
	})
	return result(values, st)
}

// LSet overwrites the element at index.
func (s *Store) LSet(ctx context.Context, key string, index int64, value string) bool {
	return applied(s.exec(ctx, "lset", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.LSet(ctx, s.key(key), index, value).Err()
	}))
}

// LRem removes up to count occurrences of value (all when count is 0) and
// returns how many were removed.
func (s *Store) LRem(ctx context.Context, key string, count int64, value string) Result[int64] {
	var n int64
	st := s.exec(ctx, "lrem", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		n, err = c.LRem(ctx, s.key(key), count, value).Result()
		return err
	})
	return result(n, st)
}
