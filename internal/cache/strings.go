package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Get returns the raw value stored at key.
func (s *Store) Get(ctx context.Context, key string) Result[string] {
	var v string
	st := s.exec(ctx, "get", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		v, err = c.Get(ctx, s.key(key)).Result()
		return err
	})
	return result(v, st)
}

// GetJSON decodes the JSON value stored at key. A value that fails to
// decode is reported as a miss and removed.
func GetJSON[T any](ctx context.Context, s *Store, key string) Result[T] {
	var zero T
	raw := s.Get(ctx, key)
	if !raw.Hit() {
		return Result[T]{Value: zero, Status: raw.Status}
	}
	var v T
	if err := json.Unmarshal([]byte(raw.Value), &v); err != nil {
		s.logger.Warn("dropping undecodable cache entry", "key", key, "error", err.Error())
		s.Delete(ctx, key)
		return Result[T]{Value: zero, Status: StatusMiss}
	}
	return hit(v)
}

// Set stores value at key. Strings and byte slices are stored verbatim,
// anything else as JSON. A zero ttl applies the default TTL and NoExpiry
// keeps the entry until it is deleted.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payload, err := encode(value)
	if err != nil {
		s.logger.Warn("cache value not encodable", "key", key, "error", err.Error())
		return false
	}
	switch {
	case ttl == 0:
		ttl = s.defaultTTL
	case ttl == NoExpiry:
		ttl = 0
	}
	return applied(s.exec(ctx, "set", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.Set(ctx, s.key(key), payload, ttl).Err()
	}))
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return applied(s.exec(ctx, "del", keys[0], func(ctx context.Context, c redis.UniversalClient) error {
		return c.Del(ctx, full...).Err()
	}))
}

// Incr increments the counter at key and returns its new value.
func (s *Store) Incr(ctx context.Context, key string) Result[int64] {
	return s.incrBy(ctx, "incr", key, 1)
}

// Decr decrements the counter at key and returns its new value.
func (s *Store) Decr(ctx context.Context, key string) Result[int64] {
	return s.incrBy(ctx, "decr", key, -1)
}

func (s *Store) incrBy(ctx context.Context, op, key string, delta int64) Result[int64] {
	var n int64
	st := s.exec(ctx, op, key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		n, err = c.IncrBy(ctx, s.key(key), delta).Result()
		return err
	})
	return result(n, st)
}

// GetInt reads a counter.
func (s *Store) GetInt(ctx context.Context, key string) Result[int64] {
	raw := s.Get(ctx, key)
	if !raw.Hit() {
		return Result[int64]{Status: raw.Status}
	}
	n, err := strconv.ParseInt(raw.Value, 10, 64)
	if err != nil {
		return Result[int64]{Status: StatusMiss}
	}
	return hit(n)
}

// SetInt overwrites a counter without a TTL.
func (s *Store) SetInt(ctx context.Context, key string, n int64) bool {
	return s.Set(ctx, key, strconv.FormatInt(n, 10), NoExpiry)
}

func encode(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
