package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// SetGroup stores value under key inside group.
func (s *Store) SetGroup(ctx context.Context, group, key string, value any, ttl time.Duration) bool {
	return s.Set(ctx, Key(group, key), value, ttl)
}

// GetGroup reads key inside group.
func (s *Store) GetGroup(ctx context.Context, group, key string) Result[string] {
	return s.Get(ctx, Key(group, key))
}

// DeleteGroup removes key from group.
func (s *Store) DeleteGroup(ctx context.Context, group, key string) bool {
	return s.Delete(ctx, Key(group, key))
}

// Keys lists the logical keys matching pattern within the namespace.
func (s *Store) Keys(ctx context.Context, pattern string) Result[[]string] {
	var keys []string
	st := s.exec(ctx, "scan", pattern, func(ctx context.Context, c redis.UniversalClient) error {
		iter := c.Scan(ctx, 0, s.key(pattern), scanBatch).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, s.logical(iter.Val()))
		}
		return iter.Err()
	})
	return result(keys, st)
}

// ClearGroup removes every key of group.
func (s *Store) ClearGroup(ctx context.Context, group string) bool {
	return s.deleteMatching(ctx, Key(group, "*"))
}

// Clear removes every key of the namespace and nothing else.
func (s *Store) Clear(ctx context.Context) bool {
	return s.deleteMatching(ctx, "*")
}

func (s *Store) deleteMatching(ctx context.Context, pattern string) bool {
	keys := s.Keys(ctx, pattern)
	if !keys.Hit() {
		return false
	}
	for start := 0; start < len(keys.Value); start += scanBatch {
		end := min(start+scanBatch, len(keys.Value))
		if !s.Delete(ctx, keys.Value[start:end]...) {
			return false
		}
	}
	return true
}

func (s *Store) indexKey(group, id string) string {
	return Key(group, "index", id)
}

// SetIndex records fields (name -> logical cache key) in the index hash of
// id within group, so everything cached for id can be dropped together.
// A zero ttl applies the default TTL.
func (s *Store) SetIndex(ctx context.Context, group, id string, fields map[string]string, ttl time.Duration) bool {
	if len(fields) == 0 {
		return true
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	key := s.indexKey(group, id)
	return applied(s.exec(ctx, "hset", key, func(ctx context.Context, c redis.UniversalClient) error {
		_, err := c.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.key(key), fields)
			if ttl > 0 {
				p.Expire(ctx, s.key(key), ttl)
			}
			return nil
		})
		return err
	}))
}

// UpdateIndexKey points field of the index of id at newKey.
func (s *Store) UpdateIndexKey(ctx context.Context, group, id, field, newKey string) bool {
	key := s.indexKey(group, id)
	return applied(s.exec(ctx, "hset", key, func(ctx context.Context, c redis.UniversalClient) error {
		return c.HSet(ctx, s.key(key), field, newKey).Err()
	}))
}

// RemoveIndex deletes every key listed in the index of id, then the index.
func (s *Store) RemoveIndex(ctx context.Context, group, id string) bool {
	key := s.indexKey(group, id)
	var listed []string
	st := s.exec(ctx, "hvals", key, func(ctx context.Context, c redis.UniversalClient) (err error) {
		listed, err = c.HVals(ctx, s.key(key)).Result()
		return err
	})
	if st == StatusUnavailable {
		return false
	}
	return s.Delete(ctx, append(listed, key)...)
}
