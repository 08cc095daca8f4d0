package testdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisAddrEnv overrides the container with an existing Redis server.
const RedisAddrEnv = "FEED_TEST_REDIS_ADDR"

var (
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// GetTestRedisAddr returns host:port of a test Redis server, starting a
// container on first use unless FEED_TEST_REDIS_ADDR is set.
func GetTestRedisAddr(t testing.TB) string {
	t.Helper()

	redisOnce.Do(func() {
		if addr := os.Getenv(RedisAddrEnv); addr != "" {
			redisAddr = addr
			return
		}
		ctx := context.Background()
		container, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			redisErr = fmt.Errorf("failed to start redis container: %w", err)
			return
		}
		redisAddr, redisErr = container.Endpoint(ctx, "")
	})

	if redisErr != nil {
		t.Fatalf("test redis unavailable: %v", redisErr)
	}
	return redisAddr
}
