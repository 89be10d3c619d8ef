package kvredis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/grovetools/pantry/internal/storage/kv/kvtest"
)

func TestKVRedis(t *testing.T) {
	addr := os.Getenv("PANTRY_REDIS_ADDR")
	if addr == "" {
		t.Skip("PANTRY_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	kvtest.TestBucket(t, New(client, "pantry-test:"))
}
