package storage

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/internal/storage/kv"
	"github.com/grovetools/pantry/internal/storage/kv/kvdiskv"
	"github.com/grovetools/pantry/internal/storage/kv/kvmap"
	"github.com/grovetools/pantry/internal/storage/kv/kvmysql"
	"github.com/grovetools/pantry/internal/storage/kv/kvredis"
)

// OpenBucket creates the bucket named by cfg.Backend. The returned close
// function releases any connection and is never nil.
func OpenBucket(ctx context.Context, cfg config.StorageConfig) (kv.Bucket, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return kvmap.NewBucket(), noop, nil
	case config.BackendDiskv, "":
		return kvdiskv.New(cfg.Path), noop, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
		}
		return kvredis.New(client, cfg.Prefix), client.Close, nil
	case config.BackendMySQL:
		b, err := kvmysql.New(ctx, kvmysql.WithDSN(cfg.DSN))
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to mysql: %w", err)
		}
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
