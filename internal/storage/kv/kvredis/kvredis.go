// Package kvredis stores bucket values in Redis under a key prefix.
package kvredis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/grovetools/pantry/internal/storage/kv"
)

// KVRedis is a Redis-backed key-value bucket.
type KVRedis struct {
	client *redis.Client
	prefix string
}

// New wraps client. Every key is stored as prefix+key.
func New(client *redis.Client, prefix string) *KVRedis {
	return &KVRedis{client: client, prefix: prefix}
}

func (s *KVRedis) key(k string) string {
	return s.prefix + k
}

func (s *KVRedis) Get(ctx context.Context, k string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrKeyNotFound
	}
	return v, err
}

func (s *KVRedis) Set(ctx context.Context, k string, v []byte) error {
	return s.client.Set(ctx, s.key(k), v, 0).Err()
}

func (s *KVRedis) Has(ctx context.Context, k string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(k)).Result()
	return n > 0, err
}

func (s *KVRedis) Delete(ctx context.Context, k string) error {
	return s.client.Del(ctx, s.key(k)).Err()
}
