package sidestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisClient narrows go-redis's Cmdable down to the two operations this
// store needs, the same way etalazz-vsa's RedisEvaler narrows it to Eval —
// a small seam that lets tests substitute a fake without a live server.
type redisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisStore is a Store backed by Redis hashes: one hash per namespace,
// fields keyed by vuln_id. It satisfies the `trace.redis_host`/
// `trace.redis_port` configuration contract (§6).
type RedisStore struct {
	client redisClient
}

// NewRedisStore dials addr ("host:port") and returns a RedisStore.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	val, err := s.client.HGet(ctx, string(ns), key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sidestore: redis HGET %s/%s: %w", ns, key, err)
	}
	return []byte(val), true, nil
}

func (s *RedisStore) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	if err := s.client.HSet(ctx, string(ns), key, value).Err(); err != nil {
		return fmt.Errorf("sidestore: redis HSET %s/%s: %w", ns, key, err)
	}
	return nil
}
