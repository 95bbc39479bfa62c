package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const headerIdempotencyKey = "Idempotency-Key"

// Deduper remembers idempotency keys of create requests.
type Deduper interface {
	// Claim records key and reports whether it was new.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}

// RedisDeduper stores idempotency keys in Redis so that Blue instances sharing
// one Redis reject the same retried request.
type RedisDeduper struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, namespace string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisDeduper) key(key string) string {
	return "idem:" + r.namespace + ":" + key
}

func (r *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), 1, r.ttl).Result()
}

func (r *RedisDeduper) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
