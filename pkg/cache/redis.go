package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTTL = time.Hour

// Redis caches byte slices in Redis so that every replica shares them.
// The client is owned and closed by the caller.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedis stores entries under "{namespace}:{key}". A non-positive
// defaultTTL means one hour.
func NewRedis(client redis.UniversalClient, namespace string, defaultTTL time.Duration) *Redis {
	if defaultTTL <= 0 {
		defaultTTL = defaultRedisTTL
	}
	return &Redis{client: client, namespace: namespace, ttl: defaultTTL}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = r.ttl
	case ttl < 0:
		ttl = 0 // no expiry in Redis terms
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error { return nil }

func (r *Redis) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

var _ Cache[[]byte] = (*Redis)(nil)
