package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores values under string keys.
//
// A positive TTL expires the entry after that long, zero applies the
// backend's default and a negative TTL keeps the entry until it is evicted.
type Cache[V any] interface {
	// Get returns ErrNotFound for missing and expired keys.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Loader reads through a cache. Concurrent misses on one key share a single
// call to the load function.
type Loader[V any] struct {
	cache Cache[V]
	group singleflight.Group
}

// NewLoader wraps c. With a nil cache every Load calls fn.
func NewLoader[V any](c Cache[V]) *Loader[V] {
	return &Loader[V]{cache: c}
}

// LoadFunc produces a value and the TTL to cache it for.
type LoadFunc[V any] func(ctx context.Context) (V, time.Duration, error)

// Load returns the cached value for key, or calls fn and caches its result.
// Errors from fn are returned and not cached. A failing cache only costs
// the extra call to fn.
func (l *Loader[V]) Load(ctx context.Context, key string, fn LoadFunc[V]) (V, error) {
	if l == nil || l.cache == nil {
		v, _, err := fn(ctx)
		return v, err
	}

	if v, err := l.cache.Get(ctx, key); err == nil {
		return v, nil
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		v, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
