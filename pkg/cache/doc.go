// Package cache holds the attachment byte cache: an in-process LRU bounded
// by entry count and bytes, a Redis backend shared by replicas, and a
// Loader that reads through either.
//
//	loader := cache.NewLoader[[]byte](cache.NewRedis(rdb, "portmail:attachment", 10*time.Minute))
//	data, err := loader.Load(ctx, key, func(ctx context.Context) ([]byte, time.Duration, error) {
//		b, err := storage.ReadAll(ctx, store, key, 0)
//		return b, 10 * time.Minute, err
//	})
package cache
