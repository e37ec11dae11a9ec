// Package redis opens the optional Redis client that backs the shared
// attachment cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

var (
	ErrNoURL       = errors.New("redis: REDIS_URL is not set")
	ErrBadURL      = errors.New("redis: invalid REDIS_URL")
	ErrUnreachable = errors.New("redis: server unreachable")
)

// Config is the Redis section of the app configuration.
type Config struct {
	URL           string        `env:"REDIS_URL"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"`
}

func (c Config) options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, ErrNoURL
	}
	// ParseURL accepts redis:// and rediss:// (TLS) and rejects other schemes.
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, errors.Join(ErrBadURL, err)
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
		opts.WriteTimeout = c.ReadTimeout
	}
	return opts, nil
}

// Open connects and pings, retrying with exponential backoff.
func Open(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(max(cfg.RetryAttempts, 1)-1), retry.NewExponential(interval))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx).Err())
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return client, nil
}

// Healthcheck pings the server.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrUnreachable
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return nil
	}
}

// Shutdown closes the client.
func Shutdown(client redis.UniversalClient) func(context.Context) error {
	return func(context.Context) error { return client.Close() }
}
