package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	_, err := Config{}.options()
	require.ErrorIs(t, err, ErrNoURL)

	_, err = Config{URL: "http://localhost:6379"}.options()
	require.ErrorIs(t, err, ErrBadURL)

	_, err = Config{URL: "redis://localhost:notaport/0"}.options()
	require.ErrorIs(t, err, ErrBadURL)

	opts, err := Config{URL: "rediss://:secret@cache.internal:6380/2", PoolSize: 4, ReadTimeout: time.Second}.options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
	assert.Equal(t, time.Second, opts.WriteTimeout)
	assert.NotNil(t, opts.TLSConfig)
}

func TestOpen_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{
		URL:           "redis://127.0.0.1:1/0",
		DialTimeout:   50 * time.Millisecond,
		RetryAttempts: 2,
		RetryInterval: time.Millisecond,
	})
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrUnreachable)
}
