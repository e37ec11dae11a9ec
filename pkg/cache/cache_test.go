package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/pkg/cache"
)

func TestMemory_GetSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[int]()
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", 42, time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[string]()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", "v", time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", "v", -1))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	require.ErrorIs(t, err, cache.ErrNotFound)
	_, err = c.Get(ctx, "forever")
	require.NoError(t, err)
}

func TestMemory_LRUEviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[int](cache.WithMaxEntries(2))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	_, err := c.Get(ctx, "a") // a becomes most recently used
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	_, err = c.Get(ctx, "b")
	require.ErrorIs(t, err, cache.ErrNotFound)
	_, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_MaxBytes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[[]byte](cache.WithMaxBytes(10))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "crew.pdf", make([]byte, 6), 0))
	require.NoError(t, c.Set(ctx, "nor.pdf", make([]byte, 4), 0))
	assert.Equal(t, 2, c.Len())

	// Needs 3 more bytes, so the least recently used entry goes.
	require.NoError(t, c.Set(ctx, "sp1.pdf", make([]byte, 3), 0))
	_, err := c.Get(ctx, "crew.pdf")
	require.ErrorIs(t, err, cache.ErrNotFound)
	_, err = c.Get(ctx, "nor.pdf")
	require.NoError(t, err)

	// Larger than the whole budget: skipped, nothing evicted.
	require.NoError(t, c.Set(ctx, "huge.pdf", make([]byte, 11), 0))
	_, err = c.Get(ctx, "huge.pdf")
	require.ErrorIs(t, err, cache.ErrNotFound)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_Closed(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[int]()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Set(context.Background(), "k", 1, 0), cache.ErrClosed)
}

func TestLoader_CachesAndDeduplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[[]byte]()
	defer c.Close()
	loader := cache.NewLoader[[]byte](c)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) ([]byte, time.Duration, error) {
		calls.Add(1)
		<-release
		return []byte("pdf"), time.Minute, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := loader.Load(ctx, "user/crew.pdf", fn)
			assert.NoError(t, err)
			assert.Equal(t, []byte("pdf"), v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	v, err := loader.Load(ctx, "user/crew.pdf", func(context.Context) ([]byte, time.Duration, error) {
		t.Fatal("must be served from cache")
		return nil, 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), v)
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory[string]()
	defer c.Close()
	loader := cache.NewLoader[string](c)

	boom := errors.New("boom")
	_, err := loader.Load(ctx, "k", func(context.Context) (string, time.Duration, error) {
		return "", 0, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestLoader_NilCache(t *testing.T) {
	t.Parallel()

	loader := cache.NewLoader[int](nil)
	calls := 0
	for range 2 {
		v, err := loader.Load(context.Background(), "k", func(context.Context) (int, time.Duration, error) {
			calls++
			return 7, 0, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 2, calls)
}
