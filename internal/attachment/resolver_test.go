package attachment_test

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/internal/attachment"
	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/pkg/cache"
	"github.com/portmail/portmail/pkg/storage"
)

// countingStore counts Get calls on top of an in-memory store.
type countingStore struct {
	*storage.Memory
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.gets.Add(1)
	return s.Memory.Get(ctx, key)
}

func put(t *testing.T, s storage.Storage, key string, data []byte) {
	t.Helper()
	_, err := s.Put(context.Background(), bytes.NewReader(data), int64(len(data)), storage.WithKey(key))
	require.NoError(t, err)
}

func TestRefs(t *testing.T) {
	t.Parallel()

	t.Run("prefers attachment list", func(t *testing.T) {
		t.Parallel()
		j := &jobs.Job{
			FilePath: "u1/attachments/a.pdf",
			FileName: "A.pdf,B.pdf",
			Attachments: []jobs.Attachment{
				{Path: "u1/attachments/a.pdf", Name: "A.pdf"},
				{Path: "u1/attachments/b.pdf", Name: "B.pdf"},
			},
		}
		assert.Equal(t, []attachment.Ref{
			{Path: "u1/attachments/a.pdf", Name: "A.pdf"},
			{Path: "u1/attachments/b.pdf", Name: "B.pdf"},
		}, attachment.Refs(j))
	})

	t.Run("legacy single file", func(t *testing.T) {
		t.Parallel()
		j := &jobs.Job{FilePath: "u1/crew.pdf", FileName: "Crew List.pdf"}
		assert.Equal(t, []attachment.Ref{{Path: "u1/crew.pdf", Name: "Crew List.pdf"}}, attachment.Refs(j))
	})

	t.Run("legacy comma list pairs only the first name with a path", func(t *testing.T) {
		t.Parallel()
		j := &jobs.Job{FilePath: "u1/crew.pdf", FileName: "crew.pdf,sp1.pdf,annex3.pdf"}
		assert.Equal(t, []attachment.Ref{
			{Path: "u1/crew.pdf", Name: "crew.pdf"},
			{Name: "sp1.pdf"},
			{Name: "annex3.pdf"},
		}, attachment.Refs(j))
	})

	t.Run("path without name", func(t *testing.T) {
		t.Parallel()
		j := &jobs.Job{FilePath: "u1/crew.pdf"}
		assert.Equal(t, []attachment.Ref{{Path: "u1/crew.pdf"}}, attachment.Refs(j))
	})

	t.Run("no attachments", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, attachment.Refs(&jobs.Job{}))
	})
}

func TestFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Crew List.pdf", attachment.Filename(attachment.Ref{Path: "u1/x.pdf", Name: " Crew List.pdf "}))
	assert.Equal(t, "x.pdf", attachment.Filename(attachment.Ref{Path: "u1/attachments/x.pdf"}))
	assert.Equal(t, attachment.DefaultFilename, attachment.Filename(attachment.Ref{}))
	assert.Equal(t, attachment.DefaultFilename, attachment.Filename(attachment.Ref{Path: "u1/"}))
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns bytes with name and content type", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		put(t, store, "u1/attachments/crew.pdf", []byte("%PDF-1.7 crew list"))

		f, err := attachment.NewResolver(store).Resolve(ctx, attachment.Ref{Path: "u1/attachments/crew.pdf", Name: "Crew.pdf"})
		require.NoError(t, err)
		assert.Equal(t, "Crew.pdf", f.Name)
		assert.Equal(t, "application/pdf", f.ContentType)
		assert.Equal(t, []byte("%PDF-1.7 crew list"), f.Content)
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()

		_, err := attachment.NewResolver(storage.NewMemory()).Resolve(ctx, attachment.Ref{Path: "u1/gone.pdf"})
		require.ErrorIs(t, err, attachment.ErrNotFound)
	})

	t.Run("malformed references never reach the store", func(t *testing.T) {
		t.Parallel()

		store := &countingStore{Memory: storage.NewMemory()}
		r := attachment.NewResolver(store)
		for _, p := range []string{"", "   ", "/etc/passwd", "u1/../secret", "a//b"} {
			_, err := r.Resolve(ctx, attachment.Ref{Path: p})
			require.ErrorIs(t, err, attachment.ErrUnresolvable, p)
		}
		assert.Zero(t, store.gets.Load())
	})

	t.Run("object above size limit", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		put(t, store, "u1/big.bin", bytes.Repeat([]byte("x"), 64))

		_, err := attachment.NewResolver(store, attachment.WithMaxSize(16)).Resolve(ctx, attachment.Ref{Path: "u1/big.bin"})
		require.ErrorIs(t, err, attachment.ErrFetch)
		require.ErrorIs(t, err, storage.ErrTooLarge)
	})

	t.Run("cache serves repeated references", func(t *testing.T) {
		t.Parallel()

		store := &countingStore{Memory: storage.NewMemory()}
		put(t, store, "u1/port-info.pdf", []byte("port info"))

		mem := cache.NewMemory[[]byte]()
		t.Cleanup(func() { _ = mem.Close() })
		r := attachment.NewResolver(store, attachment.WithCache(mem, time.Minute))

		for range 3 {
			f, err := r.Resolve(ctx, attachment.Ref{Path: "u1/port-info.pdf"})
			require.NoError(t, err)
			assert.Equal(t, "port-info.pdf", f.Name)
		}
		assert.Equal(t, int32(1), store.gets.Load())
	})
}
