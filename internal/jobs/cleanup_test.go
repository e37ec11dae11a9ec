package jobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/pkg/storage"
)

type failingRemover struct {
	failOn string
}

func (r failingRemover) Delete(_ context.Context, key string) error {
	switch key {
	case r.failOn:
		return storage.ErrDeleteFailed
	case "missing":
		return storage.ErrNotFound
	}
	return nil
}

func TestAttachmentCleanup(t *testing.T) {
	t.Parallel()

	t.Run("removes every key", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		ctx := context.Background()
		a, err := store.Put(ctx, bytes.NewReader([]byte("a")), 1, storage.WithKey("u1/attachments/a.pdf"))
		require.NoError(t, err)
		b, err := store.Put(ctx, bytes.NewReader([]byte("b")), 1, storage.WithKey("u1/attachments/b.pdf"))
		require.NoError(t, err)

		task := NewAttachmentCleanup(store, nil)
		assert.Equal(t, CleanupTaskName, task.Name())
		require.NoError(t, task.Handle(ctx, CleanupPayload{Keys: []string{a.Key, b.Key}}))
		assert.Zero(t, store.Len())
	})

	t.Run("ignores missing objects", func(t *testing.T) {
		t.Parallel()

		task := NewAttachmentCleanup(failingRemover{}, nil)
		require.NoError(t, task.Handle(context.Background(), CleanupPayload{Keys: []string{"missing", "ok"}}))
	})

	t.Run("returns delete failures for retry", func(t *testing.T) {
		t.Parallel()

		task := NewAttachmentCleanup(failingRemover{failOn: "broken"}, nil)
		err := task.Handle(context.Background(), CleanupPayload{Keys: []string{"ok", "broken"}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrDeleteFailed))
	})
}
