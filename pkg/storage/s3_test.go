package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("static credentials", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{Bucket: "ship-attachments", AccessKey: "ak", SecretKey: "sk"})
		require.NoError(t, err)
		assert.Equal(t, "ship-attachments", store.bucket)
		assert.Equal(t, DefaultRegion, store.client.Options().Region)
	})

	t.Run("custom endpoint", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{
			Bucket:    "ship-attachments",
			AccessKey: "ak",
			SecretKey: "sk",
			Endpoint:  "http://localhost:9000",
			PathStyle: true,
		})
		require.NoError(t, err)
		assert.True(t, store.client.Options().UsePathStyle)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{Bucket: "ship-attachments"})
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, store)
	})
}

func TestS3Storage_RejectsInvalidKeyWithoutNetwork(t *testing.T) {
	t.Parallel()

	store, err := New(Config{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "../etc/passwd")
	require.ErrorIs(t, err, ErrInvalidKey)
	require.ErrorIs(t, store.Delete(context.Background(), ""), ErrInvalidKey)

	_, err = store.Put(context.Background(), strings.NewReader("x"), 1, WithKey("a//b"))
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"user123", "user123"},
		{"../../etc", "_etc"},
		{" crew list.pdf ", "crew_list.pdf"},
		{"/a/b/", "a_b"},
		{"..", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, segment(tt.in), tt.in)
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	parts := strings.Split(generateKey("user-1", "attachments", "Crew List.pdf", "application/pdf"), "/")
	require.Len(t, parts, 3)
	assert.Equal(t, []string{"user-1", "attachments"}, parts[:2])
	assert.Regexp(t, `^[0-9a-f-]{36}_Crew_List\.pdf$`, parts[2])

	key := generateKey("", "", "", "application/pdf")
	assert.Regexp(t, `^[0-9a-f-]{36}\.pdf$`, key)

	key = generateKey("", "", "", "application/x-portmail-unknown")
	assert.True(t, strings.HasSuffix(key, ".bin"), key)
}
