package resend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/pkg/mailer"
)

func TestNew_MissingAPIKey(t *testing.T) {
	t.Parallel()

	s, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Nil(t, s)
}

func TestSend_NilSender(t *testing.T) {
	t.Parallel()

	var s *Sender
	_, err := s.Send(context.Background(), &mailer.Email{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestConvertAttachments(t *testing.T) {
	t.Parallel()

	out := convertAttachments([]mailer.Attachment{
		{Filename: "a.pdf", ContentType: "application/pdf", Content: []byte("x")},
		{Filename: "b.txt", Content: []byte("y")},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "a.pdf", out[0].Filename)
	assert.Equal(t, "application/pdf", out[0].ContentType)
	assert.Equal(t, []byte("y"), out[1].Content)
}
