package smtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/portmail/portmail/pkg/mailer"
)

func TestNew_MissingCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "no host", cfg: Config{Username: "u", Password: "p"}, want: ErrMissingHost},
		{name: "no user", cfg: Config{Host: "smtp.example.com", Password: "p"}, want: ErrMissingCredentials},
		{name: "no password", cfg: Config{Host: "smtp.example.com", Username: "u"}, want: ErrMissingCredentials},
		{name: "bad tls", cfg: Config{Host: "smtp.example.com", Username: "u", Password: "p", TLS: "sometimes"}, want: ErrInvalidTLSPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.cfg)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}

func TestSend_ZeroValueSender(t *testing.T) {
	t.Parallel()

	var s *Sender
	_, err := s.Send(context.Background(), &mailer.Email{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestParseTLSPolicy(t *testing.T) {
	t.Parallel()

	p, err := parseTLSPolicy("")
	require.NoError(t, err)
	assert.Equal(t, mail.TLSOpportunistic, p)

	p, err = parseTLSPolicy("Mandatory")
	require.NoError(t, err)
	assert.Equal(t, mail.TLSMandatory, p)

	p, err = parseTLSPolicy("none")
	require.NoError(t, err)
	assert.Equal(t, mail.NoTLS, p)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Host: "smtp.example.com", Username: "ops@example.com", Password: "secret", Port: 587})
	require.NoError(t, err)

	msg, err := s.buildMessage(&mailer.Email{
		To:      []string{"master@vessel.example"},
		Subject: "Arrival notice",
		Text:    "line one\nline two",
		HTML:    "line one<br>line two",
		Attachments: []mailer.Attachment{
			{Filename: "crew.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
			{Filename: "notes.txt", Content: []byte("hello")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"<ops@example.com>"}, msg.GetFromString())
	assert.Equal(t, []string{"<master@vessel.example>"}, msg.GetToString())
	assert.Len(t, msg.GetAttachments(), 2)
	assert.NotEmpty(t, msg.GetMessageID())
}

func TestBuildMessage_InvalidRecipient(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Host: "smtp.example.com", Username: "ops@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = s.buildMessage(&mailer.Email{To: []string{"not an address"}, Subject: "x"})
	require.Error(t, err)
}
