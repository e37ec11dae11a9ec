package resend

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/portmail/portmail/pkg/mailer"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("resend: RESEND_API_KEY is required")

// Config is the Resend section of the app configuration.
type Config struct {
	APIKey string `env:"RESEND_API_KEY"`
}

// Sender delivers through the Resend HTTP API.
type Sender struct {
	client *resend.Client
}

func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Sender{client: resend.NewClient(cfg.APIKey)}, nil
}

// Send returns the Resend email id as the message id.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrMissingAPIKey
	}

	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Headers: email.Headers,
	}

	if len(email.Attachments) > 0 {
		req.Attachments = convertAttachments(email.Attachments)
	}

	resp, err := s.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}

	return resp.Id, nil
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}
	}
	return result
}

var _ mailer.Sender = (*Sender)(nil)
