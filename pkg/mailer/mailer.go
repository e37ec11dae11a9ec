package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sender is a delivery provider. It receives a complete Email and returns
// the provider's message id.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}

// Mailer turns plain-text messages into provider emails and sends them.
type Mailer struct {
	sender Sender
	config Config
}

// New creates a new Mailer with the given sender.
// It fails fast when the sender is nil or no from address is configured.
func New(sender Sender, cfg Config) (*Mailer, error) {
	if sender == nil {
		return nil, errors.Join(ErrNotConfigured, errors.New("mailer: sender is required"))
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.Join(ErrNotConfigured, ErrNoSender)
	}
	return &Mailer{sender: sender, config: cfg}, nil
}

// Send delivers msg to its single recipient.
// The HTML alternative is derived from the text body with TextToHTML.
func (m *Mailer) Send(ctx context.Context, msg Message) (Result, error) {
	if m == nil || m.sender == nil {
		return Result{}, ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return Result{}, ErrNoRecipient
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return Result{}, ErrNoSubject
	}

	email := &Email{
		From:        m.config.FromAddress(),
		ReplyTo:     m.config.ReplyTo,
		To:          []string{msg.To},
		Subject:     msg.Subject,
		Text:        msg.Text,
		HTML:        TextToHTML(msg.Text),
		Attachments: msg.Attachments,
	}

	id, err := m.sender.Send(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	return Result{MessageID: id}, nil
}
