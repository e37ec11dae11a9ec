package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/portmail/portmail/pkg/mailer"
)

// Sender implements mailer.Sender over an authenticated SMTP relay.
type Sender struct {
	config Config
	policy mail.TLSPolicy
}

// New validates cfg and returns an SMTP sender.
// Missing host or credentials are reported here rather than on the first send.
func New(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrMissingHost
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}

	policy, err := parseTLSPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}

	return &Sender{config: cfg, policy: policy}, nil
}

// Send implements mailer.Sender.
// A client is dialed per call; the sweep sends sequentially so connections are not pooled.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) (string, error) {
	if s == nil || s.config.Username == "" {
		return "", ErrMissingCredentials
	}

	msg, err := s.buildMessage(email)
	if err != nil {
		return "", errors.Join(ErrBuildMessage, err)
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return "", errors.Join(ErrDial, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp: %w", err)
	}

	return msg.GetMessageID(), nil
}

func (s *Sender) buildMessage(email *mailer.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()

	from := email.From
	if from == "" {
		from = s.config.Username
	}
	if err := msg.From(from); err != nil {
		return nil, err
	}
	if err := msg.To(email.To...); err != nil {
		return nil, err
	}
	if email.ReplyTo != "" {
		if err := msg.ReplyTo(email.ReplyTo); err != nil {
			return nil, err
		}
	}
	for k, v := range email.Headers {
		msg.SetGenHeader(mail.Header(k), v)
	}

	msg.Subject(email.Subject)
	msg.SetMessageID()
	msg.SetDate()

	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}

	for _, a := range email.Attachments {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("attach %q: %w", a.Filename, err)
		}
	}

	return msg, nil
}

func (s *Sender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithTLSPolicy(s.policy),
	}
	if s.config.SSL {
		opts = append(opts, mail.WithSSL())
	}
	if s.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.config.Timeout))
	}
	return opts
}

func parseTLSPolicy(v string) (mail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("%w: %q", ErrInvalidTLSPolicy, v)
	}
}

var _ mailer.Sender = (*Sender)(nil)
