// Package mailer sends plain-text email with attachments through a pluggable provider.
//
// A Sender delivers a fully-prepared Email. The smtp sub-package talks to an
// authenticated SMTP relay; the resend sub-package uses the Resend HTTP API.
// Mailer sits on top, validates the message, fills in the configured from
// address and derives the HTML alternative from the text body.
//
//	sender, err := smtp.New(cfg.SMTP)
//	if err != nil {
//		return err // missing credentials
//	}
//	m, err := mailer.New(sender, cfg.Mail)
//	if err != nil {
//		return err
//	}
//	res, err := m.Send(ctx, mailer.Message{
//		To:      "master@vessel.example",
//		Subject: "Arrival notice",
//		Text:    "Dear Master,\nPlease find attached.",
//	})
package mailer
