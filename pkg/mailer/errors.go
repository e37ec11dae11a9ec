package mailer

import "errors"

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("mailer: email must have at least one recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("mailer: email must have a subject")

	// ErrNoSender indicates no from address is configured.
	ErrNoSender = errors.New("mailer: sender address is not configured")

	// ErrNotConfigured indicates the mailer or its provider is missing required settings.
	ErrNotConfigured = errors.New("mailer: not configured")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("mailer: failed to send email")
)
