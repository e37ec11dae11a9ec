package mailer

import (
	"fmt"
	"strings"
)

// Address formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Address(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email represents a fully-prepared email message ready for a provider.
type Email struct {
	Headers     map[string]string // Custom headers
	Subject     string            // Email subject
	HTML        string            // HTML alternative
	Text        string            // Plain text body
	From        string            // Sender address
	ReplyTo     string            // Reply-to address
	To          []string          // Recipients (at least one required)
	Attachments []Attachment      // File attachments
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf"); may be empty
	Content     []byte // Raw file content
}

// Message is a plain-text email addressed to a single recipient.
type Message struct {
	To          string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Result reports a successful delivery.
type Result struct {
	MessageID string
}

// TextToHTML renders a plain-text body as HTML by turning each line feed into a <br> tag.
// Nothing else is escaped or rewritten.
func TextToHTML(text string) string {
	return strings.ReplaceAll(text, "\n", "<br>")
}
