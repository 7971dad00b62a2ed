// Package mail sends transactional email. Delivery failures are reported to
// callers but are expected to be logged and swallowed: email is a side
// effect, never part of a request's success criteria.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cashtrackr/api/pkg/observability"
)

// Email is one outgoing message. Body is HTML.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer configures delivery through host:port. Username may be empty
// for unauthenticated relays.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		from: from,
		auth: auth,
	}
}

// Send delivers the message. net/smtp has no context support; the context is
// accepted for interface symmetry and checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.from, email)
	if err := smtp.SendMail(m.addr, m.auth, envelopeFrom(m.from), []string{email.To}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return nil
}

// LogMailer writes mail to the log instead of delivering it. Used when no
// SMTP host is configured (local development, tests).
type LogMailer struct {
	logger *observability.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *observability.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.WithFields(map[string]interface{}{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("email (not sent, no SMTP configured)")
	return nil
}

func buildMessage(from string, email Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.Body)
	return []byte(b.String())
}

// envelopeFrom extracts the bare address from a "Name <addr>" header value.
func envelopeFrom(from string) string {
	if start := strings.Index(from, "<"); start >= 0 {
		if end := strings.Index(from[start:], ">"); end > 0 {
			return from[start+1 : start+end]
		}
	}
	return from
}
