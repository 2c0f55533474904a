// Package notify sends outbound user notifications about import results.
// Delivery failures are the caller's to log and swallow: a missing
// confirmation email must never fail the pipeline run that produced it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const sendTimeout = 15 * time.Second

// Mailer sends notification email over SMTP with PLAIN auth and STARTTLS.
type Mailer struct {
	addr     string
	username string
	password string
	from     string
}

// NewMailer creates a Mailer. addr is host:port of the submission endpoint.
func NewMailer(addr, username, password, from string) *Mailer {
	return &Mailer{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
	}
}

// SendImportConfirmation tells a user how many receipts an email produced.
func (m *Mailer) SendImportConfirmation(ctx context.Context, email, username string, count int) error {
	noun := "receipts"
	if count == 1 {
		noun = "receipt"
	}
	subject := fmt.Sprintf("%d %s imported", count, noun)
	body := fmt.Sprintf(
		"Hi %s,\n\nWe processed your email and added %d %s to your account.\n\nYou can review them any time in your receipt list.\n",
		username, count, noun,
	)
	return m.send(ctx, email, subject, body)
}

// SendImportFailure tells a user why an email produced no receipts, with
// guidance on what to send instead.
func (m *Mailer) SendImportFailure(ctx context.Context, email, username, title, message string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n%s\n\nTip: forward the original email with the receipt attached as a photo or PDF, or make sure the receipt details are in the email text itself.\n",
		username, message,
	)
	return m.send(ctx, email, title, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := strings.NewReader(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, to, subject, body,
	))

	auth := sasl.NewPlainClient("", m.username, m.password)

	// smtp.SendMail blocks without a context; bound it ourselves.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, auth, m.from, []string{to}, msg)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sending notification: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		return nil
	}
}

// LogOnly is a Notifier for deployments without an SMTP endpoint: it logs
// what would have been sent and reports success.
type LogOnly struct{}

// SendImportConfirmation logs the confirmation instead of sending it.
func (LogOnly) SendImportConfirmation(ctx context.Context, email, username string, count int) error {
	slog.Info("notification (log only): import confirmation", "email", email, "count", count)
	return nil
}

// SendImportFailure logs the failure notice instead of sending it.
func (LogOnly) SendImportFailure(ctx context.Context, email, username, title, message string) error {
	slog.Info("notification (log only): import failure", "email", email, "title", title, "message", message)
	return nil
}
