// Package notify routes alert and lifecycle events to the email and
// realtime-broadcast sinks. Both sinks are best-effort: failures are logged
// by callers and never propagate to the operation that triggered the event.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// EmailSender delivers a rendered message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig locates the outbound mail relay (Mailpit in development).
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// Mailer sends mail over plain SMTP.
type Mailer struct {
	cfg     SMTPConfig
	timeout time.Duration
	send    func(addr, from string, to []string, msg []byte) error
}

// NewMailer constructs an SMTP mailer.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		cfg:     cfg,
		timeout: 10 * time.Second,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers the message, honouring the context deadline as an upper
// bound. A timeout is a recoverable failure for the caller to log.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var msg strings.Builder
	msg.WriteString("From: " + m.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, m.cfg.From, []string{to}, []byte(msg.String()))
	}()

	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: send mail to %s: %w", to, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("notify: send mail to %s: timeout", to)
	case <-ctx.Done():
		return fmt.Errorf("notify: send mail to %s: %w", to, ctx.Err())
	}
}
