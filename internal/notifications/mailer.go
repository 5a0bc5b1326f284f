package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Sender delivers one notification to a set of recipients. Implementations
// must be safe for concurrent use by multiple workers.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender delivers notifications as plain-text email.
type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, strings.Join(to, ", "), subject, body)

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender writes notifications to the log instead of delivering them.
// Used when no SMTP host is configured.
type LogSender struct {
	Log zerolog.Logger
}

func (s *LogSender) Send(ctx context.Context, to []string, subject, body string) error {
	s.Log.Info().
		Strs("to", to).
		Str("subject", subject).
		Msg("notification delivered to log")
	return nil
}
