package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
	// SkipVerify disables certificate checks for local relays.
	SkipVerify bool
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// SMTPMailer delivers one message per connection through gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.SkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local relays only
	}
	return &SMTPMailer{dialer: d, sender: cfg.Sender}
}

func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(buildMessage(m.sender, msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(sender string, msg ports.MailMessage) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", sender)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)
	return gm
}

var _ ports.Mailer = LogMailer{}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct {
	Log zerolog.Logger
}

func (l LogMailer) Send(_ context.Context, msg ports.MailMessage) error {
	l.Log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.HTMLBody).
		Msg("mail delivery disabled, message logged")
	return nil
}
