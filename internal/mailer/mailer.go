// Package mailer sends account emails over SMTP. Without a configured SMTP
// host it logs and drops messages, so development setups need no mail server.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"text/template"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/mrlokans/shelf/internal/config"
)

const welcomeSubject = "Welcome to Shelf"

var welcomeBody = template.Must(template.New("welcome").Parse(`Hi {{.Username}},

Thanks for signing up. Your account is ready: log in with your username
"{{.Username}}" to get an API token.

The Shelf team
`))

type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// New creates a Mailer for cfg. The returned Mailer is a no-op when
// cfg.Enabled() is false.
func New(cfg config.Mail) *Mailer {
	m := &Mailer{sender: cfg.Sender}
	if cfg.Enabled() {
		m.dialer = mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		m.dialer.Timeout = 10 * time.Second
	}
	return m
}

// Enabled reports whether messages are actually delivered.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(ctx context.Context, to, username string) error {
	msg, err := m.welcomeMessage(to, username)
	if err != nil {
		return err
	}
	return m.send(ctx, msg, to)
}

func (m *Mailer) welcomeMessage(to, username string) (*mail.Message, error) {
	var body bytes.Buffer
	if err := welcomeBody.Execute(&body, struct{ Username string }{username}); err != nil {
		return nil, fmt.Errorf("failed to render welcome email: %w", err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", welcomeSubject)
	msg.SetBody("text/plain", body.String())
	return msg, nil
}

func (m *Mailer) send(ctx context.Context, msg *mail.Message, to string) error {
	if m.dialer == nil {
		log.Printf("Mail disabled, dropping message to %s", to)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
