package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/config"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendFunc is the function used to talk SMTP. Override in tests.
var SendFunc = smtp.SendMail

// Module wires the mailer into the Fx graph.
var Module = fx.Options(
	fx.Provide(NewMailer),
	fx.Provide(NewLowStock),
)

// NewMailer builds the configured mailer (smtp or noop).
func NewMailer(cfg config.Config, logger *zap.Logger) Mailer {
	if !cfg.Notifier.Enabled {
		if logger != nil {
			logger.Info("notifier disabled; using noop mailer")
		}
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg.Notifier}
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, string) error { return nil }

type smtpMailer struct {
	cfg config.Notifier
}

func (m *smtpMailer) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.FromAddress,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	return SendFunc(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg))
}
