package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
)

// Mailer sends HTML mail over SMTP
type Mailer struct {
	cfg config.SMTPConfig
}

// NewMailer creates an SMTP mailer
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendMail sends one HTML mail to the given recipients
func (m *Mailer) SendMail(recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return nil
	}

	sender := m.cfg.Sender
	if sender == "" {
		sender = "no-reply@localhost"
	}

	from := sender
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, sender)
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, strings.Join(recipients, ", "), subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, sender, recipients, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	log.Debug().
		Int("recipients", len(recipients)).
		Str("subject", subject).
		Msg("Mail sent")

	return nil
}
