package mail

import (
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/amo-platform/amo-server/internal/config"
)

// Sender delivers mail. The verification flow depends on it only for
// delivery, never for code generation or validation.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender from configuration
func NewSMTPSender(cfg *config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send sends an HTML mail
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}

// NopSender discards mail. Used when SMTP is not configured so local
// setups can still exercise the signup flow.
type NopSender struct{}

// Send logs the discarded mail at debug level
func (NopSender) Send(to, subject, _ string) error {
	log.Debug().Str("to", to).Str("subject", subject).Msg("Mail delivery not configured, dropping message")
	return nil
}
