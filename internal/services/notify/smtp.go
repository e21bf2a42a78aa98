package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// SMTPTransport delivers notifications as plain-text email.
type SMTPTransport struct {
	cfg    models.SMTPConfig
	logger zerolog.Logger
}

// NewSMTPTransport creates an email transport.
func NewSMTPTransport(logger zerolog.Logger, cfg models.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, logger: logger}
}

// Send delivers one email to all configured recipients.
func (t *SMTPTransport) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(t.cfg.SenderName, t.cfg.SenderEmail); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(t.cfg.Recipients...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}

	// Port 465 is implicit TLS, port 26 is a legacy plaintext relay,
	// everything else negotiates STARTTLS.
	switch t.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 26:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}

	client, err := mail.NewClient(t.cfg.Server, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}

	t.logger.Debug().
		Str("server", t.cfg.Server).
		Int("port", t.cfg.Port).
		Int("recipients", len(t.cfg.Recipients)).
		Msg("sending email")

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
