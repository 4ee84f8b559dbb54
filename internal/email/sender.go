package email

import (
	"context"
	"errors"

	"planfusion/internal/config"
)

// Message es un correo saliente; HTML indica el content type del cuerpo.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Sender define la interfaz para envio de correos.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Message) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

// FromConfig devuelve el sender SMTP si hay host configurado; si no, uno deshabilitado.
func FromConfig(cfg *config.Config) (Sender, error) {
	if cfg.SMTPHost == "" {
		return NewDisabledSender("email sender not configured"), nil
	}
	sender, err := NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		return NewDisabledSender("email sender misconfigured"), err
	}
	return sender, nil
}
