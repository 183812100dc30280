package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/observability"
)

var ErrDelivery = errors.New("mail delivery failed")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the transport named by cfg.Driver wrapped in a circuit breaker.
func New(cfg config.MailConfig, log *slog.Logger, prom *observability.Prom) (Mailer, error) {
	var inner Mailer

	switch cfg.Driver {
	case "smtp":
		inner = NewSMTPMailer(cfg)
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend mailer: missing api key")
		}
		inner = NewResendMailer(cfg.ResendAPIKey, cfg.From)
	case "log", "":
		inner = NewLogMailer(log)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}

	return NewProtectedMailer(inner, ProtectedMailerConfig{
		Driver: cfg.Driver,
		Prom:   prom,
	}), nil
}
