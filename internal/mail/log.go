package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	l.log.InfoContext(ctx, "mail.logged",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
