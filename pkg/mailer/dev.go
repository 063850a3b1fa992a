package mailer

import (
	"context"
	"io"
	"log/slog"
)

// DevSender implements Sender for local development.
// It logs the message instead of sending it, so OTP codes can be read from
// the server output without a Postmark account.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a development sender writing to the given logger.
// A nil logger discards everything, which is useful in tests.
func NewDevSender(log *slog.Logger) *DevSender {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DevSender{log: log}
}

// SendEmail logs the message at INFO level.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "outbound email (dev sender)",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
		slog.String("body_html", params.BodyHTML),
	)
	return nil
}
