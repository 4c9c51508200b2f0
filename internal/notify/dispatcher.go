// Package notify renders the transactional emails and hands them to the mail
// transport under the right sender identity.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/farellandr/sahmticket/internal/mailer"
	"github.com/farellandr/sahmticket/internal/metrics"
)

var (
	ErrUnknownKind    = errors.New("unknown notification kind")
	ErrInvalidPayload = errors.New("invalid notification payload")
	ErrRender         = errors.New("failed to render notification")
	ErrTransport      = errors.New("failed to deliver notification")
)

// IsClientError reports whether err was caused by the request rather than by
// the mail server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownKind) || errors.Is(err, ErrInvalidPayload)
}

type Dispatcher struct {
	transport mailer.Transport
	logger    *slog.Logger
}

func NewDispatcher(transport mailer.Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, logger: logger}
}

// Send validates and renders the message before contacting the transport, so an
// unknown kind or bad payload never produces a partial send.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, to string, payload any) error {
	sender, ok := kind.Sender()
	if !ok {
		metrics.Notifications.WithLabelValues("unknown", "rejected").Inc()
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if _, err := mail.ParseAddress(to); err != nil {
		metrics.Notifications.WithLabelValues(string(kind), "rejected").Inc()
		return fmt.Errorf("%w: recipient %q", ErrInvalidPayload, to)
	}

	rendered, err := Render(kind, payload)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(kind), "rejected").Inc()
		return err
	}

	err = d.transport.Send(ctx, mailer.Message{
		Account: sender,
		To:      to,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
	})
	if err != nil {
		metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		d.logger.Error("notification delivery failed", "kind", kind, "to", to, "error", err)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	metrics.Notifications.WithLabelValues(string(kind), "sent").Inc()
	return nil
}
