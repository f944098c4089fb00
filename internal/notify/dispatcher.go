package notify

import (
	"context"
	"log/slog"
	"time"
)

const dispatchTimeout = 15 * time.Second

// Dispatcher fans events out to the email and broadcast sinks. Every method
// is fire-and-forget: failures are logged and never reach the caller that
// triggered the event.
type Dispatcher struct {
	logger    *slog.Logger
	mailer    EmailSender
	broadcast Broadcaster
}

// NewDispatcher wires the sinks.
func NewDispatcher(logger *slog.Logger, mailer EmailSender, broadcast Broadcaster) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, mailer: mailer, broadcast: broadcast}
}

// SendEmail delivers msg to the recipient asynchronously. The originating
// request context is not reused: the send must survive the response.
func (d *Dispatcher) SendEmail(to string, msg Message) {
	if d.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.mailer.Send(ctx, to, msg.Subject, msg.Body); err != nil {
			d.logger.Warn("email dispatch failed",
				slog.String("to", to),
				slog.String("subject", msg.Subject),
				slog.Any("error", err),
			)
			return
		}
		d.logger.Info("email sent", slog.String("to", to), slog.String("subject", msg.Subject))
	}()
}

// SendEmailSync delivers msg and returns the result, for batch jobs that
// want to log per-recipient outcomes in order.
func (d *Dispatcher) SendEmailSync(ctx context.Context, to string, msg Message) error {
	if d.mailer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	return d.mailer.Send(ctx, to, msg.Subject, msg.Body)
}

// Publish broadcasts an event to a room, logging failures.
func (d *Dispatcher) Publish(ctx context.Context, room, event string, payload any) {
	if d.broadcast == nil {
		return
	}
	if err := d.broadcast.Broadcast(ctx, room, event, payload); err != nil {
		d.logger.Warn("broadcast failed", slog.String("event", event), slog.Any("error", err))
	}
}
