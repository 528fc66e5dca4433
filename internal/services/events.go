package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
)

// Publisher sends domain events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.Event) error
}

// Clock is the time source of the services.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Today is the current calendar date in UTC. Every "today" the services and
// the API compare against comes from here.
func Today(c Clock) core.Date {
	return core.DateOf(c.Now().UTC())
}

// publish sends ev when a publisher is configured. Failures are logged and
// never reach the caller; the write they describe is already committed.
func publish(ctx context.Context, p Publisher, ev *amqp.Event) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "type", ev.Type)
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", ev.Type,
			"owner_id", ev.OwnerID,
			"error", err)
	}
}

// classify leaves classified errors alone and marks everything else internal.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrConflict),
		errors.Is(err, core.ErrInternal):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrInternal, err)
}
