package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/sheets"
)

// Notifier stores the notification an event raises.
type Notifier interface {
	HandleEvent(ctx context.Context, ev *amqp.Event) error
}

// Consumer delivers events until ctx is done. *amqp.Client satisfies it.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

type Stats struct {
	Processed    int64
	Failed       int64
	RowsMirrored int64
	MirrorErrors int64
}

// EventWorker reacts to domain events: it raises notifications and mirrors
// new transactions to the spreadsheet ledger when one is configured.
type EventWorker struct {
	notifier Notifier
	ledger   sheets.LedgerWriter

	processed    atomic.Int64
	failed       atomic.Int64
	rowsMirrored atomic.Int64
	mirrorErrors atomic.Int64
}

// NewEventWorker builds a worker. ledger may be nil.
func NewEventWorker(notifier Notifier, ledger sheets.LedgerWriter) *EventWorker {
	return &EventWorker{notifier: notifier, ledger: ledger}
}

// Run consumes events until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context, c Consumer) error {
	slog.InfoContext(ctx, "Event worker started", "sheets_enabled", w.ledger != nil)
	err := c.Consume(ctx, w.HandleEvent)
	s := w.Stats()
	slog.InfoContext(ctx, "Event worker stopped",
		"processed", s.Processed,
		"failed", s.Failed,
		"rows_mirrored", s.RowsMirrored,
		"mirror_errors", s.MirrorErrors)
	return err
}

// HandleEvent processes one event. A notification that cannot be stored
// fails the event so the broker redelivers it; a failed sheet mirror is
// only logged, since redelivery would duplicate the notification.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	slog.InfoContext(ctx, "Processing event",
		"type", ev.Type,
		"owner_id", ev.OwnerID,
		"timestamp", ev.Timestamp)

	w.mirror(ctx, ev)

	if w.notifier != nil {
		if err := w.notifier.HandleEvent(ctx, ev); err != nil {
			w.failed.Add(1)
			return fmt.Errorf("handle %s event: %w", ev.Type, err)
		}
	}
	w.processed.Add(1)
	return nil
}

func (w *EventWorker) mirror(ctx context.Context, ev *amqp.Event) {
	if w.ledger == nil || ev.Transaction == nil {
		return
	}
	if ev.Type != amqp.EventTransactionCreated && ev.Type != amqp.EventTransactionMaterialized {
		return
	}

	row, err := rowFromEvent(ev)
	if err != nil {
		w.mirrorErrors.Add(1)
		slog.ErrorContext(ctx, "Invalid transaction payload", "transaction_id", ev.Transaction.ID, "error", err)
		return
	}

	start := time.Now()
	ref, err := w.ledger.AppendRow(ctx, row)
	if err != nil {
		w.mirrorErrors.Add(1)
		slog.ErrorContext(ctx, "Failed to mirror transaction to sheet",
			"transaction_id", row.TransactionID,
			"error", err)
		return
	}
	w.rowsMirrored.Add(1)
	slog.InfoContext(ctx, "Mirrored transaction to sheet",
		"transaction_id", row.TransactionID,
		"sheets_ref", ref,
		"duration_ms", time.Since(start).Milliseconds())
}

// rowFromEvent rebuilds the ledger row from the event payload alone.
func rowFromEvent(ev *amqp.Event) (sheets.LedgerRow, error) {
	p := ev.Transaction
	date, err := time.Parse(time.RFC3339, p.Date)
	if err != nil {
		return sheets.LedgerRow{}, fmt.Errorf("parse date %q: %w", p.Date, err)
	}
	typ, err := core.ParseTransactionType(p.Type)
	if err != nil {
		return sheets.LedgerRow{}, err
	}
	return sheets.RowFromTransaction(core.Transaction{
		ID:           p.ID,
		OwnerID:      ev.OwnerID,
		Type:         typ,
		Amount:       core.Money{Cents: p.AmountCents},
		Description:  p.Description,
		Date:         date,
		RecurrenceID: p.RecurrenceID,
		CategoryID:   p.CategoryID,
	}), nil
}

func (w *EventWorker) Stats() Stats {
	return Stats{
		Processed:    w.processed.Load(),
		Failed:       w.failed.Load(),
		RowsMirrored: w.rowsMirrored.Load(),
		MirrorErrors: w.mirrorErrors.Load(),
	}
}
