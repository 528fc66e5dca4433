package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	sheetsmem "finanzas/internal/sheets/memory"
	"finanzas/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingLedger struct{}

func (failingLedger) AppendRow(context.Context, sheets.LedgerRow) (string, error) {
	return "", errors.New("quota exceeded")
}

type failingNotifier struct{}

func (failingNotifier) HandleEvent(context.Context, *amqp.Event) error {
	return errors.New("database is locked")
}

// sliceConsumer hands each event to the handler, then returns.
type sliceConsumer struct {
	events []*amqp.Event
	errs   []error
}

func (c *sliceConsumer) Consume(ctx context.Context, handler func(context.Context, *amqp.Event) error) error {
	for _, ev := range c.events {
		c.errs = append(c.errs, handler(ctx, ev))
	}
	return nil
}

var workerNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func materialized() *amqp.Event {
	recID := int64(7)
	return amqp.NewTransactionEvent(amqp.EventTransactionMaterialized, core.Transaction{
		ID:           11,
		OwnerID:      "user-1",
		Type:         core.Expense,
		Amount:       core.Money{Cents: 4500},
		Description:  "Luz (Auto)",
		Date:         workerNow,
		RecurrenceID: &recID,
	})
}

func TestEventWorker_Run(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := sheetsmem.New()
	w := NewEventWorker(services.NewNotificationService(store, fixedClock{workerNow}), ledger)

	manual := amqp.NewTransactionEvent(amqp.EventTransactionCreated, core.Transaction{
		ID: 12, OwnerID: "user-1", Type: core.Income, Amount: core.Money{Cents: 200000},
		Description: "Sueldo", Date: workerNow,
	})
	deactivated := amqp.NewRecurrenceDeactivatedEvent(core.Recurrence{
		ID: 7, OwnerID: "user-1", Description: "Luz", Frequency: core.Monthly,
		NextExecution: core.NewDate(2024, 4, 15),
	})

	consumer := &sliceConsumer{events: []*amqp.Event{materialized(), manual, deactivated}}
	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Errorf("event %d: handler error = %v", i, err)
		}
	}

	rows := ledger.Rows()
	if len(rows) != 2 {
		t.Fatalf("mirrored %d rows, want 2", len(rows))
	}
	if rows[0].Source != sheets.SourceRecurring || rows[1].Source != sheets.SourceManual {
		t.Errorf("sources = %q, %q", rows[0].Source, rows[1].Source)
	}
	if !rows[0].Date.Equal(workerNow) {
		t.Errorf("row date = %v, want %v", rows[0].Date, workerNow)
	}

	ns, err := store.ListNotifications(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(ns) != 2 {
		t.Errorf("stored %d notifications, want 2 (manual transactions raise none)", len(ns))
	}

	if s := w.Stats(); s.Processed != 3 || s.RowsMirrored != 2 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestEventWorker_HandleEventFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		notifier   Notifier
		ledger     sheets.LedgerWriter
		event      *amqp.Event
		wantErr    bool
		wantMirror int64
	}{
		{
			name:     "sheet failure is not fatal",
			notifier: services.NewNotificationService(memory.New(), fixedClock{workerNow}),
			ledger:   failingLedger{},
			event:    materialized(),
			wantErr:  false,
		},
		{
			name:       "notification failure requeues",
			notifier:   failingNotifier{},
			ledger:     sheetsmem.New(),
			event:      materialized(),
			wantErr:    true,
			wantMirror: 1,
		},
		{
			name:     "bad payload date",
			notifier: nil,
			ledger:   sheetsmem.New(),
			event: func() *amqp.Event {
				ev := materialized()
				ev.Transaction.Date = "yesterday"
				return ev
			}(),
			wantErr: false,
		},
		{
			name:    "no sinks",
			event:   materialized(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewEventWorker(tt.notifier, tt.ledger)
			err := w.HandleEvent(ctx, tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := w.Stats().RowsMirrored; got != tt.wantMirror {
				t.Errorf("RowsMirrored = %d, want %d", got, tt.wantMirror)
			}
		})
	}
}
