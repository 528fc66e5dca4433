package services

import (
	"context"
	"strings"
	"testing"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

func TestFromEvent(t *testing.T) {
	recID := int64(7)
	tx := core.Transaction{
		OwnerID: testOwner, Type: core.Expense, Amount: core.Money{Cents: 4599},
		Description: "Internet (Auto)", Date: processorNow, RecurrenceID: &recID,
	}

	tests := []struct {
		name     string
		ev       *amqp.Event
		wantKind core.NotificationKind
		wantText string
		wantNone bool
	}{
		{
			name:     "materialized transaction",
			ev:       amqp.NewTransactionEvent(amqp.EventTransactionMaterialized, tx),
			wantKind: core.NotifyRecurrenceExecuted,
			wantText: "45.99",
		},
		{
			name: "deactivated recurrence",
			ev: amqp.NewRecurrenceDeactivatedEvent(core.Recurrence{
				ID: recID, OwnerID: testOwner, Description: "Gimnasio", Frequency: core.Monthly,
			}),
			wantKind: core.NotifyRecurrenceDeactivated,
			wantText: "Gimnasio",
		},
		{
			name: "card payment",
			ev: amqp.NewCardPaymentEvent(
				core.CreditCard{ID: 1, OwnerID: testOwner, Name: "Visa", CurrentBalance: core.Money{Cents: 500}},
				core.CreditCardPayment{Amount: core.Money{Cents: 1000}, PaymentType: core.PaymentPartial},
			),
			wantKind: core.NotifyCardPayment,
			wantText: "saldo 5.00",
		},
		{
			name:     "manual transaction raises nothing",
			ev:       amqp.NewTransactionEvent(amqp.EventTransactionCreated, tx),
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := FromEvent(tt.ev)
			if tt.wantNone {
				if ok {
					t.Errorf("FromEvent() = %+v, want none", n)
				}
				return
			}
			if !ok {
				t.Fatal("FromEvent() returned no notification")
			}
			if n.Kind != tt.wantKind || n.OwnerID != testOwner {
				t.Errorf("FromEvent() = %+v", n)
			}
			if !strings.Contains(n.Message, tt.wantText) {
				t.Errorf("Message = %q, want it to contain %q", n.Message, tt.wantText)
			}
		})
	}
}

func TestNotificationService_HandleListMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(memory.New(), fixedClock{now: processorNow})

	ev := amqp.NewRecurrenceDeactivatedEvent(core.Recurrence{ID: 1, OwnerID: testOwner, Description: "Netflix"})
	if err := svc.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if err := svc.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventTransactionCreated, core.Transaction{OwnerID: testOwner})); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	unread, err := svc.List(ctx, testOwner, true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread = %d, want 1", len(unread))
	}

	if err := svc.MarkRead(ctx, testOwner, unread[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	unread, _ = svc.List(ctx, testOwner, true)
	all, _ := svc.List(ctx, testOwner, false)
	if len(unread) != 0 || len(all) != 1 {
		t.Errorf("unread=%d all=%d, want 0 and 1", len(unread), len(all))
	}

	assertKind(t, svc.MarkRead(ctx, "someone-else", all[0].ID), core.ErrNotFound)
}

func TestNotificationService_RemindDuePayments(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewNotificationService(store, fixedClock{now: processorNow})

	payments := []UpcomingPayment{
		{CardID: 1, CardName: "Visa", DaysUntilDue: 2, IsUrgent: true, DueDate: core.NewDate(2024, 3, 17)},
		{CardID: 2, CardName: "Master", DaysUntilDue: 20, DueDate: core.NewDate(2024, 4, 4)},
		{CardID: 3, CardName: "Amex", DaysUntilDue: -1, IsOverdue: true, DueDate: core.NewDate(2024, 3, 14)},
	}
	n, err := svc.RemindDuePayments(ctx, testOwner, payments)
	if err != nil {
		t.Fatalf("RemindDuePayments() error = %v", err)
	}
	if n != 2 {
		t.Errorf("stored = %d, want 2", n)
	}
	ns, _ := svc.List(ctx, testOwner, false)
	for _, x := range ns {
		if x.Kind != core.NotifyPaymentDue {
			t.Errorf("Kind = %s, want payment_due", x.Kind)
		}
	}

	// a second run on the same day must not repeat reminders
	n, err = svc.RemindDuePayments(ctx, testOwner, payments)
	if err != nil {
		t.Fatalf("RemindDuePayments() second run error = %v", err)
	}
	if n != 0 {
		t.Errorf("second run stored = %d, want 0", n)
	}
	if ns, _ := svc.List(ctx, testOwner, false); len(ns) != 2 {
		t.Errorf("notifications after second run = %d, want 2", len(ns))
	}

	// a new due date for the same card is a new reminder
	next := payments[0]
	next.DueDate = core.NewDate(2024, 4, 17)
	if n, _ := svc.RemindDuePayments(ctx, testOwner, []UpcomingPayment{next}); n != 1 {
		t.Errorf("next due date stored = %d, want 1", n)
	}
}
