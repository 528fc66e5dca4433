package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// NotificationService stores in-app notifications derived from domain events.
type NotificationService struct {
	store storage.NotificationStore
	clock Clock
}

func NewNotificationService(store storage.NotificationStore, clock Clock) *NotificationService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &NotificationService{store: store, clock: clock}
}

func (s *NotificationService) List(ctx context.Context, ownerID string, unreadOnly bool) ([]core.Notification, error) {
	ns, err := s.store.ListNotifications(ctx, ownerID, unreadOnly)
	if err != nil {
		return nil, classify("list notifications", err)
	}
	return ns, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, ownerID string, id int64) error {
	if err := s.store.MarkNotificationRead(ctx, ownerID, id); err != nil {
		return classify("mark notification read", err)
	}
	return nil
}

// HandleEvent stores the notification for ev, if it has one.
func (s *NotificationService) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	n, ok := FromEvent(ev)
	if !ok {
		return nil
	}
	n.CreatedAt = s.clock.Now()
	saved, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("store notification for %s: %w", ev.Type, err)
	}
	slog.DebugContext(ctx, "Stored notification",
		"notification_id", saved.ID,
		"owner_id", saved.OwnerID,
		"kind", saved.Kind)
	return nil
}

// FromEvent builds the notification an event should raise. Manually created
// transactions raise none.
func FromEvent(ev *amqp.Event) (core.Notification, bool) {
	n := core.Notification{OwnerID: ev.OwnerID}
	switch ev.Type {
	case amqp.EventTransactionMaterialized:
		t := ev.Transaction
		n.Kind = core.NotifyRecurrenceExecuted
		n.Title = "Transacción recurrente creada"
		n.Message = fmt.Sprintf("%s: %s", t.Description, core.Money{Cents: t.AmountCents})
	case amqp.EventRecurrenceDeactivated:
		r := ev.Recurrence
		n.Kind = core.NotifyRecurrenceDeactivated
		n.Title = "Recurrencia finalizada"
		n.Message = fmt.Sprintf("%q llegó a su fecha de fin y fue desactivada", r.Description)
	case amqp.EventCardPaymentApplied:
		p := ev.Payment
		n.Kind = core.NotifyCardPayment
		n.Title = "Pago de tarjeta registrado"
		n.Message = fmt.Sprintf("%s: pago %s de %s, saldo %s",
			p.CardName, p.PaymentType, core.Money{Cents: p.AmountCents}, core.Money{Cents: p.NewBalanceCents})
	default:
		return core.Notification{}, false
	}
	return n, true
}

// RemindDuePayments raises a payment_due notification for every urgent or
// overdue card payment and returns how many it stored. Each card is reminded
// at most once per due date, however often this runs.
func (s *NotificationService) RemindDuePayments(ctx context.Context, ownerID string, payments []UpcomingPayment) (int, error) {
	stored := 0
	for _, p := range payments {
		if !p.IsUrgent && !p.IsOverdue {
			continue
		}
		msg := fmt.Sprintf("%s vence el %s (%d días), saldo %s", p.CardName, p.DueDate, p.DaysUntilDue, p.Balance)
		if p.IsOverdue {
			msg = fmt.Sprintf("%s venció el %s, saldo %s", p.CardName, p.DueDate, p.Balance)
		}
		_, err := s.store.CreateNotification(ctx, core.Notification{
			OwnerID:   ownerID,
			Kind:      core.NotifyPaymentDue,
			Title:     "Pago de tarjeta próximo",
			Message:   msg,
			CreatedAt: s.clock.Now(),
			DedupKey:  paymentDueKey(p),
		})
		if errors.Is(err, core.ErrConflict) {
			continue
		}
		if err != nil {
			return stored, classify("store payment reminder", err)
		}
		stored++
	}
	return stored, nil
}

func paymentDueKey(p UpcomingPayment) string {
	return fmt.Sprintf("%s:%d:%s", core.NotifyPaymentDue, p.CardID, p.DueDate)
}
