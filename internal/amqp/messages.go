package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// Event types double as routing keys on the topic exchange.
const (
	EventTransactionCreated      = "transaction.created"
	EventTransactionMaterialized = "transaction.materialized"
	EventRecurrenceDeactivated   = "recurrence.deactivated"
	EventCardPaymentApplied      = "card.payment_applied"
)

// Event is the envelope published for every domain change. Payloads carry
// enough to build a notification or a sheet row without reading the database.
type Event struct {
	Type        string              `json:"type"`
	OwnerID     string              `json:"owner_id"`
	Timestamp   time.Time           `json:"timestamp"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Recurrence  *RecurrencePayload  `json:"recurrence,omitempty"`
	Payment     *PaymentPayload     `json:"payment,omitempty"`
}

type TransactionPayload struct {
	ID           int64    `json:"id"`
	RecurrenceID *int64   `json:"recurrence_id,omitempty"`
	Type         string   `json:"type"`
	AmountCents  int64    `json:"amount_cents"`
	Description  string   `json:"description"`
	CategoryID   *int64   `json:"category_id,omitempty"`
	Date         string   `json:"date"`
	Tags         []string `json:"tags,omitempty"`
}

type RecurrencePayload struct {
	ID            int64  `json:"id"`
	Description   string `json:"description"`
	Frequency     string `json:"frequency"`
	NextExecution string `json:"next_execution"`
}

type PaymentPayload struct {
	CardID          int64  `json:"card_id"`
	CardName        string `json:"card_name"`
	AmountCents     int64  `json:"amount_cents"`
	PaymentType     string `json:"payment_type"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}

// NewTransactionEvent wraps t as a created or materialized event.
func NewTransactionEvent(eventType string, t core.Transaction) *Event {
	return &Event{
		Type:      eventType,
		OwnerID:   t.OwnerID,
		Timestamp: time.Now(),
		Transaction: &TransactionPayload{
			ID:           t.ID,
			RecurrenceID: t.RecurrenceID,
			Type:         string(t.Type),
			AmountCents:  t.Amount.Cents,
			Description:  t.Description,
			CategoryID:   t.CategoryID,
			Date:         t.Date.Format(time.RFC3339),
			Tags:         t.Tags,
		},
	}
}

func NewRecurrenceDeactivatedEvent(r core.Recurrence) *Event {
	return &Event{
		Type:      EventRecurrenceDeactivated,
		OwnerID:   r.OwnerID,
		Timestamp: time.Now(),
		Recurrence: &RecurrencePayload{
			ID:            r.ID,
			Description:   r.Description,
			Frequency:     string(r.Frequency),
			NextExecution: r.NextExecution.String(),
		},
	}
}

func NewCardPaymentEvent(card core.CreditCard, p core.CreditCardPayment) *Event {
	return &Event{
		Type:      EventCardPaymentApplied,
		OwnerID:   card.OwnerID,
		Timestamp: time.Now(),
		Payment: &PaymentPayload{
			CardID:          card.ID,
			CardName:        card.Name,
			AmountCents:     p.Amount.Cents,
			PaymentType:     string(p.PaymentType),
			NewBalanceCents: card.CurrentBalance.Cents,
		},
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and checks it carries the payload its type needs.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventTransactionCreated, EventTransactionMaterialized:
		if ev.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction payload", ev.Type)
		}
	case EventRecurrenceDeactivated:
		if ev.Recurrence == nil {
			return nil, fmt.Errorf("%s event without recurrence payload", ev.Type)
		}
	case EventCardPaymentApplied:
		if ev.Payment == nil {
			return nil, fmt.Errorf("%s event without payment payload", ev.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return &ev, nil
}
