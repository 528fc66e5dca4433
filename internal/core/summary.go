package core

import "time"

const (
	NotifyRecurrenceExecuted    NotificationKind = "recurrence_executed"
	NotifyRecurrenceDeactivated NotificationKind = "recurrence_deactivated"
	NotifyCardPayment           NotificationKind = "card_payment"
	NotifyPaymentDue            NotificationKind = "payment_due"
)

type NotificationKind string

type Notification struct {
	ID        int64            `json:"id"`
	OwnerID   string           `json:"owner_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	// DedupKey, when set, is unique per owner; storing a second notification
	// with the same key fails with ErrConflict.
	DedupKey string `json:"-"`
}

// MonthSummary aggregates an owner's transactions for one calendar month.
type MonthSummary struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"` // 1-12
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
}

// Net is income minus expenses.
func (s MonthSummary) Net() Money {
	return s.Income.Sub(s.Expenses)
}

// Add folds t into the summary.
func (s *MonthSummary) Add(t Transaction) {
	switch t.Type {
	case Income:
		s.Income = s.Income.Add(t.Amount)
	case Expense:
		s.Expenses = s.Expenses.Add(t.Amount)
	}
}
