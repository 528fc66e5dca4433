package storage

import (
	"context"
	"time"

	"finanzas/internal/core"
)

// Ports implemented by SQLiteRepository and memory.Store. Lookups scoped by
// owner return core.ErrNotFound for rows that exist but belong to someone else.
type (
	RecurrenceStore interface {
		CreateRecurrence(ctx context.Context, r core.Recurrence) (core.Recurrence, error)
		GetRecurrence(ctx context.Context, ownerID string, id int64) (core.Recurrence, error)
		ListRecurrences(ctx context.Context, ownerID string) ([]core.Recurrence, error)
		// ListDueRecurrences returns active recurrences with NextExecution <= asOf,
		// ordered by NextExecution. autoOnly also requires AutoCreate.
		ListDueRecurrences(ctx context.Context, ownerID string, asOf time.Time, autoOnly bool) ([]core.Recurrence, error)
		DeactivateRecurrence(ctx context.Context, ownerID string, id int64) error
		// Materialize stores the transaction, applies it to the account balance
		// and advances the recurrence as one unit.
		Materialize(ctx context.Context, m Materialization) (core.Transaction, error)
		// ListRecurrenceOwners returns owners with at least one active auto-create recurrence.
		ListRecurrenceOwners(ctx context.Context) ([]string, error)
	}

	TransactionStore interface {
		// CreateTransaction stores t and applies it to its account balance.
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, ownerID string, id int64) (core.Account, error)
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error)
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	}

	CardStore interface {
		CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
		GetCard(ctx context.Context, ownerID string, id int64) (core.CreditCard, error)
		ListCards(ctx context.Context, ownerID string) ([]core.CreditCard, error)
		// ListCardOwners returns owners holding at least one card with a balance.
		ListCardOwners(ctx context.Context) ([]string, error)
		ListCardTransactions(ctx context.Context, ownerID string, cardID int64) ([]core.CreditCardTransaction, error)
		// ApplyCardPurchase records the purchase and adds its amount to the card
		// balance as one unit. It returns the card as stored after the write.
		ApplyCardPurchase(ctx context.Context, tx core.CreditCardTransaction) (core.CreditCardTransaction, core.CreditCard, error)
		// ApplyCardPayment records the payment, lowers the card balance by its
		// amount (never below zero) and, when clearPending is set, clears every
		// pending transaction of the card. It returns the card after the write.
		ApplyCardPayment(ctx context.Context, p core.CreditCardPayment, clearPending bool) (core.CreditCardPayment, core.CreditCard, error)
	}

	NotificationStore interface {
		// CreateNotification fails with core.ErrConflict when n.DedupKey is set
		// and the owner already has a notification with that key.
		CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
		ListNotifications(ctx context.Context, ownerID string, unreadOnly bool) ([]core.Notification, error)
		MarkNotificationRead(ctx context.Context, ownerID string, id int64) error
	}

	// Store is the full persistence surface.
	Store interface {
		RecurrenceStore
		TransactionStore
		AccountStore
		CategoryStore
		CardStore
		NotificationStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Materialization is the write set of one recurrence execution.
type Materialization struct {
	Transaction   core.Transaction
	RecurrenceID  int64
	ExecutedAt    time.Time
	NextExecution core.Date
	Deactivate    bool
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	From         time.Time
	To           time.Time
	RecurrenceID *int64
	Type         core.TransactionType
	Limit        int
}

// Match reports whether t passes the filter, ignoring Limit.
func (f TransactionFilter) Match(t core.Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.RecurrenceID != nil && (t.RecurrenceID == nil || *t.RecurrenceID != *f.RecurrenceID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}
