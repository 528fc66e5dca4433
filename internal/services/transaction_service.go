package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// TransactionService stores manual transactions and announces them over AMQP.
type TransactionService struct {
	store      storage.TransactionStore
	categories storage.CategoryStore
	publisher  Publisher
}

func NewTransactionService(store storage.TransactionStore, categories storage.CategoryStore, publisher Publisher) *TransactionService {
	return &TransactionService{
		store:      store,
		categories: categories,
		publisher:  publisher,
	}
}

// Create saves t locally, then publishes a transaction.created event.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CategoryID != nil {
		if _, err := s.categories.GetCategory(ctx, t.OwnerID, *t.CategoryID); err != nil {
			return core.Transaction{}, classifyReference("category_id", err)
		}
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, classifyReference("account_id", err)
	}

	publish(ctx, s.publisher, amqp.NewTransactionEvent(amqp.EventTransactionCreated, saved))
	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return t, classify("get transaction", err)
	}
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, ownerID string, f storage.TransactionFilter) ([]core.Transaction, error) {
	ts, err := s.store.ListTransactions(ctx, ownerID, f)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	return ts, nil
}

// MonthSummary totals income and expenses for one calendar month.
func (s *TransactionService) MonthSummary(ctx context.Context, ownerID string, year, month int) (core.MonthSummary, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	ts, err := s.store.ListTransactions(ctx, ownerID, storage.TransactionFilter{From: from, To: to})
	if err != nil {
		return core.MonthSummary{}, classify("month summary", err)
	}

	summary := core.MonthSummary{Year: year, Month: month}
	for _, t := range ts {
		summary.Add(t)
	}
	slog.DebugContext(ctx, "Computed month summary",
		"owner_id", ownerID,
		"year", year,
		"month", month,
		"transactions", len(ts))
	return summary, nil
}

// classifyReference turns a missing referenced row into a validation error
// on field; the request pointed at something the owner does not have.
func classifyReference(field string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w (%v)", core.NewValidationError(field, "does not exist"), err)
	}
	return classify("save transaction", err)
}
