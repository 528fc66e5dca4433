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

// Marker is appended to the description of a materialized transaction.
type Marker string

const (
	MarkerManual Marker = " (Recurrente)"
	MarkerAuto   Marker = " (Auto)"
)

// Execution is the outcome of materializing one recurrence.
type Execution struct {
	Transaction   core.Transaction `json:"transaction"`
	NextExecution core.Date        `json:"next_execution"`
	Deactivated   bool             `json:"deactivated"`
}

// ItemResult reports one recurrence of a batch run.
type ItemResult struct {
	RecurrenceID  int64  `json:"recurrence_id"`
	Description   string `json:"description"`
	Success       bool   `json:"success"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchResult summarizes ExecuteAllDue.
type BatchResult struct {
	Executed int          `json:"executed"`
	Failed   int          `json:"failed"`
	Results  []ItemResult `json:"results"`
}

// RecurringProcessor turns due recurrences into transactions.
type RecurringProcessor struct {
	store      storage.RecurrenceStore
	categories storage.CategoryStore
	publisher  Publisher
	clock      Clock
}

func NewRecurringProcessor(store storage.RecurrenceStore, categories storage.CategoryStore, publisher Publisher, clock Clock) *RecurringProcessor {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RecurringProcessor{
		store:      store,
		categories: categories,
		publisher:  publisher,
		clock:      clock,
	}
}

// Create validates r, computes its first execution and stores it active.
func (p *RecurringProcessor) Create(ctx context.Context, r core.Recurrence) (core.Recurrence, error) {
	if err := r.Validate(); err != nil {
		return core.Recurrence{}, err
	}
	if r.CategoryID != nil {
		if _, err := p.categories.GetCategory(ctx, r.OwnerID, *r.CategoryID); err != nil {
			return core.Recurrence{}, classifyReference("category_id", err)
		}
	}

	next, err := InitialNextExecution(r)
	if err != nil {
		return core.Recurrence{}, err
	}
	if r.EndDate != nil && next.After(r.EndDate.Time) {
		return core.Recurrence{}, core.NewValidationError("end_date", "ends before the first occurrence")
	}
	r.NextExecution = next
	r.IsActive = true
	r.LastExecuted = nil

	saved, err := p.store.CreateRecurrence(ctx, r)
	if err != nil {
		return core.Recurrence{}, classify("create recurrence", err)
	}
	slog.InfoContext(ctx, "Created recurrence",
		"recurrence_id", saved.ID,
		"frequency", saved.Frequency,
		"next_execution", saved.NextExecution.String())
	return saved, nil
}

func (p *RecurringProcessor) Get(ctx context.Context, ownerID string, id int64) (core.Recurrence, error) {
	r, err := p.store.GetRecurrence(ctx, ownerID, id)
	if err != nil {
		return r, classify("get recurrence", err)
	}
	return r, nil
}

func (p *RecurringProcessor) List(ctx context.Context, ownerID string) ([]core.Recurrence, error) {
	rs, err := p.store.ListRecurrences(ctx, ownerID)
	if err != nil {
		return nil, classify("list recurrences", err)
	}
	return rs, nil
}

// Deactivate stops a recurrence; it is never deleted.
func (p *RecurringProcessor) Deactivate(ctx context.Context, ownerID string, id int64) error {
	if err := p.store.DeactivateRecurrence(ctx, ownerID, id); err != nil {
		return classify("deactivate recurrence", err)
	}
	return nil
}

// Preview lists up to n upcoming occurrences of an active recurrence.
func (p *RecurringProcessor) Preview(ctx context.Context, ownerID string, id int64, n int) ([]core.Date, error) {
	r, err := p.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return []core.Date{}, nil
	}
	return Occurrences(r.NextExecution, r.Frequency, r.EndDate, n)
}

// ListDue returns active recurrences whose next execution is on or before asOf.
func (p *RecurringProcessor) ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]core.Recurrence, error) {
	rs, err := p.store.ListDueRecurrences(ctx, ownerID, asOf, false)
	if err != nil {
		return nil, classify("list due recurrences", err)
	}
	return rs, nil
}

// ExecuteOne materializes a single recurrence now. Missing, foreign and
// inactive recurrences are all reported as not found.
func (p *RecurringProcessor) ExecuteOne(ctx context.Context, ownerID string, id int64, marker Marker) (Execution, error) {
	rec, err := p.store.GetRecurrence(ctx, ownerID, id)
	if err != nil {
		return Execution{}, classify("execute recurrence", err)
	}
	if !rec.IsActive {
		return Execution{}, fmt.Errorf("execute recurrence %d: inactive: %w", id, core.ErrNotFound)
	}
	if err := p.checkCategory(ctx, rec); err != nil {
		return Execution{}, fmt.Errorf("execute recurrence %d: %w", id, err)
	}
	if err := rec.Amount.Validate(); err != nil {
		return Execution{}, fmt.Errorf("execute recurrence %d: %w", id, err)
	}

	next, err := SubsequentExecution(rec.NextExecution, rec.Frequency)
	if err != nil {
		return Execution{}, fmt.Errorf("execute recurrence %d: %w", id, err)
	}
	deactivate := rec.EndDate != nil && next.After(rec.EndDate.Time)

	now := p.clock.Now()
	recID := rec.ID
	tx := core.Transaction{
		OwnerID:      rec.OwnerID,
		Type:         rec.Type,
		Amount:       rec.Amount,
		CategoryID:   rec.CategoryID,
		AccountID:    rec.AccountID,
		Description:  rec.Description + string(marker),
		Date:         now,
		RecurrenceID: &recID,
		Tags:         []string{"recurring", rec.Frequency.Tag()},
	}

	saved, err := p.store.Materialize(ctx, storage.Materialization{
		Transaction:   tx,
		RecurrenceID:  rec.ID,
		ExecutedAt:    now,
		NextExecution: next,
		Deactivate:    deactivate,
	})
	if err != nil {
		return Execution{}, classify("execute recurrence", err)
	}

	slog.InfoContext(ctx, "Created transaction from recurrence",
		"recurrence_id", rec.ID,
		"transaction_id", saved.ID,
		"amount_cents", rec.Amount.Cents,
		"frequency", rec.Frequency,
		"next_execution", next.String(),
		"deactivated", deactivate)

	publish(ctx, p.publisher, amqp.NewTransactionEvent(amqp.EventTransactionMaterialized, saved))
	if deactivate {
		rec.NextExecution = next
		publish(ctx, p.publisher, amqp.NewRecurrenceDeactivatedEvent(rec))
	}

	return Execution{Transaction: saved, NextExecution: next, Deactivated: deactivate}, nil
}

func (p *RecurringProcessor) checkCategory(ctx context.Context, rec core.Recurrence) error {
	if rec.CategoryID == nil {
		return core.ErrMissingCategory
	}
	if p.categories == nil {
		return nil
	}
	_, err := p.categories.GetCategory(ctx, rec.OwnerID, *rec.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w (%v)", core.ErrMissingCategory, err)
	}
	if err != nil {
		return classify("load category", err)
	}
	return nil
}

// ExecuteAllDue materializes every active auto-create recurrence due by the
// end of today. Each item runs on its own; a failure is recorded and the
// batch moves on.
func (p *RecurringProcessor) ExecuteAllDue(ctx context.Context, ownerID string) (BatchResult, error) {
	endOfToday := Today(p.clock).EndOfDay()

	due, err := p.store.ListDueRecurrences(ctx, ownerID, endOfToday, true)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list due recurrences: %w: %w", core.ErrInternal, err)
	}

	slog.InfoContext(ctx, "Processing due recurrences",
		"owner_id", ownerID,
		"total_due", len(due),
		"processing_date", endOfToday.Format(core.DateLayout))

	result := BatchResult{Results: make([]ItemResult, 0, len(due))}
	for _, rec := range due {
		item := ItemResult{RecurrenceID: rec.ID, Description: rec.Description}

		exec, err := p.ExecuteOne(ctx, ownerID, rec.ID, MarkerAuto)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to execute recurrence",
				"recurrence_id", rec.ID,
				"description", rec.Description,
				"error", err)
			item.Error = err.Error()
			result.Failed++
		} else {
			item.Success = true
			item.TransactionID = exec.Transaction.ID
			result.Executed++
		}
		result.Results = append(result.Results, item)
	}

	slog.InfoContext(ctx, "Recurrence processing complete",
		"owner_id", ownerID,
		"executed", result.Executed,
		"failed", result.Failed)
	return result, nil
}

// ExecuteAllOwners runs ExecuteAllDue for every owner with auto-create
// recurrences. An owner whose batch cannot start is logged and skipped.
func (p *RecurringProcessor) ExecuteAllOwners(ctx context.Context) (map[string]BatchResult, error) {
	owners, err := p.store.ListRecurrenceOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurrence owners: %w: %w", core.ErrInternal, err)
	}

	results := make(map[string]BatchResult, len(owners))
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.ExecuteAllDue(ctx, owner)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process owner", "owner_id", owner, "error", err)
			continue
		}
		results[owner] = res
	}
	return results, nil
}
