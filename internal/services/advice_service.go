package services

import (
	"context"
	"fmt"

	"finanzas/internal/advice"
	"finanzas/internal/core"
)

// AdviceService gathers an owner's current position and hands it to an Advisor.
type AdviceService struct {
	recurring    *RecurringProcessor
	cards        *CardLedger
	transactions *TransactionService
	advisor      advice.Advisor
	clock        Clock
}

func NewAdviceService(recurring *RecurringProcessor, cards *CardLedger, transactions *TransactionService, advisor advice.Advisor, clock Clock) *AdviceService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AdviceService{
		recurring:    recurring,
		cards:        cards,
		transactions: transactions,
		advisor:      advisor,
		clock:        clock,
	}
}

// Snapshot collects the month totals, recurrences due by the end of today
// and upcoming card payments.
func (s *AdviceService) Snapshot(ctx context.Context, ownerID string) (advice.Snapshot, error) {
	today := Today(s.clock)

	month, err := s.transactions.MonthSummary(ctx, ownerID, today.Year(), today.Month())
	if err != nil {
		return advice.Snapshot{}, err
	}
	due, err := s.recurring.ListDue(ctx, ownerID, today.EndOfDay())
	if err != nil {
		return advice.Snapshot{}, err
	}
	payments, err := s.cards.UpcomingPayments(ctx, ownerID, today)
	if err != nil {
		return advice.Snapshot{}, err
	}

	snap := advice.Snapshot{
		AsOf:     today,
		Month:    month,
		Due:      make([]advice.DueRecurrence, 0, len(due)),
		Payments: make([]advice.CardPaymentDue, 0, len(payments)),
	}
	for _, r := range due {
		snap.Due = append(snap.Due, advice.DueRecurrence{
			Description:   r.Description,
			Type:          r.Type,
			Amount:        r.Amount,
			NextExecution: r.NextExecution,
		})
	}
	for _, p := range payments {
		snap.Payments = append(snap.Payments, advice.CardPaymentDue{
			CardName:     p.CardName,
			Balance:      p.Balance,
			DueDate:      p.DueDate,
			DaysUntilDue: p.DaysUntilDue,
			IsOverdue:    p.IsOverdue,
		})
	}
	return snap, nil
}

func (s *AdviceService) Advise(ctx context.Context, ownerID, question string) (advice.Advice, error) {
	snap, err := s.Snapshot(ctx, ownerID)
	if err != nil {
		return advice.Advice{}, err
	}
	snap.Question = question

	a, err := s.advisor.Advise(ctx, snap)
	if err != nil {
		return advice.Advice{}, fmt.Errorf("advise: %w: %w", core.ErrInternal, err)
	}
	return a, nil
}
