package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// urgentWithinDays marks a due date as urgent when it is this close.
const urgentWithinDays = 5

type PurchaseInput struct {
	Amount       core.Money
	Installments int
	Description  string
	Date         core.Date
}

type PaymentInput struct {
	Amount      core.Money
	PaymentType core.PaymentType
	Date        core.Date
}

// CardUpdate is the card state after a ledger write, with the row written.
type CardUpdate struct {
	Card            core.CreditCard              `json:"card"`
	CurrentBalance  core.Money                   `json:"current_balance"`
	AvailableCredit core.Money                   `json:"available_credit"`
	Transaction     *core.CreditCardTransaction `json:"transaction,omitempty"`
	Payment         *core.CreditCardPayment     `json:"payment,omitempty"`
}

type UpcomingPayment struct {
	CardID       int64      `json:"card_id"`
	CardName     string     `json:"card_name"`
	Balance      core.Money `json:"balance"`
	DueDate      core.Date  `json:"due_date"`
	DaysUntilDue int        `json:"days_until_due"`
	IsOverdue    bool       `json:"is_overdue"`
	IsUrgent     bool       `json:"is_urgent"`
}

type upcomingEntry struct {
	day      string
	payments []UpcomingPayment
}

// CardLedger keeps credit card balances in step with purchases and payments.
type CardLedger struct {
	store     storage.CardStore
	publisher Publisher
	clock     Clock
	upcoming  cache.Cache[upcomingEntry]

	// generations counts card writes per owner; a computed upcoming list
	// is cached only if no write landed while it was being built.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewCardLedger(store storage.CardStore, publisher Publisher, clock Clock) *CardLedger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CardLedger{
		store:       store,
		publisher:   publisher,
		clock:       clock,
		upcoming:    cache.NewLRUCache[upcomingEntry](500, 10*time.Minute),
		generations: make(map[string]uint64),
	}
}

// invalidate drops the cached upcoming payments of ownerID after a card write.
func (l *CardLedger) invalidate(ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generations[ownerID]++
	l.upcoming.Delete(ownerID)
}

func (l *CardLedger) generation(ownerID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[ownerID]
}

// cacheUpcoming stores e unless a card write for ownerID happened after gen was read.
func (l *CardLedger) cacheUpcoming(ownerID string, gen uint64, e upcomingEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[ownerID] == gen {
		l.upcoming.Set(ownerID, e)
	}
}

// Cleaner exposes the upcoming-payments cache for periodic expiry.
func (l *CardLedger) Cleaner() cache.Cleaner {
	if c, ok := l.upcoming.(cache.Cleaner); ok {
		return c
	}
	return nil
}

func (l *CardLedger) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	saved, err := l.store.CreateCard(ctx, c)
	if err != nil {
		return core.CreditCard{}, classify("create credit card", err)
	}
	l.invalidate(c.OwnerID)
	return saved, nil
}

func (l *CardLedger) GetCard(ctx context.Context, ownerID string, id int64) (core.CreditCard, error) {
	c, err := l.store.GetCard(ctx, ownerID, id)
	if err != nil {
		return c, classify("get credit card", err)
	}
	return c, nil
}

func (l *CardLedger) ListCards(ctx context.Context, ownerID string) ([]core.CreditCard, error) {
	cs, err := l.store.ListCards(ctx, ownerID)
	if err != nil {
		return nil, classify("list credit cards", err)
	}
	return cs, nil
}

// Owners lists the owners that currently carry a card balance.
func (l *CardLedger) Owners(ctx context.Context) ([]string, error) {
	owners, err := l.store.ListCardOwners(ctx)
	if err != nil {
		return nil, classify("list card owners", err)
	}
	return owners, nil
}

func (l *CardLedger) ListTransactions(ctx context.Context, ownerID string, cardID int64) ([]core.CreditCardTransaction, error) {
	if _, err := l.GetCard(ctx, ownerID, cardID); err != nil {
		return nil, err
	}
	ts, err := l.store.ListCardTransactions(ctx, ownerID, cardID)
	if err != nil {
		return nil, classify("list card transactions", err)
	}
	return ts, nil
}

// ApplyPurchase charges a purchase to the card. The purchase starts pending.
func (l *CardLedger) ApplyPurchase(ctx context.Context, ownerID string, cardID int64, in PurchaseInput) (CardUpdate, error) {
	if err := in.Amount.Validate(); err != nil {
		return CardUpdate{}, err
	}
	if in.Installments == 0 {
		in.Installments = 1
	}
	if in.Installments < 1 {
		return CardUpdate{}, core.ErrInvalidInstallment
	}
	if in.Date.IsZero() {
		in.Date = Today(l.clock)
	}

	card, err := l.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return CardUpdate{}, err
	}

	tx := core.CreditCardTransaction{
		CardID:       card.ID,
		OwnerID:      ownerID,
		Amount:       in.Amount,
		Description:  strings.TrimSpace(in.Description),
		Installments: in.Installments,
		IsPending:    true,
		Date:         in.Date,
	}
	if in.Installments > 1 {
		per := in.Amount.Div(in.Installments)
		tx.InstallmentAmount = &per
	}

	saved, card, err := l.store.ApplyCardPurchase(ctx, tx)
	if err != nil {
		return CardUpdate{}, classify("apply purchase", err)
	}
	l.invalidate(ownerID)

	slog.InfoContext(ctx, "Applied card purchase",
		"card_id", card.ID,
		"amount_cents", in.Amount.Cents,
		"installments", in.Installments,
		"new_balance_cents", card.CurrentBalance.Cents)

	return CardUpdate{
		Card:            card,
		CurrentBalance:  card.CurrentBalance,
		AvailableCredit: card.AvailableCredit(),
		Transaction:     &saved,
	}, nil
}

// ApplyPayment reduces the card balance, never below zero. A FULL payment
// also settles every pending purchase.
func (l *CardLedger) ApplyPayment(ctx context.Context, ownerID string, cardID int64, in PaymentInput) (CardUpdate, error) {
	if err := in.Amount.Validate(); err != nil {
		return CardUpdate{}, err
	}
	pt, err := core.ParsePaymentType(string(in.PaymentType))
	if err != nil {
		return CardUpdate{}, err
	}
	in.PaymentType = pt
	if in.Date.IsZero() {
		in.Date = Today(l.clock)
	}

	card, err := l.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return CardUpdate{}, err
	}

	payment := core.CreditCardPayment{
		CardID:      card.ID,
		OwnerID:     ownerID,
		Amount:      in.Amount,
		PaymentType: in.PaymentType,
		Date:        in.Date,
	}
	clearPending := in.PaymentType == core.PaymentFull

	saved, card, err := l.store.ApplyCardPayment(ctx, payment, clearPending)
	if err != nil {
		return CardUpdate{}, classify("apply payment", err)
	}
	l.invalidate(ownerID)

	slog.InfoContext(ctx, "Applied card payment",
		"card_id", card.ID,
		"amount_cents", in.Amount.Cents,
		"payment_type", in.PaymentType,
		"new_balance_cents", card.CurrentBalance.Cents)

	publish(ctx, l.publisher, amqp.NewCardPaymentEvent(card, saved))

	return CardUpdate{
		Card:            card,
		CurrentBalance:  card.CurrentBalance,
		AvailableCredit: card.AvailableCredit(),
		Payment:         &saved,
	}, nil
}

// ComputeUpcomingPayment finds the next due date of card relative to today.
// The due day is clamped to the month length; once today is past the due
// day the following month's due date applies.
func ComputeUpcomingPayment(card core.CreditCard, today core.Date) UpcomingPayment {
	year, month := today.Year(), today.Month()
	if today.Day() > card.PaymentDueDay {
		month++
		if month > 12 {
			month, year = 1, year+1
		}
	}
	day := card.PaymentDueDay
	if last := core.DaysInMonth(year, month); day > last {
		day = last
	}
	due := core.NewDate(year, month, day)
	days := int(due.Sub(today.Time).Hours() / 24)

	return UpcomingPayment{
		CardID:       card.ID,
		CardName:     card.Name,
		Balance:      card.CurrentBalance,
		DueDate:      due,
		DaysUntilDue: days,
		IsOverdue:    days < 0,
		IsUrgent:     days >= 0 && days <= urgentWithinDays,
	}
}

// UpcomingPayments lists cards with a balance, soonest due first. A zero
// today means the current day.
func (l *CardLedger) UpcomingPayments(ctx context.Context, ownerID string, today core.Date) ([]UpcomingPayment, error) {
	if today.IsZero() {
		today = Today(l.clock)
	}
	if e, ok := l.upcoming.Get(ownerID); ok && e.day == today.String() {
		return e.payments, nil
	}
	gen := l.generation(ownerID)

	cards, err := l.store.ListCards(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w: %w", core.ErrInternal, err)
	}

	out := make([]UpcomingPayment, 0, len(cards))
	for _, c := range cards {
		if c.CurrentBalance.Cents <= 0 {
			continue
		}
		out = append(out, ComputeUpcomingPayment(c, today))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntilDue < out[j].DaysUntilDue })

	l.cacheUpcoming(ownerID, gen, upcomingEntry{day: today.String(), payments: out})
	return out, nil
}
