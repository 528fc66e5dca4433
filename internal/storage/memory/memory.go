// Package memory is an in-process Store used by tests and DATA_BACKEND=memory.
// A single mutex guards every map, so multi-row writes are atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	recurrences   map[int64]core.Recurrence
	transactions  map[int64]core.Transaction
	accounts      map[int64]core.Account
	categories    map[int64]core.Category
	cards         map[int64]core.CreditCard
	cardTxs       map[int64]core.CreditCardTransaction
	cardPayments  map[int64]core.CreditCardPayment
	notifications map[int64]core.Notification
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:           time.Now,
		recurrences:   map[int64]core.Recurrence{},
		transactions:  map[int64]core.Transaction{},
		accounts:      map[int64]core.Account{},
		categories:    map[int64]core.Category{},
		cards:         map[int64]core.CreditCard{},
		cardTxs:       map[int64]core.CreditCardTransaction{},
		cardPayments:  map[int64]core.CreditCardPayment{},
		notifications: map[int64]core.Notification{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func missing(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
}

// --- recurrences

func (s *Store) CreateRecurrence(_ context.Context, r core.Recurrence) (core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	r.ID = s.id()
	r.CreatedAt, r.UpdatedAt = now, now
	s.recurrences[r.ID] = r
	return r, nil
}

func (s *Store) GetRecurrence(_ context.Context, ownerID string, id int64) (core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return core.Recurrence{}, missing("recurrence", id)
	}
	return r, nil
}

func (s *Store) ListRecurrences(_ context.Context, ownerID string) ([]core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Recurrence
	for _, r := range s.recurrences {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDueRecurrences(_ context.Context, ownerID string, asOf time.Time, autoOnly bool) ([]core.Recurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := core.DateOf(asOf.UTC())
	var out []core.Recurrence
	for _, r := range s.recurrences {
		if r.OwnerID != ownerID || !r.IsActive || r.NextExecution.After(cutoff.Time) {
			continue
		}
		if autoOnly && !r.AutoCreate {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextExecution.Equal(out[j].NextExecution.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextExecution.Before(out[j].NextExecution.Time)
	})
	return out, nil
}

func (s *Store) DeactivateRecurrence(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[id]
	if !ok || r.OwnerID != ownerID {
		return missing("recurrence", id)
	}
	r.IsActive = false
	r.UpdatedAt = s.now().UTC()
	s.recurrences[id] = r
	return nil
}

func (s *Store) ListRecurrenceOwners(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, r := range s.recurrences {
		if !r.IsActive || !r.AutoCreate {
			continue
		}
		if _, ok := seen[r.OwnerID]; !ok {
			seen[r.OwnerID] = struct{}{}
			out = append(out, r.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Materialize(_ context.Context, m storage.Materialization) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurrences[m.RecurrenceID]
	if !ok || r.OwnerID != m.Transaction.OwnerID {
		return core.Transaction{}, missing("recurrence", m.RecurrenceID)
	}
	t, err := s.insertTransaction(m.Transaction)
	if err != nil {
		return core.Transaction{}, err
	}
	executedAt := m.ExecutedAt
	r.LastExecuted = &executedAt
	r.NextExecution = m.NextExecution
	r.IsActive = !m.Deactivate
	r.UpdatedAt = s.now().UTC()
	s.recurrences[r.ID] = r
	return t, nil
}

// --- transactions, accounts, categories

// insertTransaction must be called with mu held. The account is checked
// before anything is written.
func (s *Store) insertTransaction(t core.Transaction) (core.Transaction, error) {
	var acct core.Account
	if t.AccountID != nil {
		a, ok := s.accounts[*t.AccountID]
		if !ok || a.OwnerID != t.OwnerID {
			return core.Transaction{}, missing("account", *t.AccountID)
		}
		acct = a
	}
	t.ID = s.id()
	t.CreatedAt = s.now().UTC()
	if t.Tags == nil {
		t.Tags = []string{}
	}
	s.transactions[t.ID] = t
	if t.AccountID != nil {
		acct.Balance = acct.Balance.Add(t.SignedAmount())
		s.accounts[acct.ID] = acct
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTransaction(t)
}

func (s *Store) GetTransaction(_ context.Context, ownerID string, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, missing("transaction", id)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID == ownerID && f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID > out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, ownerID string, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, missing("account", id)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, ownerID string, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.Category{}, missing("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- credit cards

func (s *Store) CreateCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = now, now
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) GetCard(_ context.Context, ownerID string, id int64) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.OwnerID != ownerID {
		return core.CreditCard{}, missing("credit card", id)
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context, ownerID string) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCard
	for _, c := range s.cards {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListCardOwners(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, c := range s.cards {
		if c.CurrentBalance.Cents <= 0 {
			continue
		}
		if _, ok := seen[c.OwnerID]; !ok {
			seen[c.OwnerID] = struct{}{}
			out = append(out, c.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListCardTransactions(_ context.Context, ownerID string, cardID int64) ([]core.CreditCardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCardTransaction
	for _, t := range s.cardTxs {
		if t.CardID == cardID && t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ApplyCardPurchase(_ context.Context, t core.CreditCardTransaction) (core.CreditCardTransaction, core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[t.CardID]
	if !ok || c.OwnerID != t.OwnerID {
		return core.CreditCardTransaction{}, core.CreditCard{}, missing("credit card", t.CardID)
	}
	now := s.now().UTC()
	t.ID = s.id()
	t.CreatedAt = now
	s.cardTxs[t.ID] = t
	c.CurrentBalance = c.CurrentBalance.Add(t.Amount)
	c.UpdatedAt = now
	s.cards[c.ID] = c
	return t, c, nil
}

func (s *Store) ApplyCardPayment(_ context.Context, p core.CreditCardPayment, clearPending bool) (core.CreditCardPayment, core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[p.CardID]
	if !ok || c.OwnerID != p.OwnerID {
		return core.CreditCardPayment{}, core.CreditCard{}, missing("credit card", p.CardID)
	}
	now := s.now().UTC()
	p.ID = s.id()
	p.CreatedAt = now
	s.cardPayments[p.ID] = p
	c.CurrentBalance = c.CurrentBalance.Sub(p.Amount).MaxZero()
	c.UpdatedAt = now
	s.cards[c.ID] = c
	if clearPending {
		for id, t := range s.cardTxs {
			if t.CardID == c.ID && t.IsPending {
				t.IsPending = false
				s.cardTxs[id] = t
			}
		}
	}
	return p, c, nil
}

// --- notifications

func (s *Store) CreateNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupKey != "" {
		for _, existing := range s.notifications {
			if existing.OwnerID == n.OwnerID && existing.DedupKey == n.DedupKey {
				return n, fmt.Errorf("notification %q: %w", n.DedupKey, core.ErrConflict)
			}
		}
	}
	n.ID = s.id()
	n.CreatedAt = s.now().UTC()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) ListNotifications(_ context.Context, ownerID string, unreadOnly bool) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for _, n := range s.notifications {
		if n.OwnerID != ownerID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OwnerID != ownerID {
		return missing("notification", id)
	}
	n.IsRead = true
	s.notifications[id] = n
	return nil
}
