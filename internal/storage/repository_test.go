package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finanzas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finanzas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func intp(n int) *int { return &n }

func TestSQLiteRepository_Recurrences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cat, err := repo.CreateCategory(ctx, core.Category{OwnerID: "u1", Name: "Vivienda", Type: core.Expense})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	end := core.NewDate(2024, 4, 30)
	rec, err := repo.CreateRecurrence(ctx, core.Recurrence{
		OwnerID:       "u1",
		Type:          core.Expense,
		Amount:        core.Money{Cents: 85000},
		CategoryID:    &cat.ID,
		Description:   "Alquiler",
		Frequency:     core.Monthly,
		DayOfMonth:    intp(15),
		StartDate:     core.NewDate(2024, 3, 1),
		EndDate:       &end,
		NextExecution: core.NewDate(2024, 3, 15),
		IsActive:      true,
		AutoCreate:    true,
	})
	if err != nil {
		t.Fatalf("CreateRecurrence() error = %v", err)
	}

	got, err := repo.GetRecurrence(ctx, "u1", rec.ID)
	if err != nil {
		t.Fatalf("GetRecurrence() error = %v", err)
	}
	if got.NextExecution.String() != "2024-03-15" || got.EndDate == nil || got.EndDate.String() != "2024-04-30" {
		t.Errorf("dates = %s / %v, want 2024-03-15 / 2024-04-30", got.NextExecution, got.EndDate)
	}
	if got.DayOfMonth == nil || *got.DayOfMonth != 15 || got.DayOfWeek != nil {
		t.Errorf("day fields = %v / %v", got.DayOfMonth, got.DayOfWeek)
	}

	if _, err := repo.GetRecurrence(ctx, "u2", rec.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRecurrence(other owner) error = %v, want ErrNotFound", err)
	}

	due, err := repo.ListDueRecurrences(ctx, "u1", time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC), true)
	if err != nil {
		t.Fatalf("ListDueRecurrences() error = %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due before next execution = %d, want 0", len(due))
	}
	due, err = repo.ListDueRecurrences(ctx, "u1", time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), true)
	if err != nil {
		t.Fatalf("ListDueRecurrences() error = %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due on next execution = %d, want 1", len(due))
	}

	owners, err := repo.ListRecurrenceOwners(ctx)
	if err != nil || len(owners) != 1 || owners[0] != "u1" {
		t.Errorf("ListRecurrenceOwners() = %v, %v", owners, err)
	}

	recID := rec.ID
	executedAt := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	tx, err := repo.Materialize(ctx, Materialization{
		Transaction: core.Transaction{
			OwnerID:      "u1",
			Type:         core.Expense,
			Amount:       rec.Amount,
			CategoryID:   &cat.ID,
			Description:  "Alquiler (Auto)",
			Date:         executedAt,
			RecurrenceID: &recID,
			Tags:         []string{"recurring", "monthly"},
		},
		RecurrenceID:  rec.ID,
		ExecutedAt:    executedAt,
		NextExecution: core.NewDate(2024, 4, 15),
	})
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if tx.ID == 0 {
		t.Error("Materialize() returned transaction without id")
	}

	got, _ = repo.GetRecurrence(ctx, "u1", rec.ID)
	if got.NextExecution.String() != "2024-04-15" || !got.IsActive {
		t.Errorf("after materialize next = %s active = %v", got.NextExecution, got.IsActive)
	}
	if got.LastExecuted == nil || !got.LastExecuted.Equal(executedAt) {
		t.Errorf("LastExecuted = %v, want %v", got.LastExecuted, executedAt)
	}

	byRec, err := repo.ListTransactions(ctx, "u1", TransactionFilter{RecurrenceID: &recID})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(byRec) != 1 || len(byRec[0].Tags) != 2 || byRec[0].Tags[1] != "monthly" {
		t.Errorf("transactions by recurrence = %+v", byRec)
	}

	if _, err := repo.Materialize(ctx, Materialization{
		Transaction:   core.Transaction{OwnerID: "u1", Type: core.Expense, Amount: rec.Amount, Description: "x", Date: executedAt},
		RecurrenceID:  rec.ID,
		ExecutedAt:    executedAt,
		NextExecution: core.NewDate(2024, 5, 15),
		Deactivate:    true,
	}); err != nil {
		t.Fatalf("Materialize(deactivate) error = %v", err)
	}
	got, _ = repo.GetRecurrence(ctx, "u1", rec.ID)
	if got.IsActive {
		t.Error("recurrence still active after deactivating materialization")
	}
	if owners, _ := repo.ListRecurrenceOwners(ctx); len(owners) != 0 {
		t.Errorf("owners after deactivation = %v, want none", owners)
	}

	if err := repo.DeactivateRecurrence(ctx, "u1", 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeactivateRecurrence(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_TransactionsAndAccounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, err := repo.CreateAccount(ctx, core.Account{OwnerID: "u1", Name: "Banco"})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for _, tt := range []struct {
		typ   core.TransactionType
		cents int64
	}{
		{core.Income, 300000},
		{core.Expense, 45050},
	} {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			OwnerID:     "u1",
			Type:        tt.typ,
			Amount:      core.Money{Cents: tt.cents},
			AccountID:   &acc.ID,
			Description: "movimiento",
			Date:        day,
		}); err != nil {
			t.Fatalf("CreateTransaction(%s) error = %v", tt.typ, err)
		}
	}

	got, err := repo.GetAccount(ctx, "u1", acc.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if got.Balance.Cents != 254950 {
		t.Errorf("account balance = %d, want 254950", got.Balance.Cents)
	}

	missing := int64(404)
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		OwnerID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100},
		AccountID: &missing, Description: "huérfano", Date: day,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("CreateTransaction(missing account) error = %v, want ErrNotFound", err)
	}

	all, err := repo.ListTransactions(ctx, "u1", TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("transactions = %d, want 2 (failed insert must roll back)", len(all))
	}

	expenses, _ := repo.ListTransactions(ctx, "u1", TransactionFilter{Type: core.Expense})
	if len(expenses) != 1 {
		t.Errorf("expense filter = %d, want 1", len(expenses))
	}
	later, _ := repo.ListTransactions(ctx, "u1", TransactionFilter{From: day.Add(time.Hour)})
	if len(later) != 0 {
		t.Errorf("from filter = %d, want 0", len(later))
	}
	limited, _ := repo.ListTransactions(ctx, "u1", TransactionFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit filter = %d, want 1", len(limited))
	}
	other, _ := repo.ListTransactions(ctx, "u2", TransactionFilter{})
	if len(other) != 0 {
		t.Errorf("other owner sees %d transactions", len(other))
	}
}

func TestSQLiteRepository_Cards(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	card, err := repo.CreateCard(ctx, core.CreditCard{
		OwnerID:       "u1",
		Name:          "Visa",
		CreditLimit:   core.Money{Cents: 500000},
		CutOffDay:     10,
		PaymentDueDay: 25,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if owners, _ := repo.ListCardOwners(ctx); len(owners) != 0 {
		t.Errorf("owners with zero balance = %v, want none", owners)
	}

	per := core.Money{Cents: 10000}
	_, after, err := repo.ApplyCardPurchase(ctx, core.CreditCardTransaction{
		CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 30000},
		Installments: 3, InstallmentAmount: &per, IsPending: true,
		Date: core.NewDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("ApplyCardPurchase() error = %v", err)
	}
	if after.CurrentBalance.Cents != 30000 || after.Name != "Visa" {
		t.Errorf("returned card = %+v, want Visa with balance 30000", after)
	}

	got, _ := repo.GetCard(ctx, "u1", card.ID)
	if got.CurrentBalance.Cents != 30000 {
		t.Errorf("balance after purchase = %d, want 30000", got.CurrentBalance.Cents)
	}
	if owners, _ := repo.ListCardOwners(ctx); len(owners) != 1 || owners[0] != "u1" {
		t.Errorf("ListCardOwners() = %v, want [u1]", owners)
	}

	_, after, err = repo.ApplyCardPayment(ctx, core.CreditCardPayment{
		CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 5000},
		PaymentType: core.PaymentPartial, Date: core.NewDate(2024, 3, 20),
	}, false)
	if err != nil {
		t.Fatalf("ApplyCardPayment(partial) error = %v", err)
	}
	if after.CurrentBalance.Cents != 25000 {
		t.Errorf("balance after partial payment = %d, want 25000", after.CurrentBalance.Cents)
	}
	txs, _ := repo.ListCardTransactions(ctx, "u1", card.ID)
	if len(txs) != 1 || !txs[0].IsPending {
		t.Fatalf("after partial payment transactions = %+v", txs)
	}
	if txs[0].InstallmentAmount == nil || txs[0].InstallmentAmount.Cents != 10000 {
		t.Errorf("installment amount = %v, want 10000", txs[0].InstallmentAmount)
	}

	// paying more than the balance floors it at zero
	if _, _, err := repo.ApplyCardPayment(ctx, core.CreditCardPayment{
		CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 40000},
		PaymentType: core.PaymentFull, Date: core.NewDate(2024, 3, 21),
	}, true); err != nil {
		t.Fatalf("ApplyCardPayment(full) error = %v", err)
	}
	txs, _ = repo.ListCardTransactions(ctx, "u1", card.ID)
	if txs[0].IsPending {
		t.Error("full payment left purchase pending")
	}
	got, _ = repo.GetCard(ctx, "u1", card.ID)
	if got.CurrentBalance.Cents != 0 {
		t.Errorf("balance after full payment = %d, want 0", got.CurrentBalance.Cents)
	}

	_, _, err = repo.ApplyCardPurchase(ctx, core.CreditCardTransaction{
		CardID: card.ID, OwnerID: "u2", Amount: core.Money{Cents: 100},
		Installments: 1, IsPending: true, Date: core.NewDate(2024, 3, 22),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ApplyCardPurchase(other owner) error = %v, want ErrNotFound", err)
	}
	if txs, _ := repo.ListCardTransactions(ctx, "u1", card.ID); len(txs) != 1 {
		t.Errorf("foreign purchase was not rolled back: %d rows", len(txs))
	}
}

func TestSQLiteRepository_ConcurrentCardWrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	card, err := repo.CreateCard(ctx, core.CreditCard{
		OwnerID: "u1", Name: "Visa", CreditLimit: core.Money{Cents: 1000000},
		CutOffDay: 10, PaymentDueDay: 25,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if _, _, err := repo.ApplyCardPurchase(ctx, core.CreditCardTransaction{
		CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 10000},
		Installments: 1, IsPending: true, Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("ApplyCardPurchase() error = %v", err)
	}

	const purchases, payments = 20, 10
	var wg sync.WaitGroup
	errs := make(chan error, purchases+payments)
	for i := 0; i < purchases; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.ApplyCardPurchase(ctx, core.CreditCardTransaction{
				CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 100},
				Installments: 1, IsPending: true, Date: core.NewDate(2024, 3, 2),
			})
			errs <- err
		}()
	}
	for i := 0; i < payments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.ApplyCardPayment(ctx, core.CreditCardPayment{
				CardID: card.ID, OwnerID: "u1", Amount: core.Money{Cents: 50},
				PaymentType: core.PaymentPartial, Date: core.NewDate(2024, 3, 2),
			}, false)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent write error = %v", err)
		}
	}

	var charged, paid int64
	if err := repo.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM credit_card_transactions WHERE card_id = ?`, card.ID).Scan(&charged); err != nil {
		t.Fatalf("sum purchases: %v", err)
	}
	if err := repo.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM credit_card_payments WHERE card_id = ?`, card.ID).Scan(&paid); err != nil {
		t.Fatalf("sum payments: %v", err)
	}

	got, err := repo.GetCard(ctx, "u1", card.ID)
	if err != nil {
		t.Fatalf("GetCard() error = %v", err)
	}
	want := int64(10000 + purchases*100 - payments*50)
	if got.CurrentBalance.Cents != want || charged-paid != want {
		t.Errorf("balance = %d, ledger = %d, want %d", got.CurrentBalance.Cents, charged-paid, want)
	}
}

func TestSQLiteRepository_TimestampsReadBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 123456789, time.UTC)
	repo.now = func() time.Time { return fixed }

	card, err := repo.CreateCard(ctx, core.CreditCard{
		OwnerID: "u1", Name: "Visa", CreditLimit: core.Money{Cents: 1000},
		CutOffDay: 1, PaymentDueDay: 5,
	})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	got, err := repo.GetCard(ctx, "u1", card.ID)
	if err != nil {
		t.Fatalf("GetCard() error = %v", err)
	}
	if !got.CreatedAt.Equal(fixed) || !got.UpdatedAt.Equal(fixed) {
		t.Errorf("card timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, fixed)
	}

	date := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		OwnerID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100},
		Description: "café", Date: date,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	read, err := repo.GetTransaction(ctx, "u1", tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if !read.Date.Equal(date) || !read.CreatedAt.Equal(fixed) {
		t.Errorf("transaction times = %v / %v, want %v / %v", read.Date, read.CreatedAt, date, fixed)
	}

	var stored string
	if err := repo.db.QueryRowContext(ctx, `SELECT date FROM transactions WHERE id = ?`, tx.ID).Scan(&stored); err != nil {
		t.Fatalf("read raw date: %v", err)
	}
	if stored != "2024-03-10 12:00:00.000000000" {
		t.Errorf("stored date = %q, want fixed-width layout", stored)
	}
}

func TestSQLiteRepository_Notifications(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.CreateNotification(ctx, core.Notification{
		OwnerID:   "u1",
		Kind:      core.NotifyPaymentDue,
		Title:     "Pago",
		Message:   "Visa vence pronto",
		CreatedAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}

	unread, _ := repo.ListNotifications(ctx, "u1", true)
	if len(unread) != 1 {
		t.Fatalf("unread = %d, want 1", len(unread))
	}
	if err := repo.MarkNotificationRead(ctx, "u2", n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("MarkNotificationRead(other owner) error = %v, want ErrNotFound", err)
	}
	if err := repo.MarkNotificationRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("MarkNotificationRead() error = %v", err)
	}
	unread, _ = repo.ListNotifications(ctx, "u1", true)
	all, _ := repo.ListNotifications(ctx, "u1", false)
	if len(unread) != 0 || len(all) != 1 {
		t.Errorf("unread = %d all = %d, want 0 and 1", len(unread), len(all))
	}
}

func TestSQLiteRepository_NotificationDedupKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n := core.Notification{
		OwnerID:  "u1",
		Kind:     core.NotifyPaymentDue,
		Title:    "Pago",
		Message:  "Visa vence pronto",
		DedupKey: "payment_due:1:2024-03-25",
	}
	if _, err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}
	if _, err := repo.CreateNotification(ctx, n); !errors.Is(err, core.ErrConflict) {
		t.Errorf("CreateNotification(same key) error = %v, want ErrConflict", err)
	}

	other := n
	other.OwnerID = "u2"
	if _, err := repo.CreateNotification(ctx, other); err != nil {
		t.Errorf("CreateNotification(other owner) error = %v", err)
	}

	plain := n
	plain.DedupKey = ""
	for i := 0; i < 2; i++ {
		if _, err := repo.CreateNotification(ctx, plain); err != nil {
			t.Fatalf("CreateNotification(no key) error = %v", err)
		}
	}
	if all, _ := repo.ListNotifications(ctx, "u1", false); len(all) != 3 {
		t.Errorf("notifications = %d, want 3", len(all))
	}
}
