package services

import (
	"context"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	catID := mustCategory(t, store, testOwner)
	pub := &recordingPublisher{}
	svc := NewTransactionService(store, store, pub)

	valid := core.Transaction{
		OwnerID: testOwner, Type: core.Expense, Amount: core.Money{Cents: 1250},
		Description: "Supermercado", Date: processorNow, CategoryID: &catID,
	}

	tests := []struct {
		name   string
		mutate func(*core.Transaction)
		kind   error
	}{
		{"valid", func(*core.Transaction) {}, nil},
		{"zero amount", func(tx *core.Transaction) { tx.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"blank description", func(tx *core.Transaction) { tx.Description = "  " }, core.ErrEmptyDescription},
		{"unknown category", func(tx *core.Transaction) { tx.CategoryID = int64Ptr(4242) }, core.ErrValidation},
		{"unknown account", func(tx *core.Transaction) { tx.AccountID = int64Ptr(4242) }, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			got, err := svc.Create(ctx, tx)
			if tt.kind != nil {
				assertKind(t, err, tt.kind)
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if got.ID == 0 {
				t.Error("Create() did not assign an id")
			}
		})
	}

	if got := pub.types(); len(got) != 1 || got[0] != amqp.EventTransactionCreated {
		t.Errorf("published %v, want one transaction.created", got)
	}
}

func TestTransactionService_MonthSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewTransactionService(store, store, nil)

	add := func(typ core.TransactionType, cents int64, when time.Time) {
		t.Helper()
		_, err := svc.Create(ctx, core.Transaction{
			OwnerID: testOwner, Type: typ, Amount: core.Money{Cents: cents}, Description: "x", Date: when,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	add(core.Income, 200000, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	add(core.Expense, 50000, time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC))
	add(core.Expense, 999, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	s, err := svc.MonthSummary(ctx, testOwner, 2024, 3)
	if err != nil {
		t.Fatalf("MonthSummary() error = %v", err)
	}
	if s.Income.Cents != 200000 || s.Expenses.Cents != 50000 || s.Net().Cents != 150000 {
		t.Errorf("MonthSummary() = %+v", s)
	}
}
