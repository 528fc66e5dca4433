package services

import (
	"context"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCatalogService(store, store)

	if _, err := svc.CreateAccount(ctx, core.Account{OwnerID: testOwner, Name: " "}); err == nil {
		t.Fatal("CreateAccount() accepted a blank name")
	} else {
		assertKind(t, err, core.ErrValidation)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{OwnerID: testOwner, Name: "Sueldo", Type: "OTHER"}); err == nil {
		t.Fatal("CreateCategory() accepted an unknown type")
	} else {
		assertKind(t, err, core.ErrValidation)
	}

	if _, err := svc.CreateAccount(ctx, core.Account{OwnerID: testOwner, Name: "Cuenta corriente"}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{OwnerID: testOwner, Name: "Sueldo", Type: core.Income}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{OwnerID: "someone-else", Name: "Ocio", Type: core.Expense}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	accounts, err := svc.ListAccounts(ctx, testOwner)
	if err != nil || len(accounts) != 1 {
		t.Errorf("ListAccounts() = %v, %v; want 1 account", accounts, err)
	}
	categories, err := svc.ListCategories(ctx, testOwner)
	if err != nil || len(categories) != 1 || categories[0].Name != "Sueldo" {
		t.Errorf("ListCategories() = %v, %v; want only Sueldo", categories, err)
	}
}
