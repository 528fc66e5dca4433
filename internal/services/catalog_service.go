package services

import (
	"context"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// CatalogService manages the accounts and categories transactions refer to.
type CatalogService struct {
	accounts   storage.AccountStore
	categories storage.CategoryStore
}

func NewCatalogService(accounts storage.AccountStore, categories storage.CategoryStore) *CatalogService {
	return &CatalogService{accounts: accounts, categories: categories}
}

func (s *CatalogService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	saved, err := s.accounts.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, classify("create account", err)
	}
	return saved, nil
}

func (s *CatalogService) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	as, err := s.accounts.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	return as, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.categories.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, classify("create category", err)
	}
	return saved, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	cs, err := s.categories.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, classify("list categories", err)
	}
	return cs, nil
}
