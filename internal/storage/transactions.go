package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
)

const transactionColumns = `id, owner_id, type, amount_cents, category_id, account_id, description,
	date, recurrence_id, tags, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                     core.Transaction
		typ, tags             string
		categoryID, accountID sql.NullInt64
		recurrenceID          sql.NullInt64
		date, createdAt       string
	)
	err := s.Scan(&t.ID, &t.OwnerID, &typ, &t.Amount.Cents, &categoryID, &accountID, &t.Description,
		&date, &recurrenceID, &tags, &createdAt)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(typ)
	t.CategoryID = int64Ptr(categoryID)
	t.AccountID = int64Ptr(accountID)
	t.RecurrenceID = int64Ptr(recurrenceID)
	t.Tags = core.SplitTags(tags)
	if t.Date, err = parseTime(date); err != nil {
		return t, fmt.Errorf("parse date: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}

// insertTransaction writes t and applies it to the linked account, if any.
func insertTransaction(ctx context.Context, q queryer, t core.Transaction, now time.Time) (core.Transaction, error) {
	t.CreatedAt = now.UTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (owner_id, type, amount_cents, category_id, account_id, description,
			date, recurrence_id, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID, string(t.Type), t.Amount.Cents, nullInt64(t.CategoryID), nullInt64(t.AccountID),
		t.Description, formatTime(t.Date), nullInt64(t.RecurrenceID), core.JoinTags(t.Tags), formatTime(t.CreatedAt))
	if err != nil {
		return t, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return t, fmt.Errorf("transaction id: %w", err)
	}

	if t.AccountID != nil {
		res, err := q.ExecContext(ctx,
			`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND owner_id = ?`,
			t.SignedAmount().Cents, *t.AccountID, t.OwnerID)
		if err != nil {
			return t, fmt.Errorf("update account balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return t, fmt.Errorf("account %d: %w", *t.AccountID, core.ErrNotFound)
		}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = insertTransaction(ctx, tx, t, r.now())
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"recurrence_id", t.RecurrenceID)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return t, notFound("transaction", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{ownerID}
	if !f.From.IsZero() {
		q += ` AND date >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		q += ` AND date <= ?`
		args = append(args, formatTime(f.To))
	}
	if f.RecurrenceID != nil {
		q += ` AND recurrence_id = ?`
		args = append(args, *f.RecurrenceID)
	}
	if f.Type != "" {
		q += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	q += ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (owner_id, name, balance_cents, created_at) VALUES (?, ?, ?, ?)`,
		a.OwnerID, a.Name, a.Balance.Cents, formatTime(r.now()))
	if err != nil {
		return a, fmt.Errorf("insert account: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return a, fmt.Errorf("account id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, ownerID string, id int64) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, balance_cents FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID).
		Scan(&a.ID, &a.OwnerID, &a.Name, &a.Balance.Cents)
	if err != nil {
		return a, notFound("account", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, balance_cents FROM accounts WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (owner_id, name, type, created_at) VALUES (?, ?, ?, ?)`,
		c.OwnerID, c.Name, string(c.Type), formatTime(r.now()))
	if err != nil {
		return c, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return c, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, type FROM categories WHERE id = ? AND owner_id = ?`, id, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &typ)
	if err != nil {
		return c, notFound("category", id, err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, type FROM categories WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c   core.Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}
