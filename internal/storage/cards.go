package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

const cardColumns = `id, owner_id, name, credit_limit_cents, current_balance_cents, cut_off_day,
	payment_due_day, interest_rate, created_at, updated_at`

func scanCard(s scanner) (core.CreditCard, error) {
	var (
		c                    core.CreditCard
		rate                 sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreditLimit.Cents, &c.CurrentBalance.Cents,
		&c.CutOffDay, &c.PaymentDueDay, &rate, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	if rate.Valid && rate.String != "" {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return c, fmt.Errorf("parse interest_rate: %w", err)
		}
		c.InterestRate = &d
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return c, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return c, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	now := r.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	var rate sql.NullString
	if c.InterestRate != nil {
		rate = sql.NullString{String: c.InterestRate.String(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_cards (owner_id, name, credit_limit_cents, current_balance_cents, cut_off_day,
			payment_due_day, interest_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OwnerID, c.Name, c.CreditLimit.Cents, c.CurrentBalance.Cents, c.CutOffDay, c.PaymentDueDay,
		rate, formatTime(now), formatTime(now))
	if err != nil {
		return c, fmt.Errorf("insert credit card: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return c, fmt.Errorf("credit card id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, ownerID string, id int64) (core.CreditCard, error) {
	return readCard(ctx, r.db, ownerID, id)
}

func (r *SQLiteRepository) ListCards(ctx context.Context, ownerID string) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query credit cards: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCardOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM credit_cards WHERE current_balance_cents > 0 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("query card owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (r *SQLiteRepository) ListCardTransactions(ctx context.Context, ownerID string, cardID int64) ([]core.CreditCardTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, card_id, owner_id, amount_cents, description, installments,
			installment_amount_cents, is_pending, date, created_at
		FROM credit_card_transactions
		WHERE card_id = ? AND owner_id = ?
		ORDER BY date DESC, id DESC`, cardID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query card transactions: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCardTransaction
	for rows.Next() {
		var (
			t                 core.CreditCardTransaction
			installmentAmount sql.NullInt64
			date, createdAt   string
		)
		if err := rows.Scan(&t.ID, &t.CardID, &t.OwnerID, &t.Amount.Cents, &t.Description, &t.Installments,
			&installmentAmount, &t.IsPending, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("scan card transaction: %w", err)
		}
		if installmentAmount.Valid {
			t.InstallmentAmount = &core.Money{Cents: installmentAmount.Int64}
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ApplyCardPurchase(ctx context.Context, t core.CreditCardTransaction) (core.CreditCardTransaction, core.CreditCard, error) {
	now := r.now().UTC()
	t.CreatedAt = now

	var installmentAmount sql.NullInt64
	if t.InstallmentAmount != nil {
		installmentAmount = sql.NullInt64{Int64: t.InstallmentAmount.Cents, Valid: true}
	}

	var card core.CreditCard
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE credit_cards SET current_balance_cents = current_balance_cents + ?, updated_at = ?
			WHERE id = ? AND owner_id = ?`,
			t.Amount.Cents, formatTime(now), t.CardID, t.OwnerID)
		if err != nil {
			return fmt.Errorf("update card balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("credit card %d: %w", t.CardID, core.ErrNotFound)
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO credit_card_transactions (card_id, owner_id, amount_cents, description, installments,
				installment_amount_cents, is_pending, date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.CardID, t.OwnerID, t.Amount.Cents, t.Description, t.Installments,
			installmentAmount, t.IsPending, t.Date.String(), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert card transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("card transaction id: %w", err)
		}

		card, err = readCard(ctx, tx, t.OwnerID, t.CardID)
		return err
	})
	if err != nil {
		return core.CreditCardTransaction{}, core.CreditCard{}, fmt.Errorf("apply purchase to card %d: %w", t.CardID, err)
	}
	return t, card, nil
}

func (r *SQLiteRepository) ApplyCardPayment(ctx context.Context, p core.CreditCardPayment, clearPending bool) (core.CreditCardPayment, core.CreditCard, error) {
	now := r.now().UTC()
	p.CreatedAt = now

	var card core.CreditCard
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE credit_cards SET current_balance_cents = MAX(0, current_balance_cents - ?), updated_at = ?
			WHERE id = ? AND owner_id = ?`,
			p.Amount.Cents, formatTime(now), p.CardID, p.OwnerID)
		if err != nil {
			return fmt.Errorf("update card balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("credit card %d: %w", p.CardID, core.ErrNotFound)
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO credit_card_payments (card_id, owner_id, amount_cents, payment_type, date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.CardID, p.OwnerID, p.Amount.Cents, string(p.PaymentType), p.Date.String(), formatTime(now))
		if err != nil {
			return fmt.Errorf("insert card payment: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("card payment id: %w", err)
		}
		if clearPending {
			if _, err := tx.ExecContext(ctx,
				`UPDATE credit_card_transactions SET is_pending = 0 WHERE card_id = ? AND owner_id = ? AND is_pending = 1`,
				p.CardID, p.OwnerID); err != nil {
				return fmt.Errorf("clear pending transactions: %w", err)
			}
		}

		card, err = readCard(ctx, tx, p.OwnerID, p.CardID)
		return err
	})
	if err != nil {
		return core.CreditCardPayment{}, core.CreditCard{}, fmt.Errorf("apply payment to card %d: %w", p.CardID, err)
	}
	return p, card, nil
}

func readCard(ctx context.Context, q queryer, ownerID string, cardID int64) (core.CreditCard, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND owner_id = ?`, cardID, ownerID)
	c, err := scanCard(row)
	if err != nil {
		return c, notFound("credit card", cardID, err)
	}
	return c, nil
}
