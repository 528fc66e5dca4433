package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finanzas/internal/core"
)

const recurrenceColumns = `id, owner_id, type, amount_cents, category_id, account_id, description,
	frequency, day_of_month, day_of_week, start_date, end_date, next_execution, last_executed,
	is_active, auto_create, created_at, updated_at`

func scanRecurrence(s scanner) (core.Recurrence, error) {
	var (
		r                     core.Recurrence
		categoryID, accountID sql.NullInt64
		dayOfMonth, dayOfWeek sql.NullInt64
		start, next           string
		end, lastExecuted     sql.NullString
		createdAt, updatedAt  string
		typ, freq             string
	)
	err := s.Scan(&r.ID, &r.OwnerID, &typ, &r.Amount.Cents, &categoryID, &accountID, &r.Description,
		&freq, &dayOfMonth, &dayOfWeek, &start, &end, &next, &lastExecuted,
		&r.IsActive, &r.AutoCreate, &createdAt, &updatedAt)
	if err != nil {
		return r, err
	}
	r.Type = core.TransactionType(typ)
	r.Frequency = core.Frequency(freq)
	r.CategoryID = int64Ptr(categoryID)
	r.AccountID = int64Ptr(accountID)
	r.DayOfMonth = intPtr(dayOfMonth)
	r.DayOfWeek = intPtr(dayOfWeek)

	if r.StartDate, err = core.ParseDate(start); err != nil {
		return r, fmt.Errorf("parse start_date: %w", err)
	}
	if r.NextExecution, err = core.ParseDate(next); err != nil {
		return r, fmt.Errorf("parse next_execution: %w", err)
	}
	if r.EndDate, err = parseNullDate(end); err != nil {
		return r, fmt.Errorf("parse end_date: %w", err)
	}
	if r.LastExecuted, err = parseNullTime(lastExecuted); err != nil {
		return r, fmt.Errorf("parse last_executed: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return r, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return r, fmt.Errorf("parse updated_at: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) CreateRecurrence(ctx context.Context, rec core.Recurrence) (core.Recurrence, error) {
	now := r.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (owner_id, type, amount_cents, category_id, account_id,
			description, frequency, day_of_month, day_of_week, start_date, end_date, next_execution,
			is_active, auto_create, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, string(rec.Type), rec.Amount.Cents, nullInt64(rec.CategoryID), nullInt64(rec.AccountID),
		rec.Description, string(rec.Frequency), nullInt(rec.DayOfMonth), nullInt(rec.DayOfWeek),
		rec.StartDate.String(), nullDate(rec.EndDate), rec.NextExecution.String(),
		rec.IsActive, rec.AutoCreate, formatTime(now), formatTime(now))
	if err != nil {
		return rec, fmt.Errorf("insert recurrence: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return rec, fmt.Errorf("recurrence id: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetRecurrence(ctx context.Context, ownerID string, id int64) (core.Recurrence, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurrenceColumns+` FROM recurring_transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	rec, err := scanRecurrence(row)
	if err != nil {
		return rec, notFound("recurrence", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListRecurrences(ctx context.Context, ownerID string) ([]core.Recurrence, error) {
	return r.queryRecurrences(ctx,
		`SELECT `+recurrenceColumns+` FROM recurring_transactions WHERE owner_id = ? ORDER BY id`, ownerID)
}

func (r *SQLiteRepository) ListDueRecurrences(ctx context.Context, ownerID string, asOf time.Time, autoOnly bool) ([]core.Recurrence, error) {
	q := `SELECT ` + recurrenceColumns + ` FROM recurring_transactions
		WHERE owner_id = ? AND is_active = 1 AND next_execution <= ?`
	if autoOnly {
		q += ` AND auto_create = 1`
	}
	q += ` ORDER BY next_execution, id`
	return r.queryRecurrences(ctx, q, ownerID, core.DateOf(asOf.UTC()).String())
}

func (r *SQLiteRepository) queryRecurrences(ctx context.Context, q string, args ...any) ([]core.Recurrence, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Recurrence
	for rows.Next() {
		rec, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeactivateRecurrence(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_active = 0, updated_at = ? WHERE id = ? AND owner_id = ?`,
		formatTime(r.now()), id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate recurrence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurrence %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListRecurrenceOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM recurring_transactions WHERE is_active = 1 AND auto_create = 1 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("query recurrence owners: %w", err)
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

func (r *SQLiteRepository) Materialize(ctx context.Context, m Materialization) (core.Transaction, error) {
	t := m.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if t, err = insertTransaction(ctx, tx, t, r.now()); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE recurring_transactions
			SET last_executed = ?, next_execution = ?, is_active = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?`,
			formatTime(m.ExecutedAt), m.NextExecution.String(), !m.Deactivate, formatTime(r.now()),
			m.RecurrenceID, t.OwnerID)
		if err != nil {
			return fmt.Errorf("advance recurrence: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("recurrence %d: %w", m.RecurrenceID, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("materialize recurrence %d: %w", m.RecurrenceID, err)
	}
	return t, nil
}
