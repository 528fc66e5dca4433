package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finanzas/internal/core"
)

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	n.CreatedAt = r.now().UTC()
	var key sql.NullString
	if n.DedupKey != "" {
		key = sql.NullString{String: n.DedupKey, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (owner_id, kind, title, message, is_read, created_at, dedup_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, dedup_key) DO NOTHING`,
		n.OwnerID, string(n.Kind), n.Title, n.Message, n.IsRead, formatTime(n.CreatedAt), key)
	if err != nil {
		return n, fmt.Errorf("insert notification: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return n, fmt.Errorf("notification %q: %w", n.DedupKey, core.ErrConflict)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return n, fmt.Errorf("notification id: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListNotifications(ctx context.Context, ownerID string, unreadOnly bool) ([]core.Notification, error) {
	q := `SELECT id, owner_id, kind, title, message, is_read, created_at FROM notifications WHERE owner_id = ?`
	if unreadOnly {
		q += ` AND is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var (
			n         core.Notification
			kind      string
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.OwnerID, &kind, &n.Title, &n.Message, &n.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = core.NotificationKind(kind)
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
	}
	return nil
}
