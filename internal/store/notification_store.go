package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nhle/robolab-console/internal/model"
)

const notificationColumns = `id, account_id, title, message, type, type_text, is_read, created_date`

// Upsert merges n into the index; a stored read flag is never cleared.
func (s *SQLiteStore) Upsert(ctx context.Context, n model.Notification) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM notifications WHERE id = ?", n.ID); err != nil {
		return false, fmt.Errorf("checking notification %s: %w", n.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id   = excluded.account_id,
			title        = excluded.title,
			message      = excluded.message,
			type         = excluded.type,
			type_text    = excluded.type_text,
			is_read      = MAX(notifications.is_read, excluded.is_read),
			created_date = excluded.created_date`,
		n.ID, n.AccountID, n.Title, n.Message, n.Type, n.TypeText,
		boolToInt(n.IsRead), n.CreatedDate.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("upserting notification %s: %w", n.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing notification %s: %w", n.ID, err)
	}
	return exists == 0, nil
}

// Replace stores server state for a batch of notifications.
func (s *SQLiteStore) Replace(ctx context.Context, items []model.Notification) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing replace statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range items {
		_, err := stmt.ExecContext(ctx,
			n.ID, n.AccountID, n.Title, n.Message, n.Type, n.TypeText,
			boolToInt(n.IsRead), n.CreatedDate.UTC(),
		)
		if err != nil {
			return fmt.Errorf("replacing notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// MarkRead flags a single notification as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// MarkAllRead flags every notification of an account as read.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE account_id = ? AND is_read = 0", accountID,
	)
	if err != nil {
		return fmt.Errorf("marking notifications of %s as read: %w", accountID, err)
	}
	return nil
}

// Remove deletes a notification.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// Prune deletes every notification of an account.
func (s *SQLiteStore) Prune(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("pruning notifications of %s: %w", accountID, err)
	}
	return nil
}

// Get retrieves a notification by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Notification, bool, error) {
	var n model.Notification
	err := s.db.GetContext(ctx, &n,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, false, nil
	}
	if err != nil {
		return model.Notification{}, false, fmt.Errorf("querying notification %s: %w", id, err)
	}
	return n, true, nil
}

// List returns an account's notifications, newest first.
func (s *SQLiteStore) List(ctx context.Context, accountID string) ([]model.Notification, error) {
	out := []model.Notification{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE account_id = ?
		ORDER BY created_date DESC, id DESC`, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications of %s: %w", accountID, err)
	}
	return out, nil
}

// UnreadCount counts the unread notifications of an account.
func (s *SQLiteStore) UnreadCount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE account_id = ? AND is_read = 0", accountID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications of %s: %w", accountID, err)
	}
	return count, nil
}
