package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// ReserveNotification reads the user's recent sends and records send when
// approve accepts them. A transaction-scoped advisory lock on the user id
// serializes concurrent reservations for the same user.
func (db *DB) ReserveNotification(ctx context.Context, send models.NotificationSend, since time.Time,
	approve func(recent []models.NotificationSend) bool) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, send.UserID); err != nil {
		return false, fmt.Errorf("failed to lock send log for %s: %w", send.UserID, err)
	}

	recent, err := listSends(ctx, tx, send.UserID, since)
	if err != nil {
		return false, err
	}
	if !approve(recent) {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit send log read for %s: %w", send.UserID, err)
		}
		return false, nil
	}

	if err := insertSend(ctx, tx, send); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit notification %s: %w", send.ID, err)
	}
	return true, nil
}

// RecordNotification appends a send to the log
func (db *DB) RecordNotification(ctx context.Context, send models.NotificationSend) error {
	return insertSend(ctx, db.conn, send)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listSends(ctx context.Context, q execQuerier, userID string, since time.Time) ([]models.NotificationSend, error) {
	query := `
		SELECT id, user_id, category, sent_at
		FROM notification_sends
		WHERE user_id = $1 AND sent_at > $2
		ORDER BY sent_at
	`
	rows, err := q.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification sends: %w", err)
	}
	defer rows.Close()

	var sends []models.NotificationSend
	for rows.Next() {
		var s models.NotificationSend
		var category string
		if err := rows.Scan(&s.ID, &s.UserID, &category, &s.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification send: %w", err)
		}
		s.Category = models.NotificationCategory(category)
		sends = append(sends, s)
	}
	return sends, rows.Err()
}

func insertSend(ctx context.Context, q execQuerier, send models.NotificationSend) error {
	query := `
		INSERT INTO notification_sends (id, user_id, category, sent_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.ExecContext(ctx, query, send.ID, send.UserID, string(send.Category), send.SentAt); err != nil {
		return fmt.Errorf("failed to record notification %s: %w", send.ID, err)
	}
	return nil
}
