package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetPulse returns the stored pulse payload for a user and local date
func (db *DB) GetPulse(ctx context.Context, userID, date string) ([]byte, bool, error) {
	query := `SELECT payload FROM daily_pulses WHERE user_id = $1 AND pulse_date = $2`

	var payload []byte
	err := db.conn.QueryRowContext(ctx, query, userID, date).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get pulse %s/%s: %w", userID, date, err)
	}
	return payload, true, nil
}

// InsertPulseIfAbsent stores a pulse payload. The first writer for a
// (user, date) wins; later inserts are no-ops.
func (db *DB) InsertPulseIfAbsent(ctx context.Context, userID, date string, payload []byte) error {
	query := `
		INSERT INTO daily_pulses (user_id, pulse_date, payload, generated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, pulse_date) DO NOTHING
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, date, payload); err != nil {
		return fmt.Errorf("failed to store pulse %s/%s: %w", userID, date, err)
	}
	return nil
}
