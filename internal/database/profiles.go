package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// GetProfile returns the stored profile for a user
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT user_id, timezone, dnd_start, dnd_end, last_opened_at, last_scan_at,
		       onboarded, saved_refs, alert_tags, wallet_roles, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	var p models.UserProfile
	var lastOpened, lastScan sql.NullTime
	var walletRoles []byte

	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Timezone, &p.DND.Start, &p.DND.End, &lastOpened, &lastScan,
		&p.Onboarded, pq.Array(&p.SavedRefs), pq.Array(&p.AlertTags), &walletRoles, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}

	if lastOpened.Valid {
		p.LastOpenedAt = &lastOpened.Time
	}
	if lastScan.Valid {
		p.LastScanAt = &lastScan.Time
	}
	if len(walletRoles) > 0 {
		if err := json.Unmarshal(walletRoles, &p.WalletRoles); err != nil {
			return nil, fmt.Errorf("failed to decode wallet roles for %s: %w", userID, err)
		}
	}
	return &p, nil
}

// UpsertPreferences stores the user-editable part of a profile. Timestamps
// written by the feed itself are left untouched.
func (db *DB) UpsertPreferences(ctx context.Context, p *models.UserProfile) error {
	roles := p.WalletRoles
	if roles == nil {
		roles = map[string]string{}
	}
	walletRoles, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to encode wallet roles: %w", err)
	}
	savedRefs := p.SavedRefs
	if savedRefs == nil {
		savedRefs = []string{}
	}
	alertTags := p.AlertTags
	if alertTags == nil {
		alertTags = []string{}
	}

	query := `
		INSERT INTO user_profiles (user_id, timezone, dnd_start, dnd_end, onboarded,
		                           saved_refs, alert_tags, wallet_roles, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			dnd_start = EXCLUDED.dnd_start,
			dnd_end = EXCLUDED.dnd_end,
			onboarded = EXCLUDED.onboarded,
			saved_refs = EXCLUDED.saved_refs,
			alert_tags = EXCLUDED.alert_tags,
			wallet_roles = EXCLUDED.wallet_roles,
			updated_at = NOW()
		RETURNING updated_at
	`
	err = db.conn.QueryRowContext(ctx, query,
		p.UserID, p.Timezone, p.DND.Start, p.DND.End, p.Onboarded,
		pq.Array(savedRefs), pq.Array(alertTags), string(walletRoles),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences for %s: %w", p.UserID, err)
	}
	return nil
}

// TouchLastOpened records a dashboard open. Older timestamps never overwrite newer ones.
func (db *DB) TouchLastOpened(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO user_profiles (user_id, last_opened_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			last_opened_at = GREATEST(user_profiles.last_opened_at, EXCLUDED.last_opened_at),
			updated_at = NOW()
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to record last opened for %s: %w", userID, err)
	}
	return nil
}

// RecordScanCompleted stores the time of the user's latest completed Guardian scan
func (db *DB) RecordScanCompleted(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO user_profiles (user_id, last_scan_at, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			last_scan_at = GREATEST(user_profiles.last_scan_at, EXCLUDED.last_scan_at),
			updated_at = NOW()
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("failed to record scan for %s: %w", userID, err)
	}
	return nil
}
