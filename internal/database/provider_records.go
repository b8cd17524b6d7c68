package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// UpsertProviderRecord stores the latest payload for one upstream record.
// A payload older than the stored one is ignored so replays cannot roll a
// record back.
func (db *DB) UpsertProviderRecord(ctx context.Context, userID string, kind models.SourceKind, refID string, payload []byte, observedAt time.Time) error {
	query := `
		INSERT INTO provider_records (user_id, source_kind, ref_id, payload, observed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, source_kind, ref_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			observed_at = EXCLUDED.observed_at,
			updated_at = NOW()
		WHERE provider_records.observed_at <= EXCLUDED.observed_at
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, string(kind), refID, string(payload), observedAt); err != nil {
		return fmt.Errorf("failed to upsert %s record %s: %w", kind, refID, err)
	}
	return nil
}

// DeleteProviderRecord removes a record the provider no longer reports
func (db *DB) DeleteProviderRecord(ctx context.Context, userID string, kind models.SourceKind, refID string) error {
	query := `DELETE FROM provider_records WHERE user_id = $1 AND source_kind = $2 AND ref_id = $3`
	if _, err := db.conn.ExecContext(ctx, query, userID, string(kind), refID); err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", kind, refID, err)
	}
	return nil
}

// ListProviderRecords loads every stored record for a user, grouped by source kind.
// Rows that fail to decode are skipped.
func (db *DB) ListProviderRecords(ctx context.Context, userID string) (models.Records, error) {
	query := `
		SELECT source_kind, ref_id, payload
		FROM provider_records
		WHERE user_id = $1
		ORDER BY source_kind, ref_id
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return models.Records{}, fmt.Errorf("failed to list provider records: %w", err)
	}
	defer rows.Close()

	var records models.Records
	for rows.Next() {
		var kind, refID string
		var payload []byte
		if err := rows.Scan(&kind, &refID, &payload); err != nil {
			return models.Records{}, fmt.Errorf("failed to scan provider record: %w", err)
		}
		if err := appendRecord(&records, models.SourceKind(kind), payload); err != nil {
			log.Printf("Warning: skipping %s record %s for %s: %v", kind, refID, userID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return models.Records{}, fmt.Errorf("failed to iterate provider records: %w", err)
	}
	return records, nil
}

func appendRecord(records *models.Records, kind models.SourceKind, payload []byte) error {
	switch kind {
	case models.SourceGuardian:
		var r models.GuardianFinding
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		records.Guardian = append(records.Guardian, r)
	case models.SourceHunter:
		var r models.HunterOpportunity
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		records.Hunter = append(records.Hunter, r)
	case models.SourcePortfolio:
		var r models.PortfolioDelta
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		records.Portfolio = append(records.Portfolio, r)
	case models.SourceActionCenter:
		var r models.ActionCenterItem
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		records.ActionCenter = append(records.ActionCenter, r)
	case models.SourceProof:
		var r models.ProofReceipt
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		records.Proof = append(records.Proof, r)
	default:
		return fmt.Errorf("unknown source kind %q", kind)
	}
	return nil
}
