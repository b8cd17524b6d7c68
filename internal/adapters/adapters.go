// Package adapters normalizes upstream provider records into action drafts.
// Every adapter is a pure function of its record and the supplied time.
package adapters

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// AdaptAll runs every adapter over the bundle and returns the drafts in
// source-kind order. Skipped records are dropped.
func AdaptAll(records models.Records, now time.Time) []models.ActionDraft {
	var drafts []models.ActionDraft
	for _, kind := range models.SourceKinds {
		drafts = append(drafts, AdaptKind(kind, records, now)...)
	}
	return drafts
}

// AdaptKind runs the adapter for a single source kind.
func AdaptKind(kind models.SourceKind, records models.Records, now time.Time) []models.ActionDraft {
	switch kind {
	case models.SourceGuardian:
		return AdaptGuardianFindings(records.Guardian, now)
	case models.SourceHunter:
		return AdaptHunterOpportunities(records.Hunter, now)
	case models.SourcePortfolio:
		return AdaptPortfolioDeltas(records.Portfolio, now)
	case models.SourceActionCenter:
		return AdaptActionCenterItems(records.ActionCenter, now)
	case models.SourceProof:
		return AdaptProofReceipts(records.Proof, now)
	default:
		return nil
	}
}

func actionID(kind models.SourceKind, refID string) string {
	return string(kind) + ":" + refID
}

// appendChip adds a chip when the value is known and there is room left.
func appendChip(chips []models.ImpactChip, kind models.ImpactKind, value *decimal.Decimal) []models.ImpactChip {
	if value == nil || len(chips) >= models.MaxImpactChips {
		return chips
	}
	return append(chips, models.ImpactChip{Kind: kind, Value: value.InexactFloat64()})
}

// orNow substitutes now for a missing timestamp so drafts always carry one.
func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
