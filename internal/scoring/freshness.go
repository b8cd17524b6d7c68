package scoring

import (
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// updateTolerance absorbs clock noise between created_at and updated_at on
// records that were never actually edited.
const updateTolerance = time.Second

// FreshnessInput carries the timestamps freshness is derived from.
type FreshnessInput struct {
	ExpiresAt    *time.Time
	EventTime    time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	LastOpenedAt *time.Time
}

// Freshness classifies an item, in strict precedence:
// expiring, then new, then updated, then stable.
func Freshness(in FreshnessInput, now time.Time) models.Freshness {
	if in.ExpiresAt != nil && in.ExpiresAt.Sub(now) < expiringWindow {
		return models.FreshnessExpiring
	}

	lastOpened := now.Add(-24 * time.Hour)
	if in.LastOpenedAt != nil {
		lastOpened = *in.LastOpenedAt
	}

	if in.EventTime.After(lastOpened) {
		return models.FreshnessNew
	}
	if IsUpdatedSince(in.CreatedAt, in.UpdatedAt, lastOpened) {
		return models.FreshnessUpdated
	}
	return models.FreshnessStable
}

// IsUpdatedSince reports whether a record was edited after its creation and
// after the given instant.
func IsUpdatedSince(createdAt time.Time, updatedAt *time.Time, since time.Time) bool {
	if updatedAt == nil {
		return false
	}
	diff := updatedAt.Sub(createdAt)
	if diff < 0 {
		diff = -diff
	}
	return diff > updateTolerance && updatedAt.After(since)
}

// DraftFreshness classifies a draft against the adapter context.
func DraftFreshness(d models.ActionDraft, ctx models.AdapterContext, now time.Time) models.Freshness {
	return Freshness(FreshnessInput{
		ExpiresAt:    d.ExpiresAt,
		EventTime:    d.EventTime,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastOpenedAt: ctx.LastOpenedAt,
	}, now)
}
