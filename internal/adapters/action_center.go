package adapters

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// AdaptActionCenterItem maps a user-initiated intent. Items outside the
// pending_user, ready_to_execute and needs_review states are skipped.
func AdaptActionCenterItem(item models.ActionCenterItem, now time.Time) (models.ActionDraft, bool) {
	var provenance models.Provenance
	var cta models.CTA
	href := "/action-center/" + item.ID

	switch item.State {
	case models.ActionCenterReadyToExecute:
		provenance = models.ProvenanceConfirmed
		cta = models.CTA{Kind: models.CTAExecute, Href: href + "/execute"}
	case models.ActionCenterPendingUser:
		provenance = models.ProvenanceSimulated
		cta = models.CTA{Kind: models.CTAFix, Href: href + "/resume"}
	case models.ActionCenterNeedsReview:
		provenance = models.ProvenanceHeuristic
		cta = models.CTA{Kind: models.CTAReview, Href: href}
	default:
		return models.ActionDraft{}, false
	}

	var chips []models.ImpactChip
	chips = appendChip(chips, models.ImpactGasEstimate, item.GasEstimateUSD)
	if item.TimeEstimateSec != nil {
		secs := decimal.NewFromInt(int64(*item.TimeEstimateSec))
		chips = appendChip(chips, models.ImpactTimeEst, &secs)
	}

	severity := item.Severity
	if severity.Rank() == 0 {
		severity = models.SeverityMed
	}

	return models.ActionDraft{
		ID:           actionID(models.SourceActionCenter, item.ID),
		Lane:         models.LaneProtect,
		Title:        item.Title,
		Severity:     severity,
		Provenance:   provenance,
		IsExecutable: cta.Kind != models.CTAReview,
		CTA:          cta,
		ImpactChips:  chips,
		EventTime:    orNow(item.RequestedAt, now),
		Source:       models.Source{Kind: models.SourceActionCenter, RefID: item.ID},
		CreatedAt:    orNow(item.CreatedAt, now),
		UpdatedAt:    copyTime(item.UpdatedAt),
		Wallet:       item.Wallet,
	}, true
}

// AdaptActionCenterItems adapts a batch.
func AdaptActionCenterItems(items []models.ActionCenterItem, now time.Time) []models.ActionDraft {
	drafts := make([]models.ActionDraft, 0, len(items))
	for _, item := range items {
		if d, ok := AdaptActionCenterItem(item, now); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}
