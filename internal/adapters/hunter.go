package adapters

import (
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// executableOpportunityTypes are the opportunity types that may carry a
// one-click Execute CTA once eligibility is confirmed.
var executableOpportunityTypes = map[string]bool{
	"airdrop": true,
	"staking": true,
	"yield":   true,
	"quest":   true,
}

// simulatedTrustFloor is the trust score at which unconfirmed eligibility is
// still treated as simulated rather than heuristic.
const simulatedTrustFloor = 70

// AdaptHunterOpportunity maps an opportunity. It is the only adapter that
// propagates an expiry.
func AdaptHunterOpportunity(o models.HunterOpportunity, now time.Time) (models.ActionDraft, bool) {
	provenance := models.ProvenanceHeuristic
	switch {
	case o.EligibilityConfirmed:
		provenance = models.ProvenanceConfirmed
	case o.TrustScore >= simulatedTrustFloor:
		provenance = models.ProvenanceSimulated
	}

	cta := models.CTA{Kind: models.CTAReview, Href: "/hunter/opportunities/" + o.ID}
	if provenance == models.ProvenanceConfirmed && executableOpportunityTypes[strings.ToLower(o.Type)] {
		cta = models.CTA{Kind: models.CTAExecute, Href: "/hunter/opportunities/" + o.ID + "/execute"}
	}

	var chips []models.ImpactChip
	chips = appendChip(chips, models.ImpactUpsideEst, o.UpsideEstimateUSD)
	chips = appendChip(chips, models.ImpactGasEstimate, o.GasEstimateUSD)

	return models.ActionDraft{
		ID:           actionID(models.SourceHunter, o.ID),
		Lane:         models.LaneEarn,
		Title:        o.Title,
		Severity:     hunterSeverity(o),
		Provenance:   provenance,
		IsExecutable: cta.Kind == models.CTAExecute,
		CTA:          cta,
		ImpactChips:  chips,
		EventTime:    orNow(o.PublishedAt, now),
		ExpiresAt:    copyTime(o.ExpiresAt),
		Source:       models.Source{Kind: models.SourceHunter, RefID: o.ID},
		CreatedAt:    orNow(o.CreatedAt, now),
		UpdatedAt:    copyTime(o.UpdatedAt),
		Wallet:       o.Wallet,
	}, true
}

// AdaptHunterOpportunities adapts a batch.
func AdaptHunterOpportunities(opps []models.HunterOpportunity, now time.Time) []models.ActionDraft {
	drafts := make([]models.ActionDraft, 0, len(opps))
	for _, o := range opps {
		if d, ok := AdaptHunterOpportunity(o, now); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// hunterSeverity is inverse to trust: a low-trust opportunity deserves more
// attention before the user acts on it.
func hunterSeverity(o models.HunterOpportunity) models.Severity {
	switch trustLevel(o) {
	case models.TrustLow:
		return models.SeverityHigh
	case models.TrustMedium:
		return models.SeverityMed
	default:
		return models.SeverityLow
	}
}

func trustLevel(o models.HunterOpportunity) models.TrustLevel {
	switch o.TrustLevel {
	case models.TrustHigh, models.TrustMedium, models.TrustLow:
		return o.TrustLevel
	}
	switch {
	case o.TrustScore >= 80:
		return models.TrustHigh
	case o.TrustScore >= 60:
		return models.TrustMedium
	default:
		return models.TrustLow
	}
}
