package adapters

import (
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// AdaptGuardianFinding maps a security finding. Only open findings are adapted.
func AdaptGuardianFinding(f models.GuardianFinding, now time.Time) (models.ActionDraft, bool) {
	if f.Status != models.FindingOpen {
		return models.ActionDraft{}, false
	}

	provenance := models.ProvenanceHeuristic
	if f.FromCompletedScan {
		provenance = models.ProvenanceConfirmed
	}

	cta := models.CTA{Kind: models.CTAReview, Href: "/guardian/findings/" + f.ID}
	if f.HasFixFlow && provenance != models.ProvenanceHeuristic {
		cta = models.CTA{Kind: models.CTAFix, Href: "/guardian/findings/" + f.ID + "/fix"}
	}

	var chips []models.ImpactChip
	chips = appendChip(chips, models.ImpactRiskDelta, f.RiskDelta)
	chips = appendChip(chips, models.ImpactGasEstimate, f.GasEstimateUSD)

	return models.ActionDraft{
		ID:           actionID(models.SourceGuardian, f.ID),
		Lane:         models.LaneProtect,
		Title:        f.Title,
		Severity:     guardianSeverity(f.Severity),
		Provenance:   provenance,
		IsExecutable: cta.Kind == models.CTAFix,
		CTA:          cta,
		ImpactChips:  chips,
		EventTime:    orNow(f.DetectedAt, now),
		Source:       models.Source{Kind: models.SourceGuardian, RefID: f.ID},
		CreatedAt:    orNow(f.CreatedAt, now),
		UpdatedAt:    copyTime(f.UpdatedAt),
		Wallet:       f.Wallet,
	}, true
}

// AdaptGuardianFindings adapts a batch, dropping skipped findings.
func AdaptGuardianFindings(findings []models.GuardianFinding, now time.Time) []models.ActionDraft {
	drafts := make([]models.ActionDraft, 0, len(findings))
	for _, f := range findings {
		if d, ok := AdaptGuardianFinding(f, now); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// guardianSeverity passes the four provider levels through; anything unknown
// is treated as low.
func guardianSeverity(s models.Severity) models.Severity {
	switch s {
	case models.SeverityCritical, models.SeverityHigh, models.SeverityMed, models.SeverityLow:
		return s
	default:
		return models.SeverityLow
	}
}
