package adapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// severityStep is one rung of a severity ladder. A delta reaches the rung when
// either its absolute percentage or its absolute USD value meets the threshold.
type severityStep struct {
	severity models.Severity
	pct      decimal.Decimal
	usd      decimal.Decimal
}

var valueLadder = []severityStep{
	{models.SeverityCritical, decimal.NewFromInt(50), decimal.NewFromInt(100_000)},
	{models.SeverityHigh, decimal.NewFromInt(20), decimal.NewFromInt(10_000)},
	{models.SeverityMed, decimal.NewFromInt(5), decimal.NewFromInt(1_000)},
}

// riskLadder is stricter: smaller exposure changes escalate sooner.
var riskLadder = []severityStep{
	{models.SeverityCritical, decimal.NewFromInt(20), decimal.NewFromInt(10_000)},
	{models.SeverityHigh, decimal.NewFromInt(10), decimal.NewFromInt(1_000)},
	{models.SeverityMed, decimal.NewFromInt(2), decimal.NewFromInt(100)},
}

// AdaptPortfolioDelta maps a balance, price or risk movement. Portfolio
// deltas are informational: the CTA is always Review and never executable.
func AdaptPortfolioDelta(d models.PortfolioDelta, now time.Time) (models.ActionDraft, bool) {
	lane := models.LaneWatch
	ladder := valueLadder
	if d.IsRiskRelated() {
		lane = models.LaneProtect
		ladder = riskLadder
	}

	provenance := models.ProvenanceSimulated
	if d.ConfirmedSnapshot {
		provenance = models.ProvenanceConfirmed
	}

	var chips []models.ImpactChip
	if d.IsRiskRelated() {
		pct := d.DeltaPct
		chips = appendChip(chips, models.ImpactRiskDelta, &pct)
	}

	return models.ActionDraft{
		ID:           actionID(models.SourcePortfolio, d.ID),
		Lane:         lane,
		Title:        portfolioTitle(d),
		Severity:     ladderSeverity(ladder, d.DeltaPct.Abs(), d.ValueUSD.Abs()),
		Provenance:   provenance,
		IsExecutable: false,
		CTA:          models.CTA{Kind: models.CTAReview, Href: portfolioHref(d)},
		ImpactChips:  chips,
		EventTime:    orNow(d.ObservedAt, now),
		Source:       models.Source{Kind: models.SourcePortfolio, RefID: d.ID},
		CreatedAt:    orNow(d.CreatedAt, now),
		UpdatedAt:    copyTime(d.UpdatedAt),
		Wallet:       d.Wallet,
	}, true
}

// AdaptPortfolioDeltas adapts a batch.
func AdaptPortfolioDeltas(deltas []models.PortfolioDelta, now time.Time) []models.ActionDraft {
	drafts := make([]models.ActionDraft, 0, len(deltas))
	for _, d := range deltas {
		if draft, ok := AdaptPortfolioDelta(d, now); ok {
			drafts = append(drafts, draft)
		}
	}
	return drafts
}

func ladderSeverity(ladder []severityStep, absPct, absUSD decimal.Decimal) models.Severity {
	for _, step := range ladder {
		if absPct.GreaterThanOrEqual(step.pct) || absUSD.GreaterThanOrEqual(step.usd) {
			return step.severity
		}
	}
	return models.SeverityLow
}

func portfolioTitle(d models.PortfolioDelta) string {
	asset := d.Asset
	if asset == "" {
		asset = "Portfolio"
	}
	direction := "up"
	if d.DeltaPct.IsNegative() {
		direction = "down"
	}
	switch d.Kind {
	case models.DeltaRisk:
		return fmt.Sprintf("%s risk exposure changed %s%%", asset, d.DeltaPct.StringFixed(1))
	case models.DeltaApproval:
		return fmt.Sprintf("%s approval exposure changed (%s USD)", asset, d.ValueUSD.StringFixed(2))
	default:
		return fmt.Sprintf("%s %s %s%%", asset, direction, d.DeltaPct.Abs().StringFixed(1))
	}
}

func portfolioHref(d models.PortfolioDelta) string {
	href := "/portfolio"
	if d.Wallet != "" {
		href += "/" + strings.ToLower(d.Wallet)
	}
	if d.Asset != "" {
		href += "?asset=" + d.Asset
	}
	return href
}
