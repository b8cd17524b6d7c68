// Package todaycard resolves the single headline card shown at the top of the
// dashboard and the cache cadence that goes with it.
package todaycard

import (
	"fmt"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// Inputs are the counters the card is resolved from. The first five decide the
// kind; the rest only fill in the card text.
type Inputs struct {
	OnboardingNeeded    bool
	ScanState           string // missing, stale, fresh
	CriticalRiskCount   int
	PendingActionsCount int
	DailyPulseAvailable bool

	PulseRowCount int
	NewSinceLast  int
	WalletCount   int
	LastScanAt    *time.Time
	Now           time.Time
}

// Resolve picks the card kind. The first matching rule wins; no state is kept
// between calls.
func Resolve(in Inputs) models.TodayCardKind {
	switch {
	case in.OnboardingNeeded:
		return models.CardOnboarding
	case in.ScanState == models.ScanMissing || in.ScanState == models.ScanStale:
		return models.CardScanRequired
	case in.CriticalRiskCount > 0:
		return models.CardCriticalRisk
	case in.PendingActionsCount > 0:
		return models.CardPendingActions
	case in.DailyPulseAvailable:
		return models.CardDailyPulse
	default:
		return models.CardPortfolioAnchor
	}
}

// Build resolves the kind and fills in the card content.
func Build(in Inputs) models.TodayCard {
	kind := Resolve(in)
	card := models.TodayCard{Kind: kind}

	switch kind {
	case models.CardOnboarding:
		card.AnchorMetric = "Welcome"
		card.Context = "Connect a wallet to start monitoring risk and opportunities"
		card.PrimaryCTA = models.CardCTA{Label: "Connect wallet", Href: "/onboarding"}
		card.SecondaryCTA = &models.CardCTA{Label: "Take the tour", Href: "/onboarding/tour"}

	case models.CardScanRequired:
		card.AnchorMetric = "Scan needed"
		if in.ScanState == models.ScanStale && in.LastScanAt != nil {
			card.Context = "Last security scan was " + ago(in.Now, *in.LastScanAt)
		} else {
			card.Context = "Your wallets have not been scanned yet"
		}
		card.PrimaryCTA = models.CardCTA{Label: "Run scan", Href: "/guardian/scan"}

	case models.CardCriticalRisk:
		card.AnchorMetric = plural(in.CriticalRiskCount, "critical risk", "critical risks")
		card.Context = "Resolve these before making new transactions"
		card.PrimaryCTA = models.CardCTA{Label: "Review risks", Href: "/guardian"}
		card.SecondaryCTA = &models.CardCTA{Label: "View all actions", Href: "/actions"}

	case models.CardPendingActions:
		card.AnchorMetric = plural(in.PendingActionsCount, "pending action", "pending actions")
		card.Context = "Transactions are waiting on you"
		card.PrimaryCTA = models.CardCTA{Label: "Open Action Center", Href: "/action-center"}

	case models.CardDailyPulse:
		card.AnchorMetric = plural(in.PulseRowCount, "update today", "updates today")
		card.Context = plural(in.NewSinceLast, "new item", "new items") + " since your last visit"
		card.PrimaryCTA = models.CardCTA{Label: "Read pulse", Href: "/pulse"}
		card.SecondaryCTA = &models.CardCTA{Label: "View all actions", Href: "/actions"}

	default:
		card.AnchorMetric = plural(in.WalletCount, "wallet monitored", "wallets monitored")
		card.Context = "All clear. Nothing needs your attention"
		card.PrimaryCTA = models.CardCTA{Label: "View portfolio", Href: "/portfolio"}
	}
	return card
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func ago(now, then time.Time) string {
	d := now.Sub(then)
	switch {
	case d < time.Hour:
		return "less than an hour ago"
	case d < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}

// ScanState derives the Guardian scan state from the last completed scan.
func ScanState(lastScanAt *time.Time, staleAfter time.Duration, now time.Time) string {
	if lastScanAt == nil {
		return models.ScanMissing
	}
	if now.Sub(*lastScanAt) > staleAfter {
		return models.ScanStale
	}
	return models.ScanFresh
}
