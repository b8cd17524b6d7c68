package todaycard

import "github.com/trogers1052/action-feed-service/internal/models"

// cachePolicies trades freshness for load: risky states refetch quickly,
// healthy ones settle at a minute.
var cachePolicies = map[models.TodayCardKind]models.CachePolicy{
	models.CardCriticalRisk:    {StaleTimeSec: 10, RefetchIntervalSec: 10},
	models.CardScanRequired:    {StaleTimeSec: 20, RefetchIntervalSec: 20},
	models.CardPendingActions:  {StaleTimeSec: 20, RefetchIntervalSec: 20},
	models.CardOnboarding:      {StaleTimeSec: 60, RefetchIntervalSec: 60},
	models.CardDailyPulse:      {StaleTimeSec: 60, RefetchIntervalSec: 60},
	models.CardPortfolioAnchor: {StaleTimeSec: 60, RefetchIntervalSec: 60},
}

// defaultCachePolicy covers kinds missing from the table.
var defaultCachePolicy = models.CachePolicy{StaleTimeSec: 60, RefetchIntervalSec: 60}

// CachePolicyFor returns the stale time and refetch interval for a card kind.
func CachePolicyFor(kind models.TodayCardKind) models.CachePolicy {
	if p, ok := cachePolicies[kind]; ok {
		return p
	}
	return defaultCachePolicy
}
