package ranking

import "github.com/trogers1052/action-feed-service/internal/models"

// Fixed score weights.
var (
	laneWeights = map[models.Lane]int{
		models.LaneProtect: 80,
		models.LaneEarn:    50,
		models.LaneWatch:   20,
	}
	severityWeights = map[models.Severity]int{
		models.SeverityCritical: 100,
		models.SeverityHigh:     70,
		models.SeverityMed:      40,
		models.SeverityLow:      10,
	}
	freshnessWeights = map[models.Freshness]int{
		models.FreshnessNew:      25,
		models.FreshnessUpdated:  15,
		models.FreshnessExpiring: 20,
		models.FreshnessStable:   0,
	}
)

const (
	burstBonus      = 10
	degradedPenalty = -25
)

// DefaultPreviewSize is the number of actions returned when none is configured.
const DefaultPreviewSize = 3
