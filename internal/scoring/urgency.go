// Package scoring holds the pure scoring primitives the ranking pipeline
// composes: urgency, freshness, relevance and the duplicate penalty.
package scoring

import (
	"math"
	"time"
)

const (
	urgentWindow   = 24 * time.Hour
	expiringWindow = 72 * time.Hour
)

// Urgency maps time-to-expiry onto 0..100.
//
//	no expiry        -> 0
//	already expired  -> 100
//	< 24h remaining  -> 90..100, closer is higher
//	24h..72h         -> 60..89, closer is higher
//	>= 72h           -> 0
func Urgency(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	remaining := expiresAt.Sub(now)
	switch {
	case remaining <= 0:
		return 100
	case remaining < urgentWindow:
		frac := float64(remaining) / float64(urgentWindow)
		return int(math.Round(100 - 10*frac))
	case remaining < expiringWindow:
		frac := float64(remaining-urgentWindow) / float64(expiringWindow-urgentWindow)
		return int(math.Round(89 - 29*frac))
	default:
		return 0
	}
}
