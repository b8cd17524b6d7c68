package scoring

import "time"

// RecentlyShownTTL is how long a shown action keeps its duplicate penalty.
const RecentlyShownTTL = 2 * time.Hour

// DuplicatePenaltyValue is applied to actions shown within the TTL.
const DuplicatePenaltyValue = -30

// ShownSet maps dedupe keys to the time they were last shown to a user.
// It is loaded per request and passed in; nothing here mutates it.
type ShownSet map[string]time.Time

// WasShownRecently reports whether key was shown within the TTL before now.
func (s ShownSet) WasShownRecently(key string, now time.Time) bool {
	shownAt, ok := s[key]
	if !ok {
		return false
	}
	return now.Sub(shownAt) < RecentlyShownTTL
}

// DuplicatePenalty returns the penalty for key, or zero.
func DuplicatePenalty(key string, shown ShownSet, now time.Time) int {
	if shown.WasShownRecently(key, now) {
		return DuplicatePenaltyValue
	}
	return 0
}
