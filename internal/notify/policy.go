// Package notify decides whether a push notification may be sent, applying
// do-not-disturb hours and rolling 24-hour caps.
package notify

import (
	"fmt"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// Window is the rolling period the caps apply to.
const Window = 24 * time.Hour

// CombinedCap limits sends across all categories. Critical may exceed it up
// to its own cap.
const CombinedCap = 3

var categoryCaps = map[models.NotificationCategory]int{
	models.NotifyCritical:     1,
	models.NotifyDailyPulse:   1,
	models.NotifyExpiringSoon: 3,
}

// DefaultDND applies when a user has not set a window.
var DefaultDND = models.DNDWindow{Start: "22:00", End: "08:00"}

// Reason explains a decision.
type Reason string

const (
	ReasonAllowed         Reason = "allowed"
	ReasonDND             Reason = "do_not_disturb"
	ReasonCategoryCap     Reason = "category_cap"
	ReasonCombinedCap     Reason = "combined_cap"
	ReasonUnknownCategory Reason = "unknown_category"
)

// Decision is the throttle outcome.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	SendID  string `json:"send_id,omitempty"`
}

// Counts are the sends inside the rolling window.
type Counts struct {
	ByCategory map[models.NotificationCategory]int
	Total      int
}

// IsKnownCategory reports whether c has a cap.
func IsKnownCategory(c models.NotificationCategory) bool {
	_, ok := categoryCaps[c]
	return ok
}

// CountSince tallies sends within Window of now.
func CountSince(sends []models.NotificationSend, now time.Time) Counts {
	counts := Counts{ByCategory: make(map[models.NotificationCategory]int)}
	cutoff := now.Add(-Window)
	for _, s := range sends {
		if s.SentAt.After(cutoff) && !s.SentAt.After(now) {
			counts.ByCategory[s.Category]++
			counts.Total++
		}
	}
	return counts
}

// Decide applies, in order: do-not-disturb (not for critical), the category
// cap, then the combined cap (not for critical).
func Decide(category models.NotificationCategory, counts Counts, dnd models.DNDWindow, localNow time.Time) Decision {
	limit, ok := categoryCaps[category]
	if !ok {
		return Decision{Reason: ReasonUnknownCategory}
	}
	if category != models.NotifyCritical && InDND(dnd, localNow) {
		return Decision{Reason: ReasonDND}
	}
	if counts.ByCategory[category] >= limit {
		return Decision{Reason: ReasonCategoryCap}
	}
	if category != models.NotifyCritical && counts.Total >= CombinedCap {
		return Decision{Reason: ReasonCombinedCap}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// InDND reports whether the local clock time falls inside the window. The
// window is half-open [start, end) and may cross midnight. An empty or
// malformed window falls back to DefaultDND; equal bounds disable it.
func InDND(w models.DNDWindow, local time.Time) bool {
	start, errStart := parseClock(w.Start)
	end, errEnd := parseClock(w.End)
	if errStart != nil || errEnd != nil {
		start, _ = parseClock(DefaultDND.Start)
		end, _ = parseClock(DefaultDND.End)
	}
	if start == end {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// ValidateDND checks that both bounds are HH:MM clock times.
func ValidateDND(w models.DNDWindow) error {
	if _, err := parseClock(w.Start); err != nil {
		return fmt.Errorf("invalid dnd start: %w", err)
	}
	if _, err := parseClock(w.End); err != nil {
		return fmt.Errorf("invalid dnd end: %w", err)
	}
	return nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
