// Package pulse builds the once-a-day digest of what changed since the user
// last looked, and persists it so every read of the same day agrees.
package pulse

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/adapters"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/scoring"
)

const (
	MaxRowsPerCategory = 3
	MaxRows            = 8

	expiringWindow = 72 * time.Hour
	dateLayout     = "2006-01-02"
)

// Request is one pulse generation for a user.
type Request struct {
	UserID       string
	Timezone     string
	LastOpenedAt *time.Time
	Records      models.Records
	Now          time.Time
}

// category selects and orders candidate drafts for one pulse section.
type category struct {
	kind   models.PulseKind
	accept func(d models.ActionDraft, since, now time.Time) bool
	less   func(a, b models.ActionDraft) int
}

// categories is in output priority order.
var categories = []category{
	{
		kind: models.PulseExpiringOpportunity,
		accept: func(d models.ActionDraft, _, now time.Time) bool {
			if d.Source.Kind != models.SourceHunter || d.ExpiresAt == nil {
				return false
			}
			remaining := d.ExpiresAt.Sub(now)
			return remaining > 0 && remaining < expiringWindow
		},
		less: soonestFirst,
	},
	{
		kind: models.PulseNewItem,
		accept: func(d models.ActionDraft, since, _ time.Time) bool {
			return d.EventTime.After(since)
		},
		less: newestFirst,
	},
	{
		kind: models.PulseUpdatedItem,
		accept: func(d models.ActionDraft, since, _ time.Time) bool {
			return scoring.IsUpdatedSince(d.CreatedAt, d.UpdatedAt, since)
		},
		less: recentlyUpdatedFirst,
	},
	{
		kind: models.PulsePortfolioDelta,
		accept: func(d models.ActionDraft, _, _ time.Time) bool {
			return d.Source.Kind == models.SourcePortfolio &&
				(d.Severity == models.SeverityHigh || d.Severity == models.SeverityCritical)
		},
		less: severeFirst,
	},
	{
		kind: models.PulseGuardianDelta,
		accept: func(d models.ActionDraft, since, _ time.Time) bool {
			return d.Source.Kind == models.SourceGuardian &&
				d.Severity != models.SeverityCritical &&
				d.EventTime.After(since)
		},
		less: newestFirst,
	},
	{
		kind: models.PulseProofReceipt,
		accept: func(d models.ActionDraft, since, _ time.Time) bool {
			return d.Source.Kind == models.SourceProof && d.EventTime.After(since)
		},
		less: newestFirst,
	},
}

// Generate builds the pulse for the request. It is pure: the same request
// always produces the same pulse.
func Generate(req Request) models.Pulse {
	loc, tz := location(req.Timezone)
	since := models.AdapterContext{LastOpenedAt: req.LastOpenedAt}.EffectiveLastOpened(req.Now)

	drafts := adapters.AdaptAll(req.Records, req.Now)
	taken := make(map[string]bool)
	rows := make([]models.PulseRow, 0, MaxRows)

	for priority, cat := range categories {
		var picked []models.ActionDraft
		for _, d := range drafts {
			if !taken[d.ID] && cat.accept(d, since, req.Now) {
				picked = append(picked, d)
			}
		}
		slices.SortStableFunc(picked, func(a, b models.ActionDraft) int {
			if c := cat.less(a, b); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
		if len(picked) > MaxRowsPerCategory {
			picked = picked[:MaxRowsPerCategory]
		}
		for _, d := range picked {
			taken[d.ID] = true
			rows = append(rows, row(cat.kind, priority, d, req.Now))
		}
	}

	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}

	return models.Pulse{
		UserID:      req.UserID,
		Date:        LocalDate(req.Now, loc),
		Timezone:    tz,
		Rows:        rows,
		QuietDay:    len(rows) == 0,
		GeneratedAt: req.Now.UTC(),
	}
}

// LocalDate is the calendar date of now in loc.
func LocalDate(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(dateLayout)
}

// location resolves an IANA zone name. Unknown or empty names fall back to UTC.
func location(name string) (*time.Location, string) {
	if name == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, name
}

func row(kind models.PulseKind, priority int, d models.ActionDraft, now time.Time) models.PulseRow {
	return models.PulseRow{
		Kind:         kind,
		Title:        d.Title,
		Chip:         chip(kind, d, now),
		CTA:          d.CTA,
		Provenance:   d.Provenance,
		EventTime:    d.EventTime.UTC(),
		ActionID:     d.ID,
		SortPriority: priority,
	}
}

func chip(kind models.PulseKind, d models.ActionDraft, now time.Time) string {
	switch kind {
	case models.PulseExpiringOpportunity:
		return "Expires in " + remaining(d.ExpiresAt.Sub(now))
	case models.PulsePortfolioDelta, models.PulseGuardianDelta:
		return severityLabel(d.Severity)
	case models.PulseProofReceipt:
		return "Confirmed"
	}
	if len(d.ImpactChips) > 0 {
		return impactText(d.ImpactChips[0])
	}
	return ""
}

func severityLabel(s models.Severity) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func remaining(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func impactText(c models.ImpactChip) string {
	switch c.Kind {
	case models.ImpactUpsideEst:
		return fmt.Sprintf("+$%.0f upside", c.Value)
	case models.ImpactGasEstimate:
		return fmt.Sprintf("~$%.2f gas", c.Value)
	case models.ImpactTimeEst:
		return fmt.Sprintf("~%.0fs", c.Value)
	case models.ImpactRiskDelta:
		return fmt.Sprintf("risk %+.0f", c.Value)
	}
	return ""
}

func soonestFirst(a, b models.ActionDraft) int {
	return a.ExpiresAt.Compare(*b.ExpiresAt)
}

func newestFirst(a, b models.ActionDraft) int {
	return b.EventTime.Compare(a.EventTime)
}

func recentlyUpdatedFirst(a, b models.ActionDraft) int {
	return b.UpdatedAt.Compare(*a.UpdatedAt)
}

func severeFirst(a, b models.ActionDraft) int {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return rb - ra
	}
	return newestFirst(a, b)
}
