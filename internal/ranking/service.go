// Package ranking turns action drafts into the bounded, deterministically
// ordered preview. It is the only writer of the derived action fields.
package ranking

import (
	"slices"
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/scoring"
)

// Input is everything one ranking run reads. None of it is mutated.
type Input struct {
	Drafts  []models.ActionDraft
	Context models.AdapterContext
	// Shown is the user's recently-shown set.
	Shown scoring.ShownSet
	// BurstKeys holds dedupe keys an upstream burst detector flagged.
	BurstKeys map[string]bool
	Now       time.Time
}

// Result is the outcome of a ranking run.
type Result struct {
	// Preview is the truncated, ordered list shown to the user.
	Preview []models.Action
	// Ranked is the full ordered candidate list before truncation.
	Ranked   []models.Action
	Counters models.Counters
}

// Service ranks drafts. It holds no mutable state and is safe for concurrent use.
type Service struct {
	previewSize int
}

// NewService creates a Service. A non-positive preview size falls back to the default.
func NewService(previewSize int) *Service {
	if previewSize <= 0 {
		previewSize = DefaultPreviewSize
	}
	return &Service{previewSize: previewSize}
}

// PreviewSize returns the configured truncation size.
func (s *Service) PreviewSize() int {
	return s.previewSize
}

// scored pairs a gated draft with its derived fields during a run.
type scored struct {
	draft     models.ActionDraft
	freshness models.Freshness
	urgency   int
	relevance int
	score     int
}

// Rank runs the pipeline in its fixed order: provenance gating, candidate
// selection, score composition, sort, truncation.
func (s *Service) Rank(in Input) Result {
	candidates := make([]scored, 0, len(in.Drafts))
	for _, d := range in.Drafts {
		d = Gate(d, in.Context.Degraded)
		if !IsEligible(d) {
			continue
		}
		candidates = append(candidates, s.score(d, in))
	}

	slices.SortFunc(candidates, compare)

	result := Result{Ranked: make([]models.Action, 0, len(candidates))}
	for _, c := range candidates {
		result.Ranked = append(result.Ranked, finalize(c))
		countInto(&result.Counters, c)
	}
	n := min(s.previewSize, len(result.Ranked))
	result.Preview = result.Ranked[:n:n]
	return result
}

// Gate forces low-confidence or degraded one-click CTAs down to Review.
func Gate(d models.ActionDraft, degraded bool) models.ActionDraft {
	if !d.CTA.Kind.IsOneClick() {
		d.IsExecutable = false
		return d
	}
	if d.Provenance == models.ProvenanceHeuristic || degraded {
		d.CTA.Kind = models.CTAReview
		d.IsExecutable = false
	}
	return d
}

// IsEligible keeps Review CTAs and executable Fix/Execute CTAs.
func IsEligible(d models.ActionDraft) bool {
	if d.CTA.Kind == models.CTAReview {
		return true
	}
	return d.CTA.Kind.IsOneClick() && d.IsExecutable
}

func (s *Service) score(d models.ActionDraft, in Input) scored {
	c := scored{
		draft:     d,
		freshness: scoring.DraftFreshness(d, in.Context, in.Now),
		urgency:   scoring.Urgency(d.ExpiresAt, in.Now),
		relevance: scoring.Relevance(d, in.Context),
	}

	key := d.DedupeKey()
	total := laneWeights[d.Lane] +
		severityWeights[d.Severity] +
		c.urgency +
		freshnessWeights[c.freshness] +
		c.relevance
	if in.BurstKeys[key] {
		total += burstBonus
	}
	if in.Context.Degraded {
		total += degradedPenalty
	}
	total += scoring.DuplicatePenalty(key, in.Shown, in.Now)

	c.score = total
	return c
}

// compare orders by score descending, then severity, expiry, relevance and
// event time. The id comparison only keeps otherwise-equal items stable.
func compare(a, b scored) int {
	if a.score != b.score {
		return b.score - a.score
	}
	if ra, rb := a.draft.Severity.Rank(), b.draft.Severity.Rank(); ra != rb {
		return rb - ra
	}
	if c := compareExpiry(a.draft.ExpiresAt, b.draft.ExpiresAt); c != 0 {
		return c
	}
	if a.relevance != b.relevance {
		return b.relevance - a.relevance
	}
	if !a.draft.EventTime.Equal(b.draft.EventTime) {
		if a.draft.EventTime.After(b.draft.EventTime) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.draft.ID, b.draft.ID)
}

// compareExpiry prefers the sooner expiry; an item with an expiry beats one without.
func compareExpiry(a, b *time.Time) int {
	switch {
	case a != nil && b != nil:
		return a.Compare(*b)
	case a != nil:
		return -1
	case b != nil:
		return 1
	default:
		return 0
	}
}

// finalize strips the internal-only draft fields and writes the derived ones.
func finalize(c scored) models.Action {
	d := c.draft
	chips := make([]models.ImpactChip, 0, len(d.ImpactChips))
	for i, chip := range d.ImpactChips {
		if i == models.MaxImpactChips {
			break
		}
		chips = append(chips, chip)
	}
	var expires *time.Time
	if d.ExpiresAt != nil {
		v := *d.ExpiresAt
		expires = &v
	}

	return models.Action{
		ID:             d.ID,
		Lane:           d.Lane,
		Title:          d.Title,
		Severity:       d.Severity,
		Provenance:     d.Provenance,
		IsExecutable:   d.IsExecutable && d.Provenance != models.ProvenanceHeuristic && d.CTA.Kind != models.CTAReview,
		CTA:            d.CTA,
		ImpactChips:    chips,
		EventTime:      d.EventTime,
		ExpiresAt:      expires,
		Freshness:      c.freshness,
		UrgencyScore:   c.urgency,
		RelevanceScore: c.relevance,
		Score:          c.score,
		Source:         d.Source,
	}
}

func countInto(counters *models.Counters, c scored) {
	switch c.freshness {
	case models.FreshnessNew:
		counters.NewSinceLast++
	case models.FreshnessExpiring:
		counters.ExpiringSoon++
	}
	if c.draft.Lane == models.LaneProtect && c.draft.Severity == models.SeverityCritical {
		counters.CriticalRisk++
	}
	if c.draft.Source.Kind == models.SourceActionCenter {
		counters.PendingActions++
	}
}
