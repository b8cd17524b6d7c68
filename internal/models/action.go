package models

import "time"

// Lane groups actions by the kind of attention they need
type Lane string

const (
	LaneProtect Lane = "Protect"
	LaneEarn    Lane = "Earn"
	LaneWatch   Lane = "Watch"
)

// Severity is the attention level of an action
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMed      Severity = "med"
	SeverityLow      Severity = "low"
)

// Rank orders severities so that critical > high > med > low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMed:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Provenance is the confidence tier of the data behind an action
type Provenance string

const (
	ProvenanceConfirmed Provenance = "confirmed"
	ProvenanceSimulated Provenance = "simulated"
	ProvenanceHeuristic Provenance = "heuristic"
)

// CTAKind is the call-to-action verb
type CTAKind string

const (
	CTAFix     CTAKind = "Fix"
	CTAExecute CTAKind = "Execute"
	CTAReview  CTAKind = "Review"
)

// IsOneClick reports whether the CTA performs a change rather than opening a review.
func (k CTAKind) IsOneClick() bool {
	return k == CTAFix || k == CTAExecute
}

// CTA is the call-to-action attached to an action
type CTA struct {
	Kind CTAKind `json:"kind"`
	Href string  `json:"href"`
}

// ImpactKind identifies what an impact chip measures
type ImpactKind string

const (
	ImpactRiskDelta   ImpactKind = "risk_delta"
	ImpactGasEstimate ImpactKind = "gas_est_usd"
	ImpactTimeEst     ImpactKind = "time_est_sec"
	ImpactUpsideEst   ImpactKind = "upside_est_usd"
)

// MaxImpactChips is the most chips an action may carry
const MaxImpactChips = 2

// ImpactChip is a small numeric hint shown next to an action
type ImpactChip struct {
	Kind  ImpactKind `json:"kind"`
	Value float64    `json:"value"`
}

// SourceKind identifies the upstream provider an action came from.
// The set is closed; every switch over it must be exhaustive.
type SourceKind string

const (
	SourceGuardian     SourceKind = "guardian"
	SourceHunter       SourceKind = "hunter"
	SourcePortfolio    SourceKind = "portfolio"
	SourceActionCenter SourceKind = "action_center"
	SourceProof        SourceKind = "proof"
)

// SourceKinds lists every source kind in a fixed order.
var SourceKinds = []SourceKind{
	SourceGuardian,
	SourceHunter,
	SourcePortfolio,
	SourceActionCenter,
	SourceProof,
}

// Source points back to the upstream record
type Source struct {
	Kind  SourceKind `json:"kind"`
	RefID string     `json:"ref_id"`
}

// Freshness is the time-relative classification of an action
type Freshness string

const (
	FreshnessNew      Freshness = "new"
	FreshnessUpdated  Freshness = "updated"
	FreshnessExpiring Freshness = "expiring"
	FreshnessStable   Freshness = "stable"
)

// ActionDraft is what adapters produce. It carries internal-only timestamps
// used to compute freshness and must never be serialized to clients.
type ActionDraft struct {
	ID           string
	Lane         Lane
	Title        string
	Severity     Severity
	Provenance   Provenance
	IsExecutable bool
	CTA          CTA
	ImpactChips  []ImpactChip
	EventTime    time.Time
	ExpiresAt    *time.Time
	Source       Source

	CreatedAt time.Time
	UpdatedAt *time.Time
	// Wallet is the address the upstream record concerns, when known.
	Wallet string
}

// DedupeKey identifies a draft for recently-shown suppression.
func (d ActionDraft) DedupeKey() string {
	return DedupeKey(d.Source.Kind, d.Source.RefID, d.CTA.Kind)
}

// DedupeKey builds the composite "kind:ref:cta" key.
func DedupeKey(kind SourceKind, refID string, cta CTAKind) string {
	return string(kind) + ":" + refID + ":" + string(cta)
}

// Action is the scored, externally visible representation of a draft
type Action struct {
	ID             string       `json:"id"`
	Lane           Lane         `json:"lane"`
	Title          string       `json:"title"`
	Severity       Severity     `json:"severity"`
	Provenance     Provenance   `json:"provenance"`
	IsExecutable   bool         `json:"is_executable"`
	CTA            CTA          `json:"cta"`
	ImpactChips    []ImpactChip `json:"impact_chips"`
	EventTime      time.Time    `json:"event_time"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	Freshness      Freshness    `json:"freshness"`
	UrgencyScore   int          `json:"urgency_score"`
	RelevanceScore int          `json:"relevance_score"`
	Score          int          `json:"score"`
	Source         Source       `json:"source"`
}
