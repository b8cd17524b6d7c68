package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuardianFinding is a security finding from the Guardian scanner
type GuardianFinding struct {
	ID                string           `json:"id"`
	Wallet            string           `json:"wallet"`
	Title             string           `json:"title"`
	Status            string           `json:"status"` // open, resolved, dismissed
	Severity          Severity         `json:"severity"`
	FromCompletedScan bool             `json:"from_completed_scan"`
	HasFixFlow        bool             `json:"has_fix_flow"`
	RiskDelta         *decimal.Decimal `json:"risk_delta,omitempty"`
	GasEstimateUSD    *decimal.Decimal `json:"gas_estimate_usd,omitempty"`
	DetectedAt        time.Time        `json:"detected_at"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at,omitempty"`
}

// Guardian finding statuses
const (
	FindingOpen = "open"
)

// TrustLevel is Hunter's coarse trust signal for an opportunity
type TrustLevel string

const (
	TrustHigh   TrustLevel = "high"
	TrustMedium TrustLevel = "medium"
	TrustLow    TrustLevel = "low"
)

// HunterOpportunity is a yield, airdrop or quest opportunity from Hunter
type HunterOpportunity struct {
	ID                   string           `json:"id"`
	Wallet               string           `json:"wallet"`
	Type                 string           `json:"type"` // airdrop, staking, yield, quest, points, ...
	Title                string           `json:"title"`
	TrustLevel           TrustLevel       `json:"trust_level,omitempty"`
	TrustScore           int              `json:"trust_score"`
	EligibilityConfirmed bool             `json:"eligibility_confirmed"`
	UpsideEstimateUSD    *decimal.Decimal `json:"upside_estimate_usd,omitempty"`
	GasEstimateUSD       *decimal.Decimal `json:"gas_estimate_usd,omitempty"`
	ExpiresAt            *time.Time       `json:"expires_at,omitempty"`
	PublishedAt          time.Time        `json:"published_at"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

// Portfolio delta kinds
const (
	DeltaBalance  = "balance"
	DeltaPrice    = "price"
	DeltaRisk     = "risk"
	DeltaApproval = "approval"
)

// PortfolioDelta is a balance, price or risk movement on a wallet
type PortfolioDelta struct {
	ID                string          `json:"id"`
	Wallet            string          `json:"wallet"`
	Kind              string          `json:"kind"`
	Asset             string          `json:"asset"`
	DeltaPct          decimal.Decimal `json:"delta_pct"`
	ValueUSD          decimal.Decimal `json:"value_usd"`
	ConfirmedSnapshot bool            `json:"confirmed_snapshot"`
	ObservedAt        time.Time       `json:"observed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
}

// IsRiskRelated reports whether the delta concerns exposure rather than value.
func (d PortfolioDelta) IsRiskRelated() bool {
	return d.Kind == DeltaRisk || d.Kind == DeltaApproval
}

// Action Center item states that surface in the feed
const (
	ActionCenterPendingUser    = "pending_user"
	ActionCenterReadyToExecute = "ready_to_execute"
	ActionCenterNeedsReview    = "needs_review"
)

// ActionCenterItem is a user-initiated intent tracked by the Action Center
type ActionCenterItem struct {
	ID              string           `json:"id"`
	Wallet          string           `json:"wallet"`
	Title           string           `json:"title"`
	State           string           `json:"state"`
	Severity        Severity         `json:"severity,omitempty"`
	GasEstimateUSD  *decimal.Decimal `json:"gas_estimate_usd,omitempty"`
	TimeEstimateSec *int             `json:"time_estimate_sec,omitempty"`
	RequestedAt     time.Time        `json:"requested_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
}

// ProofReceipt is a completed-transaction record
type ProofReceipt struct {
	ID          string    `json:"id"`
	Wallet      string    `json:"wallet"`
	Chain       string    `json:"chain"`
	TxHash      string    `json:"tx_hash"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completed_at"`
}

// Records bundles the upstream records for one user, one slice per source kind
type Records struct {
	Guardian     []GuardianFinding
	Hunter       []HunterOpportunity
	Portfolio    []PortfolioDelta
	ActionCenter []ActionCenterItem
	Proof        []ProofReceipt
}
