package models

import "time"

// TodayCardKind is one of the six mutually exclusive headline states
type TodayCardKind string

const (
	CardOnboarding      TodayCardKind = "onboarding"
	CardScanRequired    TodayCardKind = "scan_required"
	CardCriticalRisk    TodayCardKind = "critical_risk"
	CardPendingActions  TodayCardKind = "pending_actions"
	CardDailyPulse      TodayCardKind = "daily_pulse"
	CardPortfolioAnchor TodayCardKind = "portfolio_anchor"
)

// CardCTA is a labelled link on the Today Card
type CardCTA struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// TodayCard is the single headline shown at the top of the dashboard
type TodayCard struct {
	Kind         TodayCardKind `json:"kind"`
	AnchorMetric string        `json:"anchor_metric"`
	Context      string        `json:"context"`
	PrimaryCTA   CardCTA       `json:"primary_cta"`
	SecondaryCTA *CardCTA      `json:"secondary_cta,omitempty"`
}

// CachePolicy tells callers how long a summary stays fresh
type CachePolicy struct {
	StaleTimeSec       int `json:"stale_time_sec"`
	RefetchIntervalSec int `json:"refetch_interval_sec"`
}

// Counters are the summary counts shown next to the preview
type Counters struct {
	NewSinceLast   int `json:"new_since_last"`
	ExpiringSoon   int `json:"expiring_soon"`
	CriticalRisk   int `json:"critical_risk"`
	PendingActions int `json:"pending_actions"`
}

// Summary is the response of a summary read
type Summary struct {
	WalletScope    string         `json:"wallet_scope"`
	TodayCard      TodayCard      `json:"today_card"`
	Actions        []Action       `json:"actions"`
	Counters       Counters       `json:"counters"`
	ProviderStatus ProviderStatus `json:"provider_status"`
	Degraded       bool           `json:"degraded"`
	CachePolicy    CachePolicy    `json:"cache_policy"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// PulseKind is the category tag of a pulse row
type PulseKind string

const (
	PulseExpiringOpportunity PulseKind = "expiring_opportunity"
	PulseNewItem             PulseKind = "new_item"
	PulseUpdatedItem         PulseKind = "updated_item"
	PulsePortfolioDelta      PulseKind = "portfolio_delta"
	PulseGuardianDelta       PulseKind = "guardian_delta"
	PulseProofReceipt        PulseKind = "proof_receipt"
)

// PulseRow is one line of the daily digest
type PulseRow struct {
	Kind       PulseKind  `json:"kind"`
	Title      string     `json:"title"`
	Chip       string     `json:"chip,omitempty"`
	CTA        CTA        `json:"cta"`
	Provenance Provenance `json:"provenance"`
	EventTime  time.Time  `json:"event_time"`
	ActionID   string     `json:"action_id"`

	SortPriority int `json:"-"`
}

// Pulse is the daily digest for one user and one local date
type Pulse struct {
	UserID      string     `json:"user_id"`
	Date        string     `json:"date"`
	Timezone    string     `json:"timezone"`
	Rows        []PulseRow `json:"rows"`
	QuietDay    bool       `json:"quiet_day"`
	GeneratedAt time.Time  `json:"generated_at"`
}
