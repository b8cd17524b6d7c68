package models

import "time"

// NotificationCategory is a push category with its own daily cap
type NotificationCategory string

const (
	NotifyCritical     NotificationCategory = "critical"
	NotifyDailyPulse   NotificationCategory = "daily_pulse"
	NotifyExpiringSoon NotificationCategory = "expiring_soon"
)

// NotificationSend is one entry in the rolling send log
type NotificationSend struct {
	ID       string               `json:"id"`
	UserID   string               `json:"user_id"`
	Category NotificationCategory `json:"category"`
	SentAt   time.Time            `json:"sent_at"`
}

// DNDWindow is a do-not-disturb window in local "HH:MM" clock times.
// Equal start and end disables it.
type DNDWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Scan states reported for the Guardian scan
const (
	ScanMissing = "missing"
	ScanStale   = "stale"
	ScanFresh   = "fresh"
)

// UserProfile is the persisted per-user state the feed reads
type UserProfile struct {
	UserID       string            `json:"user_id"`
	Timezone     string            `json:"timezone"`
	DND          DNDWindow         `json:"dnd"`
	LastOpenedAt *time.Time        `json:"last_opened_at,omitempty"`
	LastScanAt   *time.Time        `json:"last_scan_at,omitempty"`
	Onboarded    bool              `json:"onboarded"`
	SavedRefs    []string          `json:"saved_refs"`
	AlertTags    []string          `json:"alert_tags"`
	WalletRoles  map[string]string `json:"wallet_roles"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
