package models

import (
	"strings"
	"time"
)

// AdapterContext is the read-only, per-run personalization context.
// Only relevance scoring reads the saved refs, wallet roles and alert tags.
type AdapterContext struct {
	LastOpenedAt *time.Time
	Degraded     bool
	SavedRefs    map[string]bool
	// WalletRoles maps a lower-cased wallet address to its assigned role.
	WalletRoles map[string]string
	AlertTags   map[string]bool
}

// NewAdapterContext builds a context from the slices a profile is stored as.
func NewAdapterContext(lastOpened *time.Time, degraded bool, savedRefs []string, walletRoles map[string]string, alertTags []string) AdapterContext {
	ctx := AdapterContext{
		LastOpenedAt: lastOpened,
		Degraded:     degraded,
		SavedRefs:    make(map[string]bool, len(savedRefs)),
		WalletRoles:  make(map[string]string, len(walletRoles)),
		AlertTags:    make(map[string]bool, len(alertTags)),
	}
	for _, ref := range savedRefs {
		ctx.SavedRefs[ref] = true
	}
	for addr, role := range walletRoles {
		ctx.WalletRoles[strings.ToLower(addr)] = role
	}
	for _, tag := range alertTags {
		ctx.AlertTags[strings.ToLower(tag)] = true
	}
	return ctx
}

// EffectiveLastOpened returns the last-opened time, or now-24h for a user who
// has never opened the dashboard.
func (c AdapterContext) EffectiveLastOpened(now time.Time) time.Time {
	if c.LastOpenedAt != nil {
		return *c.LastOpenedAt
	}
	return now.Add(-24 * time.Hour)
}
