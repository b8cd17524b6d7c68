package models

import "time"

// HealthState classifies a provider, chain or the whole system
type HealthState string

const (
	HealthOnline   HealthState = "online"
	HealthDegraded HealthState = "degraded"
	HealthOffline  HealthState = "offline"
)

// Severity orders health states so the worst one can be picked.
func (s HealthState) Severity() int {
	switch s {
	case HealthOnline:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of two states.
func Worst(a, b HealthState) HealthState {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// CheckResult is the outcome of one health check
type CheckResult struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"` // rpc, indexer
	State     HealthState `json:"state"`
	LatencyMS int64       `json:"latency_ms"`
	Stale     bool        `json:"stale,omitempty"`
	Error     string      `json:"error,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// ProviderStatus is the system-wide health snapshot
type ProviderStatus struct {
	State     HealthState   `json:"state"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Degraded reports whether anything is below online.
func (p ProviderStatus) Degraded() bool {
	return p.State != HealthOnline
}
