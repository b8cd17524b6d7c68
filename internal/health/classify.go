// Package health watches RPC endpoints and chain indexers and reduces them to
// a single system state that the summary uses to decide on degraded mode.
package health

import (
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// Staleness thresholds per chain class. An indexer is stale when its latest
// block lags by more than twice its chain's threshold.
const (
	FastChainStaleness    = 15 * time.Minute
	SlowChainStaleness    = 30 * time.Minute
	DefaultChainStaleness = 20 * time.Minute
)

var fastChains = map[string]bool{
	"arbitrum":  true,
	"avalanche": true,
	"base":      true,
	"bsc":       true,
	"optimism":  true,
	"polygon":   true,
	"solana":    true,
}

var slowChains = map[string]bool{
	"bitcoin":  true,
	"ethereum": true,
}

// StalenessThreshold returns the chain-specific staleness threshold.
func StalenessThreshold(chain string) time.Duration {
	chain = strings.ToLower(chain)
	switch {
	case fastChains[chain]:
		return FastChainStaleness
	case slowChains[chain]:
		return SlowChainStaleness
	default:
		return DefaultChainStaleness
	}
}

// IsStale reports whether an indexer's latest block time lags too far behind now.
func IsStale(chain string, lastBlockAt, now time.Time) bool {
	return now.Sub(lastBlockAt) > 2*StalenessThreshold(chain)
}

// Classify maps a probe outcome to a state. Any error is offline.
func Classify(latency time.Duration, err error, degradedAfter, offlineAfter time.Duration) models.HealthState {
	switch {
	case err != nil:
		return models.HealthOffline
	case latency < degradedAfter:
		return models.HealthOnline
	case latency < offlineAfter:
		return models.HealthDegraded
	default:
		return models.HealthOffline
	}
}

// Aggregate folds check results into the system-wide status.
func Aggregate(checks []models.CheckResult, now time.Time) models.ProviderStatus {
	state := models.HealthOnline
	for _, c := range checks {
		state = models.Worst(state, c.State)
	}
	if checks == nil {
		checks = []models.CheckResult{}
	}
	return models.ProviderStatus{State: state, Checks: checks, CheckedAt: now}
}
