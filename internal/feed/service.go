// Package feed assembles the dashboard summary from the stored records, the
// user's profile, the recently-shown set and the provider health snapshot.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/adapters"
	"github.com/trogers1052/action-feed-service/internal/database"
	"github.com/trogers1052/action-feed-service/internal/metrics"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/ranking"
	"github.com/trogers1052/action-feed-service/internal/scoring"
	"github.com/trogers1052/action-feed-service/internal/todaycard"
)

// ScopeAll is the wallet scope of an unfiltered summary
const ScopeAll = "all"

// ProfileStore reads and updates per-user state
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	TouchLastOpened(ctx context.Context, userID string, at time.Time) error
	UpsertPreferences(ctx context.Context, p *models.UserProfile) error
}

// RecordSource loads a user's provider records
type RecordSource interface {
	ListProviderRecords(ctx context.Context, userID string) (models.Records, error)
}

// PulseSource returns the encoded daily pulse for a user
type PulseSource interface {
	Get(ctx context.Context, userID, timezone string, lastOpenedAt *time.Time) ([]byte, error)
}

// HealthSource returns the current provider status without blocking on probes
type HealthSource interface {
	Snapshot(ctx context.Context) models.ProviderStatus
}

// ShownStore tracks the recently-shown set and burst-flagged keys
type ShownStore interface {
	ShownSet(ctx context.Context, userID string, now time.Time) (scoring.ShownSet, error)
	MarkShown(ctx context.Context, userID string, dedupeKeys []string, at time.Time) error
	BurstKeys(ctx context.Context, userID string) (map[string]bool, error)
}

// SummaryCache stores encoded summaries per wallet scope
type SummaryCache interface {
	GetSummary(ctx context.Context, userID, scope string) ([]byte, error)
	SetSummary(ctx context.Context, userID, scope string, payload []byte, ttl time.Duration) error
	InvalidateSummary(ctx context.Context, userID string) error
}

// Options holds the optional stores and tuning knobs
type Options struct {
	PreviewSize    int
	ScanStaleAfter time.Duration
	// Shown and Cache may be nil when Redis is unavailable.
	Shown ShownStore
	Cache SummaryCache
}

// Service builds summaries. It is safe for concurrent use.
type Service struct {
	profiles       ProfileStore
	records        RecordSource
	pulses         PulseSource
	health         HealthSource
	shown          ShownStore
	cache          SummaryCache
	ranker         *ranking.Service
	scanStaleAfter time.Duration
	now            func() time.Time
}

// NewService creates a feed service
func NewService(profiles ProfileStore, records RecordSource, pulses PulseSource, health HealthSource, opts Options) *Service {
	staleAfter := opts.ScanStaleAfter
	if staleAfter <= 0 {
		staleAfter = 7 * 24 * time.Hour
	}
	return &Service{
		profiles:       profiles,
		records:        records,
		pulses:         pulses,
		health:         health,
		shown:          opts.Shown,
		cache:          opts.Cache,
		ranker:         ranking.NewService(opts.PreviewSize),
		scanStaleAfter: staleAfter,
		now:            time.Now,
	}
}

// NormalizeScope maps an optional wallet query value to a scope key.
func NormalizeScope(wallet string) string {
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if wallet == "" {
		return ScopeAll
	}
	return wallet
}

// Profile returns the user's profile, or an empty one for an unknown user.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.UserProfile{UserID: userID, Timezone: "UTC"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// Summary returns the summary for a user and wallet scope, from cache when a
// fresh copy exists.
func (s *Service) Summary(ctx context.Context, userID, wallet string) (*models.Summary, error) {
	scope := NormalizeScope(wallet)
	if cached := s.cachedSummary(ctx, userID, scope); cached != nil {
		return cached, nil
	}

	start := time.Now()
	summary, err := s.build(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	metrics.SummaryDuration.Observe(time.Since(start).Seconds())
	metrics.SummaryRequests.WithLabelValues(string(summary.TodayCard.Kind)).Inc()

	s.storeSummary(ctx, userID, scope, summary)
	return summary, nil
}

func (s *Service) build(ctx context.Context, userID, scope string) (*models.Summary, error) {
	now := s.now().UTC()

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListProviderRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	status := s.health.Snapshot(ctx)
	degraded := status.Degraded()

	shown, burst := s.shownState(ctx, userID, now)
	drafts := filterScope(adapters.AdaptAll(records, now), scope)

	result := s.ranker.Rank(ranking.Input{
		Drafts:    drafts,
		Context:   models.NewAdapterContext(profile.LastOpenedAt, degraded, profile.SavedRefs, profile.WalletRoles, profile.AlertTags),
		Shown:     shown,
		BurstKeys: burst,
		Now:       now,
	})
	metrics.RankedActions.Observe(float64(len(result.Ranked)))

	pulseRows := s.pulseRowCount(ctx, profile)
	card := todaycard.Build(todaycard.Inputs{
		OnboardingNeeded:    !profile.Onboarded && recordCount(records) == 0,
		ScanState:           todaycard.ScanState(profile.LastScanAt, s.scanStaleAfter, now),
		CriticalRiskCount:   result.Counters.CriticalRisk,
		PendingActionsCount: result.Counters.PendingActions,
		DailyPulseAvailable: pulseRows > 0,
		PulseRowCount:       pulseRows,
		NewSinceLast:        result.Counters.NewSinceLast,
		WalletCount:         len(profile.WalletRoles),
		LastScanAt:          profile.LastScanAt,
		Now:                 now,
	})

	return &models.Summary{
		WalletScope:    scope,
		TodayCard:      card,
		Actions:        result.Preview,
		Counters:       result.Counters,
		ProviderStatus: status,
		Degraded:       degraded,
		CachePolicy:    todaycard.CachePolicyFor(card.Kind),
		GeneratedAt:    now,
	}, nil
}

// shownState reads the recently-shown set and burst keys. Failures degrade
// to empty sets so a Redis outage never fails a summary.
func (s *Service) shownState(ctx context.Context, userID string, now time.Time) (scoring.ShownSet, map[string]bool) {
	if s.shown == nil {
		return scoring.ShownSet{}, nil
	}
	shown, err := s.shown.ShownSet(ctx, userID, now)
	if err != nil {
		log.Printf("Warning: failed to read shown set for %s: %v", userID, err)
		shown = scoring.ShownSet{}
	}
	burst, err := s.shown.BurstKeys(ctx, userID)
	if err != nil {
		log.Printf("Warning: failed to read burst keys for %s: %v", userID, err)
		burst = nil
	}
	return shown, burst
}

// pulseRowCount returns the number of rows in today's pulse, or 0 when the
// pulse is quiet or unavailable.
func (s *Service) pulseRowCount(ctx context.Context, profile *models.UserProfile) int {
	payload, err := s.pulses.Get(ctx, profile.UserID, profile.Timezone, profile.LastOpenedAt)
	if err != nil {
		log.Printf("Warning: daily pulse unavailable for %s: %v", profile.UserID, err)
		return 0
	}
	var p struct {
		Rows     []json.RawMessage `json:"rows"`
		QuietDay bool              `json:"quiet_day"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("Warning: stored pulse for %s is unreadable: %v", profile.UserID, err)
		return 0
	}
	if p.QuietDay {
		return 0
	}
	return len(p.Rows)
}

func (s *Service) cachedSummary(ctx context.Context, userID, scope string) *models.Summary {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.GetSummary(ctx, userID, scope)
	if err != nil {
		return nil
	}
	var summary models.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		log.Printf("Warning: dropping unreadable cached summary for %s: %v", userID, err)
		return nil
	}
	return &summary
}

func (s *Service) storeSummary(ctx context.Context, userID, scope string, summary *models.Summary) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	ttl := time.Duration(summary.CachePolicy.StaleTimeSec) * time.Second
	if err := s.cache.SetSummary(ctx, userID, scope, data, ttl); err != nil {
		log.Printf("Warning: failed to cache summary for %s: %v", userID, err)
	}
}

// Opened records that the user opened the dashboard.
func (s *Service) Opened(ctx context.Context, userID string) (time.Time, error) {
	at := s.now().UTC()
	if err := s.profiles.TouchLastOpened(ctx, userID, at); err != nil {
		return time.Time{}, fmt.Errorf("failed to record dashboard open: %w", err)
	}
	s.invalidate(ctx, userID)
	return at, nil
}

// MarkShown records dedupe keys as shown to the user now.
func (s *Service) MarkShown(ctx context.Context, userID string, dedupeKeys []string) error {
	if s.shown == nil {
		log.Printf("Warning: recently-shown store unavailable, dropping %d keys for %s", len(dedupeKeys), userID)
		return nil
	}
	if err := s.shown.MarkShown(ctx, userID, dedupeKeys, s.now().UTC()); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// UpdatePreferences stores the user's preferences.
func (s *Service) UpdatePreferences(ctx context.Context, p *models.UserProfile) error {
	if err := s.profiles.UpsertPreferences(ctx, p); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	s.invalidate(ctx, p.UserID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummary(ctx, userID); err != nil {
		log.Printf("Warning: failed to invalidate summary cache for %s: %v", userID, err)
	}
}

func filterScope(drafts []models.ActionDraft, scope string) []models.ActionDraft {
	if scope == ScopeAll {
		return drafts
	}
	out := make([]models.ActionDraft, 0, len(drafts))
	for _, d := range drafts {
		if slices.Contains(scoring.WalletAddresses(d), scope) {
			out = append(out, d)
		}
	}
	return out
}

func recordCount(r models.Records) int {
	return len(r.Guardian) + len(r.Hunter) + len(r.Portfolio) + len(r.ActionCenter) + len(r.Proof)
}
