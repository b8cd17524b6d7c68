package health

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/action-feed-service/internal/metrics"
	"github.com/trogers1052/action-feed-service/internal/models"
)

const (
	KindRPC     = "rpc"
	KindIndexer = "indexer"
)

// Config tunes probing and classification.
type Config struct {
	DegradedThreshold    time.Duration
	OfflineThreshold     time.Duration
	ProbeTimeout         time.Duration
	MaxRetries           uint64
	RetryInitialInterval time.Duration
	CheckTTL             time.Duration
	RefreshInterval      time.Duration
	// SnapshotBudget bounds the synchronous refresh done when no snapshot exists yet.
	SnapshotBudget time.Duration
	SharedTTL      time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		DegradedThreshold:    1200 * time.Millisecond,
		OfflineThreshold:     5 * time.Second,
		ProbeTimeout:         10 * time.Second,
		MaxRetries:           2,
		RetryInitialInterval: 250 * time.Millisecond,
		CheckTTL:             30 * time.Second,
		RefreshInterval:      30 * time.Second,
		SnapshotBudget:       2 * time.Second,
		SharedTTL:            2 * time.Minute,
	}
}

// SnapshotStore shares the latest status between service instances.
type SnapshotStore interface {
	SetHealthSnapshot(ctx context.Context, status models.ProviderStatus, ttl time.Duration) error
	GetHealthSnapshot(ctx context.Context) (*models.ProviderStatus, error)
}

// Detector probes every target and keeps the most recent system status.
type Detector struct {
	cfg      Config
	client   *http.Client
	rpcs     []RPCTarget
	indexers []IndexerTarget
	shared   SnapshotStore

	mu    sync.RWMutex
	cache map[string]cachedCheck
	last  *models.ProviderStatus

	now func() time.Time
}

// NewDetector creates a detector. shared may be nil.
func NewDetector(cfg Config, rpcs []RPCTarget, indexers []IndexerTarget, shared SnapshotStore) *Detector {
	return &Detector{
		cfg:      cfg,
		client:   &http.Client{},
		rpcs:     rpcs,
		indexers: indexers,
		shared:   shared,
		cache:    make(map[string]cachedCheck),
		now:      time.Now,
	}
}

// Start refreshes immediately and then on every interval until ctx is done.
func (d *Detector) Start(ctx context.Context) {
	log.Printf("Starting health detector (%d rpc, %d indexer targets)", len(d.rpcs), len(d.indexers))
	d.Refresh(ctx)

	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Health detector stopped")
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}

// Snapshot returns the latest status without waiting on the network when one
// is available. Before the first refresh it tries the shared snapshot, then a
// refresh bounded by SnapshotBudget; probes still running at the deadline
// count as offline.
func (d *Detector) Snapshot(ctx context.Context) models.ProviderStatus {
	d.mu.RLock()
	last := d.last
	d.mu.RUnlock()
	if last != nil {
		return *last
	}

	if d.shared != nil {
		if status, err := d.shared.GetHealthSnapshot(ctx); err == nil && status != nil {
			return *status
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.SnapshotBudget)
	defer cancel()
	return d.Refresh(ctx)
}

// Refresh runs every check whose cached result has expired, concurrently,
// and records the aggregated status.
func (d *Detector) Refresh(ctx context.Context) models.ProviderStatus {
	now := d.now()
	results := make([]models.CheckResult, len(d.rpcs)+len(d.indexers))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range d.rpcs {
		g.Go(func() error {
			results[i] = d.cached(gctx, rpcName(t), now, func() models.CheckResult {
				return d.checkRPC(gctx, t)
			})
			return nil
		})
	}
	for i, t := range d.indexers {
		g.Go(func() error {
			results[len(d.rpcs)+i] = d.cached(gctx, indexerName(t), now, func() models.CheckResult {
				return d.checkIndexer(gctx, t)
			})
			return nil
		})
	}
	_ = g.Wait()

	status := Aggregate(results, d.now())
	d.mu.Lock()
	d.last = &status
	d.mu.Unlock()

	if d.shared != nil {
		// The refresh deadline may already have passed; sharing gets its own.
		shareCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := d.shared.SetHealthSnapshot(shareCtx, status, d.cfg.SharedTTL); err != nil {
			log.Printf("Failed to share health snapshot: %v", err)
		}
	}
	if status.State != models.HealthOnline {
		log.Printf("Provider health %s", status.State)
	}
	return status
}

// cachedCheck is a check result keyed to the refresh that produced it.
type cachedCheck struct {
	result  models.CheckResult
	refresh time.Time
}

// cached returns the stored result for name while the refresh that produced
// it started less than CheckTTL before this one. Results of probes cut off by
// ctx are returned but not stored.
func (d *Detector) cached(ctx context.Context, name string, refresh time.Time, run func() models.CheckResult) models.CheckResult {
	d.mu.RLock()
	prev, ok := d.cache[name]
	d.mu.RUnlock()
	if ok && refresh.Sub(prev.refresh) < d.cfg.CheckTTL {
		return prev.result
	}

	result := run()
	if ctx.Err() == nil {
		d.mu.Lock()
		d.cache[name] = cachedCheck{result: result, refresh: refresh}
		d.mu.Unlock()
	}

	metrics.ProviderState.WithLabelValues(result.Name, result.Kind).Set(float64(result.State.Severity()))
	if result.Error == "" {
		metrics.ProviderLatency.WithLabelValues(result.Name, result.Kind).Observe(float64(result.LatencyMS) / 1000)
	}
	return result
}

func (d *Detector) checkRPC(ctx context.Context, t RPCTarget) models.CheckResult {
	latency, err := d.probeRPC(ctx, t)
	result := models.CheckResult{
		Name:      rpcName(t),
		Kind:      KindRPC,
		State:     Classify(latency, err, d.cfg.DegradedThreshold, d.cfg.OfflineThreshold),
		LatencyMS: latency.Milliseconds(),
		CheckedAt: d.now(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (d *Detector) checkIndexer(ctx context.Context, t IndexerTarget) models.CheckResult {
	latency, lastBlock, err := d.probeIndexer(ctx, t)
	now := d.now()
	result := models.CheckResult{
		Name:      indexerName(t),
		Kind:      KindIndexer,
		State:     Classify(latency, err, d.cfg.DegradedThreshold, d.cfg.OfflineThreshold),
		LatencyMS: latency.Milliseconds(),
		CheckedAt: now,
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if IsStale(t.Chain, lastBlock, now) {
		result.Stale = true
		result.State = models.Worst(result.State, models.HealthDegraded)
	}
	return result
}

func rpcName(t RPCTarget) string {
	return "rpc:" + t.Chain
}

func indexerName(t IndexerTarget) string {
	return "indexer:" + t.Provider + ":" + t.Chain
}
