package pulse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trogers1052/action-feed-service/internal/metrics"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// Store persists one pulse payload per user and local date.
type Store interface {
	// GetPulse returns the stored payload and whether one exists.
	GetPulse(ctx context.Context, userID, date string) ([]byte, bool, error)
	// InsertPulseIfAbsent stores payload unless a row for (userID, date) exists.
	InsertPulseIfAbsent(ctx context.Context, userID, date string, payload []byte) error
}

// RecordSource loads the provider records a pulse is built from.
type RecordSource interface {
	ListProviderRecords(ctx context.Context, userID string) (models.Records, error)
}

// loadTimeout bounds one shared read-or-generate of a pulse.
const loadTimeout = 10 * time.Second

// Service serves the daily pulse. The first generation of a (user, date) is
// stored and every later read returns the stored bytes unchanged.
type Service struct {
	store   Store
	records RecordSource
	group   singleflight.Group
	now     func() time.Time
}

// NewService creates a pulse service
func NewService(store Store, records RecordSource) *Service {
	return &Service{store: store, records: records, now: time.Now}
}

// Get returns the JSON payload of today's pulse in the user's timezone.
func (s *Service) Get(ctx context.Context, userID, timezone string, lastOpenedAt *time.Time) ([]byte, error) {
	now := s.now()
	loc, _ := location(timezone)
	date := LocalDate(now, loc)

	// The shared load is detached from the first caller's cancellation; each
	// caller still stops waiting when its own ctx ends.
	ch := s.group.DoChan(userID+"|"+date, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(loadCtx, Request{
			UserID:       userID,
			Timezone:     timezone,
			LastOpenedAt: lastOpenedAt,
			Now:          now,
		}, date)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (s *Service) load(ctx context.Context, req Request, date string) ([]byte, error) {
	stored, found, err := s.store.GetPulse(ctx, req.UserID, date)
	if err != nil {
		log.Printf("Pulse store read failed for %s/%s, generating on demand: %v", req.UserID, date, err)
		metrics.PulseGenerations.WithLabelValues("fallback").Inc()
		return s.generate(ctx, req)
	}
	if found {
		metrics.PulseGenerations.WithLabelValues("stored").Inc()
		return stored, nil
	}

	payload, err := s.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.PulseGenerations.WithLabelValues("generated").Inc()

	if err := s.store.InsertPulseIfAbsent(ctx, req.UserID, date, payload); err != nil {
		log.Printf("Failed to store pulse for %s/%s: %v", req.UserID, date, err)
		return payload, nil
	}

	// Another instance may have inserted first; its row is the one every
	// reader must see.
	stored, found, err = s.store.GetPulse(ctx, req.UserID, date)
	if err != nil || !found {
		return payload, nil
	}
	return stored, nil
}

func (s *Service) generate(ctx context.Context, req Request) ([]byte, error) {
	records, err := s.records.ListProviderRecords(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider records: %w", err)
	}
	req.Records = records

	payload, err := json.Marshal(Generate(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pulse: %w", err)
	}
	return payload, nil
}
