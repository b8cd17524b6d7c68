package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/trogers1052/action-feed-service/internal/metrics"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// ErrUnknownCategory is returned for categories without a cap.
var ErrUnknownCategory = errors.New("unknown notification category")

// SendLog is the per-user rolling log of sends.
type SendLog interface {
	// ReserveNotification locks the user's log, reads sends since the given
	// time, and records send only if approve returns true. The read, the
	// decision and the write happen atomically per user.
	ReserveNotification(ctx context.Context, send models.NotificationSend, since time.Time,
		approve func(recent []models.NotificationSend) bool) (bool, error)
	// RecordNotification appends a send without checking caps.
	RecordNotification(ctx context.Context, send models.NotificationSend) error
}

// Publisher hands approved sends to the delivery pipeline.
type Publisher interface {
	PublishNotification(ctx context.Context, send models.NotificationSend) error
}

// Service throttles notification requests.
type Service struct {
	log       SendLog
	publisher Publisher
	now       func() time.Time
}

// NewService creates a notification service. publisher may be nil.
func NewService(sendLog SendLog, publisher Publisher) *Service {
	return &Service{log: sendLog, publisher: publisher, now: time.Now}
}

// Request decides whether category may be sent to the user now and, if so,
// records and publishes it. When the send log cannot be read the caps are
// evaluated against zero counts; do-not-disturb always applies. A decision
// made against the log stands even if the store then fails.
func (s *Service) Request(ctx context.Context, userID string, category models.NotificationCategory, timezone string, dnd models.DNDWindow) (Decision, error) {
	if !IsKnownCategory(category) {
		return Decision{Reason: ReasonUnknownCategory}, ErrUnknownCategory
	}

	now := s.now()
	local := now.In(userLocation(timezone))
	send := models.NotificationSend{
		ID:       uuid.NewString(),
		UserID:   userID,
		Category: category,
		SentAt:   now.UTC(),
	}

	var decision Decision
	decided := false
	_, err := s.log.ReserveNotification(ctx, send, now.Add(-Window), func(recent []models.NotificationSend) bool {
		decision = Decide(category, CountSince(recent, now), dnd, local)
		decided = true
		return decision.Allowed
	})
	if err != nil {
		if decided {
			// The caps were evaluated against the log; only the write failed.
			log.Printf("Notification log write failed for %s after deciding %s: %v", userID, decision.Reason, err)
		} else {
			log.Printf("Notification log unavailable for %s, evaluating with zero counts: %v", userID, err)
			decision = Decide(category, Counts{}, dnd, local)
		}
		if decision.Allowed {
			if err := s.log.RecordNotification(ctx, send); err != nil {
				log.Printf("Failed to record notification %s: %v", send.ID, err)
			}
		}
	}

	metrics.NotificationDecisions.WithLabelValues(string(category), string(decision.Reason)).Inc()
	if !decision.Allowed {
		return decision, nil
	}

	decision.SendID = send.ID
	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, send); err != nil {
			log.Printf("Failed to publish notification %s: %v", send.ID, err)
		}
	}
	return decision, nil
}

func userLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
