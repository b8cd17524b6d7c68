package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/action-feed-service/internal/metrics"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// Provider record event types
const (
	EventGuardianFinding       = "GUARDIAN_FINDING"
	EventGuardianScanCompleted = "GUARDIAN_SCAN_COMPLETED"
	EventHunterOpportunity     = "HUNTER_OPPORTUNITY"
	EventPortfolioDelta        = "PORTFOLIO_DELTA"
	EventActionCenterItem      = "ACTION_CENTER_ITEM"
	EventProofReceipt          = "PROOF_RECEIPT"
	EventRecordRemoved         = "RECORD_REMOVED"
)

// RecordsRepository defines the storage operations the consumer needs
type RecordsRepository interface {
	UpsertProviderRecord(ctx context.Context, userID string, kind models.SourceKind, refID string, payload []byte, observedAt time.Time) error
	DeleteProviderRecord(ctx context.Context, userID string, kind models.SourceKind, refID string) error
	RecordScanCompleted(ctx context.Context, userID string, at time.Time) error
}

// SummaryInvalidator drops cached summaries after a user's records change
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, userID string) error
}

// ProviderEvent is the envelope every upstream provider publishes
type ProviderEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	UserID    string          `json:"user_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// RecordRemovedData identifies a record to delete
type RecordRemovedData struct {
	SourceKind models.SourceKind `json:"source_kind"`
	RefID      string            `json:"ref_id"`
}

// ScanCompletedData marks a finished Guardian scan
type ScanCompletedData struct {
	CompletedAt time.Time `json:"completed_at"`
}

// ProviderRecordsConsumer stores upstream provider records for the feed
type ProviderRecordsConsumer struct {
	reader *kafka.Reader
	repo   RecordsRepository
	cache  SummaryInvalidator
	now    func() time.Time
}

// NewProviderRecordsConsumer creates a new Kafka consumer for provider records.
// cache may be nil.
func NewProviderRecordsConsumer(brokers []string, topic, groupID string, repo RecordsRepository, cache SummaryInvalidator) *ProviderRecordsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-records",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &ProviderRecordsConsumer{
		reader: reader,
		repo:   repo,
		cache:  cache,
		now:    time.Now,
	}
}

// Start begins consuming messages from Kafka
func (c *ProviderRecordsConsumer) Start(ctx context.Context) error {
	log.Printf("Starting provider records consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Provider records consumer shutting down...")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading provider record message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing provider record message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *ProviderRecordsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event ProviderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.RecordsConsumed.WithLabelValues("invalid", "error").Inc()
		return fmt.Errorf("failed to unmarshal provider event: %w", err)
	}
	if event.UserID == "" {
		metrics.RecordsConsumed.WithLabelValues(event.EventType, "error").Inc()
		return errors.New("provider event has no user_id")
	}

	handled, err := c.dispatch(ctx, event)
	switch {
	case err != nil:
		metrics.RecordsConsumed.WithLabelValues(event.EventType, "error").Inc()
		return err
	case !handled:
		log.Printf("Ignoring unknown provider event type: %s", event.EventType)
		metrics.RecordsConsumed.WithLabelValues(event.EventType, "ignored").Inc()
		return nil
	}

	metrics.RecordsConsumed.WithLabelValues(event.EventType, "stored").Inc()
	if c.cache != nil {
		if err := c.cache.InvalidateSummary(ctx, event.UserID); err != nil {
			log.Printf("Warning: failed to invalidate summary cache for %s: %v", event.UserID, err)
		}
	}
	return nil
}

func (c *ProviderRecordsConsumer) dispatch(ctx context.Context, event ProviderEvent) (bool, error) {
	observedAt := c.eventTime(event)

	switch event.EventType {
	case EventGuardianFinding:
		var r models.GuardianFinding
		return true, c.store(ctx, event, models.SourceGuardian, &r, func() string { return r.ID }, observedAt)
	case EventHunterOpportunity:
		var r models.HunterOpportunity
		return true, c.store(ctx, event, models.SourceHunter, &r, func() string { return r.ID }, observedAt)
	case EventPortfolioDelta:
		var r models.PortfolioDelta
		return true, c.store(ctx, event, models.SourcePortfolio, &r, func() string { return r.ID }, observedAt)
	case EventActionCenterItem:
		var r models.ActionCenterItem
		return true, c.store(ctx, event, models.SourceActionCenter, &r, func() string { return r.ID }, observedAt)
	case EventProofReceipt:
		var r models.ProofReceipt
		return true, c.store(ctx, event, models.SourceProof, &r, func() string { return r.ID }, observedAt)

	case EventRecordRemoved:
		var data RecordRemovedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return true, fmt.Errorf("failed to unmarshal %s data: %w", event.EventType, err)
		}
		if data.RefID == "" || data.SourceKind == "" {
			return true, fmt.Errorf("%s requires source_kind and ref_id", event.EventType)
		}
		if err := c.repo.DeleteProviderRecord(ctx, event.UserID, data.SourceKind, data.RefID); err != nil {
			return true, fmt.Errorf("failed to delete record: %w", err)
		}
		log.Printf("Removed %s record %s for %s", data.SourceKind, data.RefID, event.UserID)
		return true, nil

	case EventGuardianScanCompleted:
		var data ScanCompletedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return true, fmt.Errorf("failed to unmarshal %s data: %w", event.EventType, err)
		}
		at := data.CompletedAt
		if at.IsZero() {
			at = observedAt
		}
		if err := c.repo.RecordScanCompleted(ctx, event.UserID, at); err != nil {
			return true, fmt.Errorf("failed to record scan: %w", err)
		}
		log.Printf("Recorded completed scan for %s at %s", event.UserID, at.Format(time.RFC3339))
		return true, nil
	}
	return false, nil
}

// store decodes data into record, validates its id and upserts the
// normalized payload.
func (c *ProviderRecordsConsumer) store(ctx context.Context, event ProviderEvent, kind models.SourceKind, record any, id func() string, observedAt time.Time) error {
	if err := json.Unmarshal(event.Data, record); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", event.EventType, err)
	}
	refID := id()
	if refID == "" {
		return fmt.Errorf("%s record has no id", event.EventType)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}
	if err := c.repo.UpsertProviderRecord(ctx, event.UserID, kind, refID, payload, observedAt); err != nil {
		return fmt.Errorf("failed to store %s record %s: %w", kind, refID, err)
	}

	log.Printf("Stored %s record %s for %s (source: %s)", kind, refID, event.UserID, event.Source)
	return nil
}

func (c *ProviderRecordsConsumer) eventTime(event ProviderEvent) time.Time {
	if ts, err := time.Parse(time.RFC3339, event.Timestamp); err == nil {
		return ts.UTC()
	}
	return c.now().UTC()
}

// Close closes the Kafka consumer
func (c *ProviderRecordsConsumer) Close() error {
	return c.reader.Close()
}
