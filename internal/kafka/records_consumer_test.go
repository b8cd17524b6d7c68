package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/action-feed-service/internal/models"
)

// ---------------------------------------------------------------------------
// Mock RecordsRepository
// ---------------------------------------------------------------------------

type recordUpsert struct {
	UserID     string
	Kind       models.SourceKind
	RefID      string
	Payload    []byte
	ObservedAt time.Time
}

type mockRecordsRepo struct {
	mu      sync.Mutex
	upserts []recordUpsert
	deletes []string
	scans   []time.Time
	err     error
}

func (m *mockRecordsRepo) UpsertProviderRecord(_ context.Context, userID string, kind models.SourceKind, refID string, payload []byte, observedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.upserts = append(m.upserts, recordUpsert{userID, kind, refID, payload, observedAt})
	return nil
}

func (m *mockRecordsRepo) DeleteProviderRecord(_ context.Context, userID string, kind models.SourceKind, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deletes = append(m.deletes, userID+"/"+string(kind)+"/"+refID)
	return nil
}

func (m *mockRecordsRepo) RecordScanCompleted(_ context.Context, _ string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.scans = append(m.scans, at)
	return nil
}

func (m *mockRecordsRepo) Upserts() []recordUpsert {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]recordUpsert, len(m.upserts))
	copy(cp, m.upserts)
	return cp
}

type mockInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (m *mockInvalidator) InvalidateSummary(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userID)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestConsumer(repo *mockRecordsRepo, cache SummaryInvalidator) *ProviderRecordsConsumer {
	return &ProviderRecordsConsumer{repo: repo, cache: cache, now: func() time.Time { return fixedNow }}
}

func message(t *testing.T, eventType, userID, timestamp string, data any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(ProviderEvent{
		EventType: eventType,
		Source:    "test",
		UserID:    userID,
		Timestamp: timestamp,
		Data:      raw,
	})
	require.NoError(t, err)
	return kafkago.Message{Value: payload}
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func TestProviderRecordsConsumer_processMessage_GuardianFinding(t *testing.T) {
	repo := &mockRecordsRepo{}
	cache := &mockInvalidator{}
	consumer := newTestConsumer(repo, cache)

	msg := message(t, EventGuardianFinding, "u1", "2026-03-10T09:30:00Z", map[string]any{
		"id":       "f1",
		"status":   "open",
		"severity": "critical",
	})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	upserts := repo.Upserts()
	require.Len(t, upserts, 1)
	assert.Equal(t, "u1", upserts[0].UserID)
	assert.Equal(t, models.SourceGuardian, upserts[0].Kind)
	assert.Equal(t, "f1", upserts[0].RefID)
	assert.True(t, time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC).Equal(upserts[0].ObservedAt))

	var stored models.GuardianFinding
	require.NoError(t, json.Unmarshal(upserts[0].Payload, &stored))
	assert.Equal(t, models.SeverityCritical, stored.Severity)

	assert.Equal(t, []string{"u1"}, cache.users)
}

func TestProviderRecordsConsumer_processMessage_EachSourceKind(t *testing.T) {
	cases := []struct {
		eventType string
		kind      models.SourceKind
	}{
		{EventHunterOpportunity, models.SourceHunter},
		{EventPortfolioDelta, models.SourcePortfolio},
		{EventActionCenterItem, models.SourceActionCenter},
		{EventProofReceipt, models.SourceProof},
	}
	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			repo := &mockRecordsRepo{}
			consumer := newTestConsumer(repo, nil)

			msg := message(t, tc.eventType, "u1", "", map[string]any{"id": "r1"})
			require.NoError(t, consumer.processMessage(context.Background(), msg))

			upserts := repo.Upserts()
			require.Len(t, upserts, 1)
			assert.Equal(t, tc.kind, upserts[0].Kind)
			assert.Equal(t, "r1", upserts[0].RefID)
			// Missing timestamp falls back to the consumer clock
			assert.True(t, fixedNow.Equal(upserts[0].ObservedAt))
		})
	}
}

func TestProviderRecordsConsumer_processMessage_RecordRemoved(t *testing.T) {
	repo := &mockRecordsRepo{}
	consumer := newTestConsumer(repo, nil)

	msg := message(t, EventRecordRemoved, "u1", "", RecordRemovedData{SourceKind: models.SourceHunter, RefID: "h1"})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	assert.Equal(t, []string{"u1/hunter/h1"}, repo.deletes)
}

func TestProviderRecordsConsumer_processMessage_RecordRemovedRequiresRef(t *testing.T) {
	repo := &mockRecordsRepo{}
	consumer := newTestConsumer(repo, nil)

	msg := message(t, EventRecordRemoved, "u1", "", RecordRemovedData{SourceKind: models.SourceHunter})
	err := consumer.processMessage(context.Background(), msg)
	assert.ErrorContains(t, err, "requires source_kind and ref_id")
	assert.Empty(t, repo.deletes)
}

func TestProviderRecordsConsumer_processMessage_ScanCompleted(t *testing.T) {
	repo := &mockRecordsRepo{}
	consumer := newTestConsumer(repo, nil)
	completed := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	msg := message(t, EventGuardianScanCompleted, "u1", "", ScanCompletedData{CompletedAt: completed})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	require.Len(t, repo.scans, 1)
	assert.True(t, completed.Equal(repo.scans[0]))
}

func TestProviderRecordsConsumer_processMessage_ScanCompletedDefaultsToEventTime(t *testing.T) {
	repo := &mockRecordsRepo{}
	consumer := newTestConsumer(repo, nil)

	msg := message(t, EventGuardianScanCompleted, "u1", "2026-03-10T08:00:00Z", map[string]any{})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	require.Len(t, repo.scans, 1)
	assert.True(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC).Equal(repo.scans[0]))
}

func TestProviderRecordsConsumer_processMessage_MissingID(t *testing.T) {
	repo := &mockRecordsRepo{}
	cache := &mockInvalidator{}
	consumer := newTestConsumer(repo, cache)

	msg := message(t, EventHunterOpportunity, "u1", "", map[string]any{"type": "airdrop"})
	err := consumer.processMessage(context.Background(), msg)
	assert.ErrorContains(t, err, "has no id")
	assert.Empty(t, repo.Upserts())
	assert.Empty(t, cache.users)
}

func TestProviderRecordsConsumer_processMessage_MissingUser(t *testing.T) {
	repo := &mockRecordsRepo{}
	consumer := newTestConsumer(repo, nil)

	msg := message(t, EventGuardianFinding, "", "", map[string]any{"id": "f1"})
	assert.Error(t, consumer.processMessage(context.Background(), msg))
	assert.Empty(t, repo.Upserts())
}

func TestProviderRecordsConsumer_processMessage_UnknownEventType(t *testing.T) {
	repo := &mockRecordsRepo{}
	cache := &mockInvalidator{}
	consumer := newTestConsumer(repo, cache)

	msg := message(t, "SOMETHING_ELSE", "u1", "", map[string]any{"id": "x"})
	require.NoError(t, consumer.processMessage(context.Background(), msg))
	assert.Empty(t, repo.Upserts())
	assert.Empty(t, cache.users)
}

func TestProviderRecordsConsumer_processMessage_InvalidJSON(t *testing.T) {
	consumer := newTestConsumer(&mockRecordsRepo{}, nil)

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.ErrorContains(t, err, "failed to unmarshal provider event")
}

func TestProviderRecordsConsumer_processMessage_RepoError(t *testing.T) {
	repo := &mockRecordsRepo{err: errors.New("db down")}
	consumer := newTestConsumer(repo, nil)

	msg := message(t, EventProofReceipt, "u1", "", map[string]any{"id": "p1"})
	err := consumer.processMessage(context.Background(), msg)
	assert.ErrorContains(t, err, "db down")
}

// ---------------------------------------------------------------------------
// Producer tests
// ---------------------------------------------------------------------------

type mockWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func TestProducer_PublishNotification(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w}

	send := models.NotificationSend{ID: "s1", UserID: "u1", Category: models.NotifyDailyPulse, SentAt: fixedNow}
	require.NoError(t, p.PublishNotification(context.Background(), send))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "u1", string(w.msgs[0].Key))

	var event NotificationEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, "NOTIFICATION_APPROVED", event.EventType)
	assert.Equal(t, "2026-03-10T12:00:00Z", event.Timestamp)
	assert.Equal(t, models.NotifyDailyPulse, event.Data.Category)
}

func TestProducer_PublishNotification_Error(t *testing.T) {
	p := &Producer{writer: &mockWriter{err: errors.New("broker unavailable")}}

	err := p.PublishNotification(context.Background(), models.NotificationSend{ID: "s1", UserID: "u1"})
	assert.ErrorContains(t, err, "failed to publish notification s1")
}
