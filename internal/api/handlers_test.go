package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/notify"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeFeed struct {
	mu        sync.Mutex
	profile   models.UserProfile
	summary   *models.Summary
	err       error
	wallets   []string
	shown     []string
	preferred []*models.UserProfile
	deadlines map[string]bool
}

func (f *fakeFeed) sawDeadline(ctx context.Context, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deadlines == nil {
		f.deadlines = map[string]bool{}
	}
	_, ok := ctx.Deadline()
	f.deadlines[op] = ok
}

func (f *fakeFeed) Summary(_ context.Context, _, wallet string) (*models.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets = append(f.wallets, wallet)
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func (f *fakeFeed) Profile(_ context.Context, userID string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.profile
	p.UserID = userID
	return &p, nil
}

func (f *fakeFeed) Opened(ctx context.Context, _ string) (time.Time, error) {
	f.sawDeadline(ctx, "opened")
	return fixedNow, f.err
}

func (f *fakeFeed) MarkShown(ctx context.Context, _ string, keys []string) error {
	f.sawDeadline(ctx, "shown")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, keys...)
	return f.err
}

func (f *fakeFeed) UpdatePreferences(ctx context.Context, p *models.UserProfile) error {
	f.sawDeadline(ctx, "preferences")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferred = append(f.preferred, p)
	return f.err
}

type fakePulses struct{ payload []byte }

func (f fakePulses) Get(context.Context, string, string, *time.Time) ([]byte, error) {
	return f.payload, nil
}

type fakeNotifier struct {
	timezone string
	dnd      models.DNDWindow
}

func (f *fakeNotifier) Request(_ context.Context, _ string, category models.NotificationCategory, timezone string, dnd models.DNDWindow) (notify.Decision, error) {
	f.timezone = timezone
	f.dnd = dnd
	if !notify.IsKnownCategory(category) {
		return notify.Decision{Reason: notify.ReasonUnknownCategory}, notify.ErrUnknownCategory
	}
	return notify.Decision{Allowed: true, Reason: notify.ReasonAllowed, SendID: "s1"}, nil
}

type fakeHealth struct{}

func (fakeHealth) Snapshot(context.Context) models.ProviderStatus {
	return models.ProviderStatus{State: models.HealthOnline, Checks: []models.CheckResult{}, CheckedAt: fixedNow}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestRouter(feed *fakeFeed, notifier *fakeNotifier, opts Options) http.Handler {
	h := NewHandler(feed, fakePulses{payload: []byte(`{"date":"2026-03-10","rows":[],"quiet_day":true}`)}, notifier, fakeHealth{}, opts)
	return SetupRoutes(h)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetSummary(t *testing.T) {
	feed := &fakeFeed{summary: &models.Summary{
		WalletScope: "all",
		TodayCard:   models.TodayCard{Kind: models.CardCriticalRisk},
		Actions:     []models.Action{},
		CachePolicy: models.CachePolicy{StaleTimeSec: 10, RefetchIntervalSec: 10},
	}}
	router := newTestRouter(feed, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodGet, "/api/v1/users/u1/summary?wallet=0xABC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=10", rec.Header().Get("Cache-Control"))
	assert.Equal(t, []string{"0xABC"}, feed.wallets)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "critical_risk", body["today_card"].(map[string]any)["kind"])
}

func TestGetSummary_Error(t *testing.T) {
	router := newTestRouter(&fakeFeed{err: errors.New("db down")}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodGet, "/api/v1/users/u1/summary", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetPulse_ReturnsStoredBytes(t *testing.T) {
	router := newTestRouter(&fakeFeed{}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodGet, "/api/v1/users/u1/pulse", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"date":"2026-03-10","rows":[],"quiet_day":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestMarkOpened(t *testing.T) {
	router := newTestRouter(&fakeFeed{}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodPost, "/api/v1/users/u1/opened", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"last_opened_at":"2026-03-10T12:00:00Z"}`, rec.Body.String())
}

func TestMarkShown(t *testing.T) {
	feed := &fakeFeed{}
	router := newTestRouter(feed, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodPost, "/api/v1/users/u1/shown", `{"dedupe_keys":["guardian:f1:Fix"]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"guardian:f1:Fix"}, feed.shown)

	rec = do(t, router, http.MethodPost, "/api/v1/users/u1/shown", `{"dedupe_keys":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/users/u1/shown", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteHandlers_ApplyRequestTimeout(t *testing.T) {
	feed := &fakeFeed{}
	router := newTestRouter(feed, &fakeNotifier{}, Options{RequestTimeout: time.Second})

	do(t, router, http.MethodPost, "/api/v1/users/u1/opened", "")
	do(t, router, http.MethodPost, "/api/v1/users/u1/shown", `{"dedupe_keys":["guardian:f1:Fix"]}`)
	do(t, router, http.MethodPut, "/api/v1/users/u1/preferences", `{"onboarded":true}`)

	assert.Equal(t, map[string]bool{"opened": true, "shown": true, "preferences": true}, feed.deadlines)
}

func TestRequestNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	feed := &fakeFeed{profile: models.UserProfile{Timezone: "Asia/Tokyo"}}
	defaultDND := models.DNDWindow{Start: "23:00", End: "07:00"}
	router := newTestRouter(feed, notifier, Options{DefaultDND: defaultDND})

	rec := do(t, router, http.MethodPost, "/api/v1/users/u1/notifications", `{"category":"daily_pulse"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true,"reason":"allowed","send_id":"s1"}`, rec.Body.String())
	assert.Equal(t, "Asia/Tokyo", notifier.timezone)
	assert.Equal(t, defaultDND, notifier.dnd)
}

func TestRequestNotification_UnknownCategory(t *testing.T) {
	router := newTestRouter(&fakeFeed{}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodPost, "/api/v1/users/u1/notifications", `{"category":"marketing"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePreferences(t *testing.T) {
	feed := &fakeFeed{profile: models.UserProfile{Timezone: "UTC", AlertTags: []string{"airdrop"}}}
	router := newTestRouter(feed, &fakeNotifier{}, Options{DefaultDND: notify.DefaultDND})

	rec := do(t, router, http.MethodPut, "/api/v1/users/u1/preferences",
		`{"timezone":"Europe/Berlin","onboarded":true,"wallet_roles":{"0xabc":"treasury"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, feed.preferred, 1)
	saved := feed.preferred[0]
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, "Europe/Berlin", saved.Timezone)
	assert.True(t, saved.Onboarded)
	assert.Equal(t, notify.DefaultDND, saved.DND)
	assert.Equal(t, []string{"airdrop"}, saved.AlertTags)
	assert.Equal(t, map[string]string{"0xabc": "treasury"}, saved.WalletRoles)
}

func TestUpdatePreferences_Validation(t *testing.T) {
	feed := &fakeFeed{}
	router := newTestRouter(feed, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodPut, "/api/v1/users/u1/preferences", `{"timezone":"Mars/Olympus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/v1/users/u1/preferences", `{"dnd":{"start":"25:00","end":"08:00"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, feed.preferred)
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(&fakeFeed{}, fakePulses{}, &fakeNotifier{}, fakeHealth{}, Options{
		DB:    fakePinger{},
		Redis: fakePinger{err: errors.New("connection refused")},
	})
	router := SetupRoutes(h)

	rec := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string                `json:"status"`
		Services  map[string]string     `json:"services"`
		Providers models.ProviderStatus `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Services["postgres"])
	assert.Contains(t, body.Services["redis"], "unhealthy")
	assert.Equal(t, models.HealthOnline, body.Providers.State)
}

func TestHealthCheck_NoDatabaseIsDegraded(t *testing.T) {
	router := newTestRouter(&fakeFeed{}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&fakeFeed{}, &fakeNotifier{}, Options{})

	rec := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
