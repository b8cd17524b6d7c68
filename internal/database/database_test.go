package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/action-feed-service/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return NewWithConn(conn), mock
}

var ts = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// ---- Profiles ----

func TestGetProfile(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{
		"user_id", "timezone", "dnd_start", "dnd_end", "last_opened_at", "last_scan_at",
		"onboarded", "saved_refs", "alert_tags", "wallet_roles", "updated_at",
	}).AddRow("u1", "Europe/Berlin", "23:00", "07:00", ts, nil,
		true, "{guardian:f1,h9}", "{airdrop}", []byte(`{"0xabc":"treasury"}`), ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles")).WithArgs("u1").WillReturnRows(rows)

	p, err := db.GetProfile(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", p.Timezone)
	assert.Equal(t, models.DNDWindow{Start: "23:00", End: "07:00"}, p.DND)
	require.NotNil(t, p.LastOpenedAt)
	assert.True(t, ts.Equal(*p.LastOpenedAt))
	assert.Nil(t, p.LastScanAt)
	assert.Equal(t, []string{"guardian:f1", "h9"}, p.SavedRefs)
	assert.Equal(t, []string{"airdrop"}, p.AlertTags)
	assert.Equal(t, map[string]string{"0xabc": "treasury"}, p.WalletRoles)
}

func TestGetProfile_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_profiles")).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := db.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertPreferences(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_profiles")).
		WithArgs("u1", "UTC", "22:00", "08:00", true, sqlmock.AnyArg(), sqlmock.AnyArg(), `{}`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(ts))

	p := &models.UserProfile{UserID: "u1", Timezone: "UTC", DND: models.DNDWindow{Start: "22:00", End: "08:00"}, Onboarded: true}
	require.NoError(t, db.UpsertPreferences(context.Background(), p))
	assert.Equal(t, ts, p.UpdatedAt)
}

func TestTouchLastOpened(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(user_profiles.last_opened_at")).
		WithArgs("u1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, db.TouchLastOpened(context.Background(), "u1", ts))
}

func TestRecordScanCompleted_Error(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("last_scan_at")).
		WillReturnError(errors.New("connection reset"))

	err := db.RecordScanCompleted(context.Background(), "u1", ts)
	assert.ErrorContains(t, err, "failed to record scan")
}

// ---- Provider records ----

func TestUpsertProviderRecord(t *testing.T) {
	db, mock := newMockDB(t)
	payload := []byte(`{"id":"f1"}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_records")).
		WithArgs("u1", "guardian", "f1", string(payload), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, db.UpsertProviderRecord(context.Background(), "u1", models.SourceGuardian, "f1", payload, ts))
}

func TestDeleteProviderRecord(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM provider_records")).
		WithArgs("u1", "hunter", "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, db.DeleteProviderRecord(context.Background(), "u1", models.SourceHunter, "h1"))
}

func TestListProviderRecords(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"source_kind", "ref_id", "payload"}).
		AddRow("guardian", "f1", []byte(`{"id":"f1","status":"open","severity":"high"}`)).
		AddRow("hunter", "h1", []byte(`{"id":"h1","type":"airdrop","trust_score":80}`)).
		AddRow("portfolio", "d1", []byte(`{"id":"d1","kind":"price","delta_pct":"12.5","value_usd":"1500"}`)).
		AddRow("action_center", "a1", []byte(`{"id":"a1","state":"ready_to_execute"}`)).
		AddRow("proof", "p1", []byte(`{"id":"p1","chain":"base","tx_hash":"0x1"}`)).
		AddRow("proof", "bad", []byte(`not json`)).
		AddRow("mystery", "m1", []byte(`{}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM provider_records")).WithArgs("u1").WillReturnRows(rows)

	records, err := db.ListProviderRecords(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, records.Guardian, 1)
	assert.Equal(t, models.SeverityHigh, records.Guardian[0].Severity)
	require.Len(t, records.Hunter, 1)
	assert.Equal(t, 80, records.Hunter[0].TrustScore)
	require.Len(t, records.Portfolio, 1)
	assert.Equal(t, "12.5", records.Portfolio[0].DeltaPct.String())
	assert.Len(t, records.ActionCenter, 1)
	assert.Len(t, records.Proof, 1)
}

// ---- Pulses ----

func TestGetPulse(t *testing.T) {
	db, mock := newMockDB(t)
	stored := []byte(`{"date":"2026-03-10","rows":[]}`)
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_pulses")).WithArgs("u1", "2026-03-10").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(stored))

	got, found, err := db.GetPulse(context.Background(), "u1", "2026-03-10")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored, got)
}

func TestGetPulse_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_pulses")).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	got, found, err := db.GetPulse(context.Background(), "u1", "2026-03-10")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestInsertPulseIfAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, pulse_date) DO NOTHING")).
		WithArgs("u1", "2026-03-10", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, db.InsertPulseIfAbsent(context.Background(), "u1", "2026-03-10", []byte(`{}`)))
}

// ---- Notifications ----

func sendRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "category", "sent_at"}).
		AddRow("s1", "u1", "daily_pulse", ts.Add(-time.Hour))
}

func TestReserveNotification_Approved(t *testing.T) {
	db, mock := newMockDB(t)
	send := models.NotificationSend{ID: "s2", UserID: "u1", Category: models.NotifyCritical, SentAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_sends")).WithArgs("u1", ts.Add(-24*time.Hour)).WillReturnRows(sendRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_sends")).
		WithArgs("s2", "u1", "critical", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen []models.NotificationSend
	ok, err := db.ReserveNotification(context.Background(), send, ts.Add(-24*time.Hour), func(recent []models.NotificationSend) bool {
		seen = recent
		return true
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, seen, 1)
	assert.Equal(t, models.NotifyDailyPulse, seen[0].Category)
}

func TestReserveNotification_Rejected(t *testing.T) {
	db, mock := newMockDB(t)
	send := models.NotificationSend{ID: "s2", UserID: "u1", Category: models.NotifyDailyPulse, SentAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_sends")).WillReturnRows(sendRows())
	mock.ExpectCommit()

	ok, err := db.ReserveNotification(context.Background(), send, ts.Add(-24*time.Hour), func([]models.NotificationSend) bool {
		return false
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReserveNotification_LockFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	send := models.NotificationSend{ID: "s2", UserID: "u1", Category: models.NotifyDailyPulse, SentAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err := db.ReserveNotification(context.Background(), send, ts, func([]models.NotificationSend) bool { return true })
	assert.ErrorContains(t, err, "lock timeout")
}

func TestReserveNotification_RejectedCommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	send := models.NotificationSend{ID: "s2", UserID: "u1", Category: models.NotifyDailyPulse, SentAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_sends")).WillReturnRows(sendRows())
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	approved := false
	ok, err := db.ReserveNotification(context.Background(), send, ts.Add(-24*time.Hour), func([]models.NotificationSend) bool {
		approved = true
		return false
	})
	assert.ErrorContains(t, err, "failed to commit send log read for u1")
	assert.False(t, ok)
	assert.True(t, approved)
}
