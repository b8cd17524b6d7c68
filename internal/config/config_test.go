package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:19092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "feed.provider-records", cfg.Kafka.RecordsTopic)
	assert.Equal(t, 3, cfg.Feed.PreviewSize)
	assert.Equal(t, 168*time.Hour, cfg.Feed.ScanStaleAfter)
	assert.Equal(t, 1200*time.Millisecond, cfg.Health.DegradedThreshold)
	assert.Equal(t, 10*time.Second, cfg.Health.ProbeTimeout)
	assert.Equal(t, "22:00", cfg.Notify.DefaultDNDStart)
	assert.Empty(t, cfg.Health.RPCs())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("FEED_PREVIEW_SIZE", "5")
	t.Setenv("HEALTH_RPC_TARGETS", "ethereum=https://eth.example/rpc,base=https://base.example/rpc")
	t.Setenv("HEALTH_INDEXER_TARGETS", "alchemy/ethereum=https://idx.example/eth,moralis/base=https://idx.example/base")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Feed.PreviewSize)

	assert.Equal(t, []Target{
		{Chain: "base", URL: "https://base.example/rpc"},
		{Chain: "ethereum", URL: "https://eth.example/rpc"},
	}, cfg.Health.RPCs())

	assert.Equal(t, []Target{
		{Provider: "alchemy", Chain: "ethereum", URL: "https://idx.example/eth"},
		{Provider: "moralis", Chain: "base", URL: "https://idx.example/base"},
	}, cfg.Health.Indexers())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("HEALTH_PROBE_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "parse env")
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "feed", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/feed?sslmode=disable", d.ConnectionString())
}
