package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Feed     FeedConfig
	Health   HealthConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8081"`
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `env:"DB_HOST" envDefault:"postgres"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"feed"`
	Password       string `env:"DB_PASSWORD" envDefault:"feed"`
	DBName         string `env:"DB_NAME" envDefault:"action_feed"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	MigrationsPath string `env:"DB_MIGRATIONS_PATH" envDefault:"file://./db/migrations"`
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers            []string `env:"KAFKA_BROKERS" envDefault:"localhost:19092" envSeparator:","`
	RecordsTopic       string   `env:"KAFKA_RECORDS_TOPIC" envDefault:"feed.provider-records"`
	NotificationsTopic string   `env:"KAFKA_NOTIFICATIONS_TOPIC" envDefault:"feed.notifications"`
	ConsumerGroup      string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"action-feed-service"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// FeedConfig tunes the summary read
type FeedConfig struct {
	PreviewSize    int           `env:"FEED_PREVIEW_SIZE" envDefault:"3"`
	ScanStaleAfter time.Duration `env:"FEED_SCAN_STALE_AFTER" envDefault:"168h"`
	RequestTimeout time.Duration `env:"FEED_REQUEST_TIMEOUT" envDefault:"5s"`
}

// HealthConfig holds provider health probing settings. Targets are
// comma-separated key=url pairs: chain=url for RPCs and provider/chain=url
// for indexers.
type HealthConfig struct {
	DegradedThreshold time.Duration     `env:"HEALTH_DEGRADED_THRESHOLD" envDefault:"1200ms"`
	OfflineThreshold  time.Duration     `env:"HEALTH_OFFLINE_THRESHOLD" envDefault:"5s"`
	ProbeTimeout      time.Duration     `env:"HEALTH_PROBE_TIMEOUT" envDefault:"10s"`
	MaxRetries        uint64            `env:"HEALTH_MAX_RETRIES" envDefault:"2"`
	CheckTTL          time.Duration     `env:"HEALTH_CHECK_TTL" envDefault:"30s"`
	RefreshInterval   time.Duration     `env:"HEALTH_REFRESH_INTERVAL" envDefault:"30s"`
	SnapshotBudget    time.Duration     `env:"HEALTH_SNAPSHOT_BUDGET" envDefault:"2s"`
	RPCTargets        map[string]string `env:"HEALTH_RPC_TARGETS" envKeyValSeparator:"="`
	IndexerTargets    map[string]string `env:"HEALTH_INDEXER_TARGETS" envKeyValSeparator:"="`
}

// NotifyConfig holds notification defaults
type NotifyConfig struct {
	DefaultDNDStart string `env:"NOTIFY_DND_START" envDefault:"22:00"`
	DefaultDNDEnd   string `env:"NOTIFY_DND_END" envDefault:"08:00"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

// Target is one configured health probe endpoint
type Target struct {
	Provider string
	Chain    string
	URL      string
}

// RPCs returns the RPC targets sorted by chain
func (h *HealthConfig) RPCs() []Target {
	targets := make([]Target, 0, len(h.RPCTargets))
	for chain, url := range h.RPCTargets {
		targets = append(targets, Target{Chain: strings.TrimSpace(chain), URL: strings.TrimSpace(url)})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Chain < targets[j].Chain })
	return targets
}

// Indexers returns the indexer targets sorted by provider then chain.
// Keys without a provider part use the chain as the provider.
func (h *HealthConfig) Indexers() []Target {
	targets := make([]Target, 0, len(h.IndexerTargets))
	for key, url := range h.IndexerTargets {
		provider, chain, ok := strings.Cut(strings.TrimSpace(key), "/")
		if !ok {
			chain = provider
		}
		targets = append(targets, Target{Provider: provider, Chain: chain, URL: strings.TrimSpace(url)})
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Provider != targets[j].Provider {
			return targets[i].Provider < targets[j].Provider
		}
		return targets[i].Chain < targets[j].Chain
	})
	return targets
}
