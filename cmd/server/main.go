package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/trogers1052/action-feed-service/internal/api"
	"github.com/trogers1052/action-feed-service/internal/config"
	"github.com/trogers1052/action-feed-service/internal/database"
	"github.com/trogers1052/action-feed-service/internal/feed"
	"github.com/trogers1052/action-feed-service/internal/health"
	"github.com/trogers1052/action-feed-service/internal/kafka"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/notify"
	"github.com/trogers1052/action-feed-service/internal/pulse"
	"github.com/trogers1052/action-feed-service/internal/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Create Kafka producer for approved notifications
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Provider health detector
	detector := newDetector(cfg.Health, redisClient)
	go detector.Start(ctx)

	// Services. Nil Redis pointers must not reach the optional interfaces.
	feedOpts := feed.Options{
		PreviewSize:    cfg.Feed.PreviewSize,
		ScanStaleAfter: cfg.Feed.ScanStaleAfter,
	}
	var invalidator kafka.SummaryInvalidator
	var redisPinger api.Pinger
	if redisClient != nil {
		feedOpts.Shown = redisClient
		feedOpts.Cache = redisClient
		invalidator = redisClient
		redisPinger = redisClient
	}
	pulses := pulse.NewService(db, db)
	feedService := feed.NewService(db, db, pulses, detector, feedOpts)
	notifier := notify.NewService(db, producer)

	// Create and start Kafka consumer for provider records
	consumer := kafka.NewProviderRecordsConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.RecordsTopic,
		cfg.Kafka.ConsumerGroup,
		db,
		invalidator,
	)
	go func() {
		log.Printf("Starting Kafka consumer for topic: %s (group: %s-records)",
			cfg.Kafka.RecordsTopic, cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka consumer error: %v", err)
		}
	}()

	// Set up HTTP handler and routes
	handler := api.NewHandler(feedService, pulses, notifier, detector, api.Options{
		DB:             db,
		Redis:          redisPinger,
		DefaultDND:     models.DNDWindow{Start: cfg.Notify.DefaultDNDStart, End: cfg.Notify.DefaultDNDEnd},
		RequestTimeout: cfg.Feed.RequestTimeout,
	})
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop the consumer and the detector loop
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := consumer.Close(); err != nil {
		log.Printf("Error closing Kafka consumer: %v", err)
	}

	log.Println("Server stopped")
}

func newDetector(cfg config.HealthConfig, redisClient *redis.Client) *health.Detector {
	hc := health.DefaultConfig()
	hc.DegradedThreshold = cfg.DegradedThreshold
	hc.OfflineThreshold = cfg.OfflineThreshold
	hc.ProbeTimeout = cfg.ProbeTimeout
	hc.MaxRetries = cfg.MaxRetries
	hc.CheckTTL = cfg.CheckTTL
	hc.RefreshInterval = cfg.RefreshInterval
	hc.SnapshotBudget = cfg.SnapshotBudget

	var rpcs []health.RPCTarget
	for _, t := range cfg.RPCs() {
		rpcs = append(rpcs, health.RPCTarget{Chain: t.Chain, URL: t.URL})
	}
	var indexers []health.IndexerTarget
	for _, t := range cfg.Indexers() {
		indexers = append(indexers, health.IndexerTarget{Provider: t.Provider, Chain: t.Chain, URL: t.URL})
	}
	log.Printf("Health detector configured with %d RPC and %d indexer targets", len(rpcs), len(indexers))

	var shared health.SnapshotStore
	if redisClient != nil {
		shared = redisClient
	}
	return health.NewDetector(hc, rpcs, indexers, shared)
}

func runMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	// Apply all available migrations up to the latest version
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("No migrations to apply; database is up to date.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
