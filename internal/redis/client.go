package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/action-feed-service/internal/config"
	"github.com/trogers1052/action-feed-service/internal/models"
	"github.com/trogers1052/action-feed-service/internal/scoring"
)

// ErrCacheMiss is returned when a cached value does not exist
var ErrCacheMiss = errors.New("cache miss")

const healthSnapshotKey = "feed:health:snapshot"

// Client wraps the Redis client with feed-specific operations
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Recently-shown set

func shownKey(userID string) string {
	return fmt.Sprintf("feed:shown:%s", userID)
}

// MarkShown records dedupe keys as shown at the given time. Entries older
// than the recently-shown TTL are trimmed in the same transaction.
func (c *Client) MarkShown(ctx context.Context, userID string, dedupeKeys []string, at time.Time) error {
	if len(dedupeKeys) == 0 {
		return nil
	}
	key := shownKey(userID)
	members := make([]redis.Z, 0, len(dedupeKeys))
	for _, k := range dedupeKeys {
		members = append(members, redis.Z{Score: float64(at.UnixMilli()), Member: k})
	}
	cutoff := at.Add(-scoring.RecentlyShownTTL).UnixMilli()

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, members...)
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, scoring.RecentlyShownTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark shown for %s: %w", userID, err)
	}
	return nil
}

// ShownSet returns the dedupe keys shown within the recently-shown TTL of now
func (c *Client) ShownSet(ctx context.Context, userID string, now time.Time) (scoring.ShownSet, error) {
	cutoff := now.Add(-scoring.RecentlyShownTTL).UnixMilli()
	entries, err := c.rdb.ZRangeByScoreWithScores(ctx, shownKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read shown set for %s: %w", userID, err)
	}
	return toShownSet(entries), nil
}

func toShownSet(entries []redis.Z) scoring.ShownSet {
	shown := make(scoring.ShownSet, len(entries))
	for _, e := range entries {
		member, ok := e.Member.(string)
		if !ok {
			continue
		}
		shown[member] = time.UnixMilli(int64(e.Score)).UTC()
	}
	return shown
}

func burstKey(userID string) string {
	return fmt.Sprintf("feed:burst:%s", userID)
}

// BurstKeys returns the dedupe keys an upstream burst detector has flagged
// for the user. The set is written and expired by the detector.
func (c *Client) BurstKeys(ctx context.Context, userID string) (map[string]bool, error) {
	members, err := c.rdb.SMembers(ctx, burstKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read burst keys for %s: %w", userID, err)
	}
	keys := make(map[string]bool, len(members))
	for _, m := range members {
		keys[m] = true
	}
	return keys, nil
}

// Health snapshot sharing

// SetHealthSnapshot stores the latest provider status for other instances
func (c *Client) SetHealthSnapshot(ctx context.Context, status models.ProviderStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal health snapshot: %w", err)
	}
	return c.rdb.Set(ctx, healthSnapshotKey, data, ttl).Err()
}

// GetHealthSnapshot retrieves the shared provider status
func (c *Client) GetHealthSnapshot(ctx context.Context) (*models.ProviderStatus, error) {
	data, err := c.rdb.Get(ctx, healthSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var status models.ProviderStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal health snapshot: %w", err)
	}
	return &status, nil
}

// Summary caching

func summaryKey(userID string) string {
	return fmt.Sprintf("feed:summary:%s", userID)
}

// SetSummary caches an encoded summary for one wallet scope. All scopes of a
// user share one hash so they can be invalidated together.
func (c *Client) SetSummary(ctx context.Context, userID, scope string, payload []byte, ttl time.Duration) error {
	key := summaryKey(userID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, scope, payload)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache summary for %s: %w", userID, err)
	}
	return nil
}

// GetSummary returns a cached summary payload
func (c *Client) GetSummary(ctx context.Context, userID, scope string) ([]byte, error) {
	data, err := c.rdb.HGet(ctx, summaryKey(userID), scope).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// InvalidateSummary drops every cached summary scope for a user
func (c *Client) InvalidateSummary(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, summaryKey(userID)).Err()
}
