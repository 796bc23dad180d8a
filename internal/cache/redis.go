// Package cache provides an optional Redis-backed cache of detection
// results, keyed by a hash of the analysed text. Identical prompt content
// skips the detection waterfall entirely on a hit. Only derived entity
// collections are cached; entity maps and placeholder assignments stay
// strictly per cloak call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raaihank/llm-cloak/internal/entity"
	"go.uber.org/zap"
)

// DetectionCache handles Redis-based caching of detection results
type DetectionCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new Redis-based detection cache
func New(config *Config, logger *zap.Logger) (*DetectionCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	cache := &DetectionCache{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Detection cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// cachedEntity is the serialized form of one detected entity.
type cachedEntity struct {
	Type  entity.Type `json:"type"`
	Value string      `json:"value"`
}

// Get returns the cached detection result for text, if present.
func (dc *DetectionCache) Get(ctx context.Context, text string) (entity.Collection, bool) {
	key := dc.key(text)

	data, err := dc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		dc.misses.Add(1)
		return nil, false
	} else if err != nil {
		dc.logger.Error("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	var records []cachedEntity
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		dc.logger.Error("Failed to unmarshal cached detection", zap.Error(err))
		// Delete corrupted cache entry
		dc.client.Del(ctx, key)
		return nil, false
	}

	entities := entity.NewCollection()
	for _, r := range records {
		entities.Add(entity.Entity{Type: r.Type, Value: r.Value})
	}

	dc.hits.Add(1)
	dc.logger.Debug("Detection cache hit",
		zap.String("key", key),
		zap.Int("entities", entities.Len()))
	return entities, true
}

// Store caches a detection result with the configured TTL.
func (dc *DetectionCache) Store(ctx context.Context, text string, entities entity.Collection) error {
	records := make([]cachedEntity, 0, entities.Len())
	for _, e := range entities.Values() {
		records = append(records, cachedEntity{Type: e.Type, Value: e.Value})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal detection result: %w", err)
	}

	if err := dc.client.Set(ctx, dc.key(text), data, dc.config.DefaultTTL).Err(); err != nil {
		dc.logger.Error("Failed to cache detection result", zap.Error(err))
		return fmt.Errorf("failed to cache detection result: %w", err)
	}
	return nil
}

// Stats returns cache performance statistics
func (dc *DetectionCache) Stats() Stats {
	stats := Stats{
		Hits:   dc.hits.Load(),
		Misses: dc.misses.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// Clear removes all cached detection results under this cache's prefix.
func (dc *DetectionCache) Clear(ctx context.Context) error {
	iter := dc.client.Scan(ctx, 0, dc.config.KeyPrefix+":det:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := dc.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	dc.logger.Info("Detection cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (dc *DetectionCache) Close() error {
	if dc.client != nil {
		return dc.client.Close()
	}
	return nil
}

// key hashes the text into a fixed-size cache key.
func (dc *DetectionCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:det:%s", dc.config.KeyPrefix, hex.EncodeToString(sum[:])[:16])
}

// maskRedisURL masks credentials in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
