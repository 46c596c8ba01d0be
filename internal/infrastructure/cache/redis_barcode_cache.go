package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wms/backend/internal/domain/inventory"
)

// negativeSentinel is the payload stored for a confirmed miss.
const negativeSentinel = "-"

// RedisBarcodeCache implements BarcodeCache using Redis. Suitable for
// distributed deployments where multiple instances share the barcode
// working set.
type RedisBarcodeCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	missTTL   time.Duration
}

// RedisBarcodeCacheConfig holds Redis barcode cache configuration.
type RedisBarcodeCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // Default: 10 minutes
}

// NewRedisBarcodeCache creates a new Redis-backed barcode cache and
// verifies connectivity.
func NewRedisBarcodeCache(cfg RedisBarcodeCacheConfig) (*RedisBarcodeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := NewRedisBarcodeCacheWithClient(client, "")
	if cfg.TTL > 0 {
		cache.ttl = cfg.TTL
	}
	return cache, nil
}

// NewRedisBarcodeCacheWithClient creates a cache over an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisBarcodeCacheWithClient(client *redis.Client, keyPrefix string) *RedisBarcodeCache {
	if keyPrefix == "" {
		keyPrefix = "barcode:"
	}
	return &RedisBarcodeCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       defaultBarcodeTTL,
		missTTL:   defaultNegativeTTL,
	}
}

// Get retrieves the cached mapping for code.
func (c *RedisBarcodeCache) Get(ctx context.Context, code string) (*inventory.Barcode, bool, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read barcode cache: %w", err)
	}

	if payload == negativeSentinel {
		return nil, true, nil
	}

	var mapping inventory.Barcode
	if err := json.Unmarshal([]byte(payload), &mapping); err != nil {
		// Corrupt entry; drop it and report a miss
		c.client.Del(ctx, c.keyPrefix+code)
		return nil, false, nil
	}
	return &mapping, true, nil
}

// Set stores a mapping for code. A nil mapping caches the miss with the
// shorter negative TTL.
func (c *RedisBarcodeCache) Set(ctx context.Context, code string, mapping *inventory.Barcode) error {
	if mapping == nil {
		if err := c.client.Set(ctx, c.keyPrefix+code, negativeSentinel, c.missTTL).Err(); err != nil {
			return fmt.Errorf("failed to cache barcode miss: %w", err)
		}
		return nil
	}

	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to encode barcode mapping: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+code, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache barcode mapping: %w", err)
	}
	return nil
}

// Invalidate drops the entry for code.
func (c *RedisBarcodeCache) Invalidate(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, c.keyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to invalidate barcode cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (c *RedisBarcodeCache) Close() error {
	return c.client.Close()
}

// Ensure RedisBarcodeCache implements BarcodeCache
var _ BarcodeCache = (*RedisBarcodeCache)(nil)
