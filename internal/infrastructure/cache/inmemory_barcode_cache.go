package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
)

// InMemoryBarcodeCache implements BarcodeCache using in-memory storage.
// Suitable for single-instance deployments and as the fallback when Redis
// is disabled. Entries expire per TTL; a background goroutine sweeps
// expired entries.
type InMemoryBarcodeCache struct {
	entries sync.Map // map[string]*barcodeEntry
	ttl     time.Duration
	missTTL time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// barcodeEntry wraps a cached mapping with its expiration time. A nil
// mapping is a cached miss.
type barcodeEntry struct {
	mapping   *inventory.Barcode
	expiresAt time.Time
}

func (e *barcodeEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryBarcodeCacheOption is a functional option for configuring the cache.
type InMemoryBarcodeCacheOption func(*InMemoryBarcodeCache)

// WithBarcodeTTL sets the TTL for positive entries.
func WithBarcodeTTL(ttl time.Duration) InMemoryBarcodeCacheOption {
	return func(c *InMemoryBarcodeCache) {
		c.ttl = ttl
	}
}

// WithNegativeTTL sets the TTL for cached misses.
func WithNegativeTTL(ttl time.Duration) InMemoryBarcodeCacheOption {
	return func(c *InMemoryBarcodeCache) {
		c.missTTL = ttl
	}
}

// WithInMemoryLogger sets the logger for the cache.
func WithInMemoryLogger(logger *zap.Logger) InMemoryBarcodeCacheOption {
	return func(c *InMemoryBarcodeCache) {
		c.logger = logger
	}
}

// NewInMemoryBarcodeCache creates a new in-memory barcode cache.
func NewInMemoryBarcodeCache(opts ...InMemoryBarcodeCacheOption) *InMemoryBarcodeCache {
	cache := &InMemoryBarcodeCache{
		ttl:     defaultBarcodeTTL,
		missTTL: defaultNegativeTTL,
		logger:  zap.NewNop(),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves the cached mapping for code.
func (c *InMemoryBarcodeCache) Get(ctx context.Context, code string) (*inventory.Barcode, bool, error) {
	if value, ok := c.entries.Load(code); ok {
		entry := value.(*barcodeEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.mapping, true, nil
		}
		// Expired, remove from cache
		c.entries.Delete(code)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, false, nil
}

// Set stores a mapping for code. A nil mapping caches the miss with the
// shorter negative TTL.
func (c *InMemoryBarcodeCache) Set(ctx context.Context, code string, mapping *inventory.Barcode) error {
	ttl := c.ttl
	if mapping == nil {
		ttl = c.missTTL
	}
	c.entries.Store(code, &barcodeEntry{
		mapping:   mapping,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Invalidate drops the entry for code.
func (c *InMemoryBarcodeCache) Invalidate(ctx context.Context, code string) error {
	c.entries.Delete(code)
	return nil
}

// Stats returns hit and miss counts since startup.
func (c *InMemoryBarcodeCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Stop stops the background cleanup goroutine. Safe to call more than once.
func (c *InMemoryBarcodeCache) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

// cleanupExpired periodically sweeps expired entries.
func (c *InMemoryBarcodeCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			removed := 0
			c.entries.Range(func(key, value interface{}) bool {
				if value.(*barcodeEntry).isExpired() {
					c.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				c.logger.Debug("Swept expired barcode cache entries",
					zap.Int("removed", removed),
				)
			}
		}
	}
}

// Ensure InMemoryBarcodeCache implements BarcodeCache
var _ BarcodeCache = (*InMemoryBarcodeCache)(nil)
