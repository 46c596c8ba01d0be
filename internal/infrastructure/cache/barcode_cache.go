// Package cache provides caching layers for hot read paths. Barcode
// lookups dominate scan traffic, so the scan parser reads through a
// cache before hitting the barcodes table.
package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/application/scan"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// Default TTLs for barcode cache entries. Misses are cached briefly so a
// burst of scans against an unregistered code does not hammer the table,
// while a newly registered mapping becomes visible quickly.
const (
	defaultBarcodeTTL      = 10 * time.Minute
	defaultNegativeTTL     = 30 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// BarcodeCache stores resolved barcode mappings keyed by raw code.
// A stored nil mapping records a confirmed miss.
type BarcodeCache interface {
	// Get returns the cached mapping for code. The bool reports whether
	// the cache held an entry at all; a (nil, true, nil) result is a
	// cached miss.
	Get(ctx context.Context, code string) (*inventory.Barcode, bool, error)

	// Set stores a mapping for code. A nil mapping caches the miss.
	Set(ctx context.Context, code string, mapping *inventory.Barcode) error

	// Invalidate drops the entry for code.
	Invalidate(ctx context.Context, code string) error
}

// ReadThroughLookup resolves barcodes through a cache in front of the
// repository. Cache failures degrade to direct repository reads; the
// cache is an optimisation, never a correctness dependency.
type ReadThroughLookup struct {
	source scan.BarcodeLookup
	cache  BarcodeCache
	logger *zap.Logger
}

// NewReadThroughLookup creates a ReadThroughLookup. A nil cache makes it
// a transparent passthrough.
func NewReadThroughLookup(source scan.BarcodeLookup, cache BarcodeCache, logger *zap.Logger) *ReadThroughLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadThroughLookup{source: source, cache: cache, logger: logger}
}

// FindByCode resolves a raw code, consulting the cache first.
func (l *ReadThroughLookup) FindByCode(ctx context.Context, code string) (*inventory.Barcode, error) {
	if l.cache != nil {
		mapping, found, err := l.cache.Get(ctx, code)
		if err != nil {
			l.logger.Warn("Barcode cache read failed, falling back to repository",
				zap.Error(err),
			)
		} else if found {
			if mapping == nil {
				return nil, shared.ErrNotFound
			}
			return mapping, nil
		}
	}

	mapping, err := l.source.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			l.store(ctx, code, nil)
		}
		return nil, err
	}

	l.store(ctx, code, mapping)
	return mapping, nil
}

// Invalidate drops the cache entry for code. Called after a mapping is
// registered or rebound so the next scan sees the new state.
func (l *ReadThroughLookup) Invalidate(ctx context.Context, code string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, code); err != nil {
		l.logger.Warn("Barcode cache invalidation failed",
			zap.Error(err),
		)
	}
}

func (l *ReadThroughLookup) store(ctx context.Context, code string, mapping *inventory.Barcode) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, code, mapping); err != nil {
		l.logger.Warn("Barcode cache write failed",
			zap.Error(err),
		)
	}
}

// Ensure ReadThroughLookup satisfies the parser's lookup contract
var _ scan.BarcodeLookup = (*ReadThroughLookup)(nil)
