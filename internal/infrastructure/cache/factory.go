package cache

import (
	"go.uber.org/zap"

	"github.com/wms/backend/internal/application/scan"
	"github.com/wms/backend/internal/infrastructure/config"
)

// BarcodeLookupFactory builds the barcode resolution chain based on
// configuration: Redis-backed cache when Redis is enabled, in-memory
// cache otherwise.
type BarcodeLookupFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// BarcodeLookupFactoryOption is a functional option for configuring the factory.
type BarcodeLookupFactoryOption func(*BarcodeLookupFactory)

// WithLogger sets the logger for the factory.
func WithLogger(logger *zap.Logger) BarcodeLookupFactoryOption {
	return func(f *BarcodeLookupFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory
// cache when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) BarcodeLookupFactoryOption {
	return func(f *BarcodeLookupFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewBarcodeLookupFactory creates a new factory.
func NewBarcodeLookupFactory(cfg config.RedisConfig, opts ...BarcodeLookupFactoryOption) *BarcodeLookupFactory {
	f := &BarcodeLookupFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds a read-through lookup over source. When Redis is enabled
// but unreachable and fallback is allowed, the in-memory cache takes its
// place; with fallback disallowed the connection error surfaces.
func (f *BarcodeLookupFactory) Create(source scan.BarcodeLookup) (*ReadThroughLookup, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory barcode cache")
		return NewReadThroughLookup(source, f.newInMemory(), f.logger), nil
	}

	redisCache, err := NewRedisBarcodeCache(RedisBarcodeCacheConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
		TTL:      f.redisConfig.TTL,
	})
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory barcode cache",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return NewReadThroughLookup(source, f.newInMemory(), f.logger), nil
	}

	f.logger.Info("Using Redis barcode cache",
		zap.String("addr", f.redisConfig.Addr()),
	)
	return NewReadThroughLookup(source, redisCache, f.logger), nil
}

func (f *BarcodeLookupFactory) newInMemory() *InMemoryBarcodeCache {
	opts := []InMemoryBarcodeCacheOption{WithInMemoryLogger(f.logger)}
	if f.redisConfig.TTL > 0 {
		opts = append(opts, WithBarcodeTTL(f.redisConfig.TTL))
	}
	return NewInMemoryBarcodeCache(opts...)
}
