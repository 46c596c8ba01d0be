package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// stubLookup counts repository hits so tests can assert the cache
// actually absorbed reads.
type stubLookup struct {
	mappings map[string]*inventory.Barcode
	err      error
	calls    int
}

func (s *stubLookup) FindByCode(ctx context.Context, code string) (*inventory.Barcode, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	mapping, ok := s.mappings[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return mapping, nil
}

// failingCache errors on every operation to exercise degradation.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, code string) (*inventory.Barcode, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func (failingCache) Set(ctx context.Context, code string, mapping *inventory.Barcode) error {
	return errors.New("redis: connection refused")
}

func (failingCache) Invalidate(ctx context.Context, code string) error {
	return errors.New("redis: connection refused")
}

func TestReadThroughLookup_CachesHits(t *testing.T) {
	ctx := context.Background()
	code := "6901234567892"

	source := &stubLookup{mappings: map[string]*inventory.Barcode{
		code: testMapping(t, code),
	}}
	memCache := NewInMemoryBarcodeCache()
	defer memCache.Stop()

	lookup := NewReadThroughLookup(source, memCache, zap.NewNop())

	for i := 0; i < 3; i++ {
		mapping, err := lookup.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, int64(42), mapping.ItemID)
	}

	assert.Equal(t, 1, source.calls, "repeat reads should come from cache")
}

func TestReadThroughLookup_CachesMisses(t *testing.T) {
	ctx := context.Background()

	source := &stubLookup{}
	memCache := NewInMemoryBarcodeCache()
	defer memCache.Stop()

	lookup := NewReadThroughLookup(source, memCache, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := lookup.FindByCode(ctx, "unregistered")
		require.ErrorIs(t, err, shared.ErrNotFound)
	}

	assert.Equal(t, 1, source.calls, "repeat misses should come from cache")
}

func TestReadThroughLookup_DegradesOnCacheFailure(t *testing.T) {
	ctx := context.Background()
	code := "6901234567892"

	source := &stubLookup{mappings: map[string]*inventory.Barcode{
		code: testMapping(t, code),
	}}

	lookup := NewReadThroughLookup(source, failingCache{}, zap.NewNop())

	mapping, err := lookup.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(42), mapping.ItemID)
	assert.Equal(t, 1, source.calls)
}

func TestReadThroughLookup_NilCachePassthrough(t *testing.T) {
	ctx := context.Background()
	code := "6901234567892"

	source := &stubLookup{mappings: map[string]*inventory.Barcode{
		code: testMapping(t, code),
	}}

	lookup := NewReadThroughLookup(source, nil, zap.NewNop())

	_, err := lookup.FindByCode(ctx, code)
	require.NoError(t, err)

	_, err = lookup.FindByCode(ctx, code)
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls)
}

func TestReadThroughLookup_Invalidate(t *testing.T) {
	ctx := context.Background()
	code := "6901234567892"

	source := &stubLookup{mappings: map[string]*inventory.Barcode{
		code: testMapping(t, code),
	}}
	memCache := NewInMemoryBarcodeCache()
	defer memCache.Stop()

	lookup := NewReadThroughLookup(source, memCache, zap.NewNop())

	_, err := lookup.FindByCode(ctx, code)
	require.NoError(t, err)

	lookup.Invalidate(ctx, code)

	_, err = lookup.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls, "invalidation should force a repository read")
}

func TestReadThroughLookup_SourceErrorPassthrough(t *testing.T) {
	ctx := context.Background()

	source := &stubLookup{err: errors.New("connection reset")}
	memCache := NewInMemoryBarcodeCache()
	defer memCache.Stop()

	lookup := NewReadThroughLookup(source, memCache, zap.NewNop())

	_, err := lookup.FindByCode(ctx, "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
}
