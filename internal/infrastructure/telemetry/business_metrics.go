// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
)

// BusinessMetrics provides business metrics for the warehouse system.
// It tracks scan activity, stock mutations, and book health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	scanTotal        *Counter
	stockAdjustTotal *Counter
	idempotentHits   *Counter

	// Gauge metrics (point-in-time values)
	stockTotalQty     *Gauge
	reconcileDriftKey *Gauge
	expiringBatches   *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	inventoryProvider InventoryMetricsProvider
}

// InventoryMetricsProvider provides inventory data for periodic metrics
// collection. The interface keeps the telemetry layer off the inventory
// domain packages.
type InventoryMetricsProvider interface {
	// GetTotalQty returns the summed on-hand quantity of a scope
	GetTotalQty(ctx context.Context, scope inventory.Scope) (int64, error)

	// GetDriftKeyCount returns how many slot keys disagree between the
	// ledger and the stocks table for a scope
	GetDriftKeyCount(ctx context.Context, scope inventory.Scope) (int64, error)

	// GetExpiringBatchCount returns batches per warehouse expiring within
	// the horizon
	GetExpiringBatchCount(ctx context.Context, horizon time.Time) (map[int64]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // Default: 5 minutes
	InventoryProvider InventoryMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		inventoryProvider: cfg.InventoryProvider,
	}

	var err error

	bm.scanTotal, err = NewCounter(
		cfg.Meter,
		"wms_scan_total",
		"Total number of scan submissions",
		"{scans}",
	)
	if err != nil {
		return nil, err
	}

	bm.stockAdjustTotal, err = NewCounter(
		cfg.Meter,
		"wms_stock_adjust_total",
		"Total number of ledgered stock mutations",
		"{adjustments}",
	)
	if err != nil {
		return nil, err
	}

	bm.idempotentHits, err = NewCounter(
		cfg.Meter,
		"wms_ledger_idempotent_hits_total",
		"Total number of mutations absorbed by an existing fingerprint",
		"{hits}",
	)
	if err != nil {
		return nil, err
	}

	bm.stockTotalQty, err = NewGauge(
		cfg.Meter,
		"wms_stock_total_qty",
		"Current summed on-hand quantity per scope",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	bm.reconcileDriftKey, err = NewGauge(
		cfg.Meter,
		"wms_reconcile_drift_keys",
		"Slot keys where the ledger and stocks disagree",
		"{keys}",
	)
	if err != nil {
		return nil, err
	}

	bm.expiringBatches, err = NewGauge(
		cfg.Meter,
		"wms_expiring_batches",
		"Batches expiring within the configured horizon, per warehouse",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Scan Metrics
// =============================================================================

// ScanStatus represents the outcome of a scan for metrics labeling.
type ScanStatus string

const (
	ScanStatusApplied  ScanStatus = "applied"
	ScanStatusRejected ScanStatus = "rejected"
)

// RecordScan records one scan submission. Called by the scan handler after
// the orchestrator returns.
func (bm *BusinessMetrics) RecordScan(ctx context.Context, mode string, status ScanStatus) {
	bm.scanTotal.Inc(ctx,
		AttrScanMode.String(mode),
		AttrScanStatus.String(string(status)),
	)
}

// =============================================================================
// Stock Metrics
// =============================================================================

// RecordStockAdjust records one ledgered stock mutation.
func (bm *BusinessMetrics) RecordStockAdjust(ctx context.Context, scope inventory.Scope, reason string, idempotent bool) {
	if idempotent {
		bm.idempotentHits.Inc(ctx, AttrScope.String(scope.String()))
		return
	}
	bm.stockAdjustTotal.Inc(ctx,
		AttrScope.String(scope.String()),
		AttrReason.String(reason),
	)
}

// RecordTotalQty records the current summed on-hand quantity for a scope.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordTotalQty(ctx context.Context, scope inventory.Scope, qty int64) {
	bm.stockTotalQty.Record(ctx, qty, AttrScope.String(scope.String()))
}

// RecordDriftKeys records how many keys currently drift between the books.
func (bm *BusinessMetrics) RecordDriftKeys(ctx context.Context, scope inventory.Scope, count int64) {
	bm.reconcileDriftKey.Record(ctx, count, AttrScope.String(scope.String()))
}

// RecordExpiringBatches records the near-expiry batch count of a warehouse.
func (bm *BusinessMetrics) RecordExpiringBatches(ctx context.Context, warehouseID, count int64) {
	bm.expiringBatches.Record(ctx, count, AttrWarehouseID.Int64(warehouseID))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects inventory metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, expiryHorizon time.Duration, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, expiryHorizon, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, expiryHorizon, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectInventoryMetrics(ctx, expiryHorizon)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectInventoryMetrics(ctx, expiryHorizon)
		}
	}
}

// collectInventoryMetrics collects inventory gauge metrics for both scopes.
func (bm *BusinessMetrics) collectInventoryMetrics(ctx context.Context, expiryHorizon time.Duration) {
	if bm.inventoryProvider == nil {
		bm.logger.Debug("No inventory provider configured, skipping inventory metrics collection")
		return
	}

	for _, scope := range []inventory.Scope{inventory.ScopeProd, inventory.ScopeDrill} {
		total, err := bm.inventoryProvider.GetTotalQty(ctx, scope)
		if err != nil {
			bm.logger.Warn("Failed to get total quantity for scope",
				zap.String("scope", scope.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordTotalQty(ctx, scope, total)
		}

		drift, err := bm.inventoryProvider.GetDriftKeyCount(ctx, scope)
		if err != nil {
			bm.logger.Warn("Failed to get drift key count for scope",
				zap.String("scope", scope.String()),
				zap.Error(err),
			)
		} else {
			bm.RecordDriftKeys(ctx, scope, drift)
		}
	}

	horizon := time.Now().UTC().Add(expiryHorizon)
	expiring, err := bm.inventoryProvider.GetExpiringBatchCount(ctx, horizon)
	if err != nil {
		bm.logger.Warn("Failed to get expiring batch counts", zap.Error(err))
		return
	}
	for warehouseID, count := range expiring {
		bm.RecordExpiringBatches(ctx, warehouseID, count)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrScanMode   = attribute.Key("scan_mode")
	AttrScanStatus = attribute.Key("scan_status")
)
