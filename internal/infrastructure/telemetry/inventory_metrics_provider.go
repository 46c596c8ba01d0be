// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/inventory"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider using
// GORM. It queries the stocks, ledger, and batches tables directly for
// aggregated figures; nothing here takes locks.
type GormInventoryMetricsProvider struct {
	db *gorm.DB
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db}
}

// GetTotalQty returns the summed on-hand quantity of a scope.
func (p *GormInventoryMetricsProvider) GetTotalQty(ctx context.Context, scope inventory.Scope) (int64, error) {
	var total int64
	err := p.db.WithContext(ctx).
		Table("stocks").
		Select("COALESCE(SUM(qty), 0)").
		Where("scope = ?", scope).
		Scan(&total).Error
	return total, err
}

// GetDriftKeyCount returns how many slot keys disagree between the ledger
// and the stocks table for a scope.
func (p *GormInventoryMetricsProvider) GetDriftKeyCount(ctx context.Context, scope inventory.Scope) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM (
			SELECT warehouse_id, item_id, batch_code_key, SUM(delta) AS ledger_qty
			FROM stock_ledger
			WHERE scope = ?
			GROUP BY warehouse_id, item_id, batch_code_key
		) l
		FULL OUTER JOIN (
			SELECT warehouse_id, item_id, batch_code_key, qty
			FROM stocks
			WHERE scope = ?
		) s
		  ON s.warehouse_id = l.warehouse_id
		 AND s.item_id = l.item_id
		 AND s.batch_code_key = l.batch_code_key
		WHERE COALESCE(l.ledger_qty, 0) <> COALESCE(s.qty, 0)`,
		scope, scope).
		Scan(&count).Error
	return count, err
}

// GetExpiringBatchCount returns batches per warehouse expiring within the
// horizon.
func (p *GormInventoryMetricsProvider) GetExpiringBatchCount(ctx context.Context, horizon time.Time) (map[int64]int64, error) {
	type row struct {
		WarehouseID int64 `gorm:"column:warehouse_id"`
		Expiring    int64 `gorm:"column:expiring"`
	}

	var rows []row
	err := p.db.WithContext(ctx).
		Table("batches").
		Select("warehouse_id, COUNT(*) AS expiring").
		Where("expiry_date IS NOT NULL AND expiry_date < ?", inventory.DateOnly(horizon)).
		Group("warehouse_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.WarehouseID] = r.Expiring
	}
	return out, nil
}

// Ensure GormInventoryMetricsProvider implements InventoryMetricsProvider
var _ InventoryMetricsProvider = (*GormInventoryMetricsProvider)(nil)
