package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByNaturalKey finds a batch by (warehouse, item, code)
func (r *GormBatchRepository) FindByNaturalKey(ctx context.Context, warehouseID, itemID int64, batchCode string) (*inventory.Batch, error) {
	var batch inventory.Batch
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND item_id = ? AND batch_code = ?", warehouseID, itemID, batchCode).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// Ensure inserts the batch if missing. On conflict it back-fills only NULL
// date columns; an existing non-NULL date is never overwritten. Returns the
// row as persisted.
func (r *GormBatchRepository) Ensure(ctx context.Context, batch *inventory.Batch) (*inventory.Batch, error) {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "warehouse_id"}, {Name: "item_id"}, {Name: "batch_code"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"production_date": gorm.Expr("COALESCE(batches.production_date, EXCLUDED.production_date)"),
			"expiry_date":     gorm.Expr("COALESCE(batches.expiry_date, EXCLUDED.expiry_date)"),
		}),
	}).Create(batch).Error; err != nil {
		return nil, translateIntegrityError(err)
	}
	return r.FindByNaturalKey(ctx, batch.WarehouseID, batch.ItemID, batch.BatchCode)
}

// ListExpiringBefore returns batches of a warehouse whose expiry falls
// before the horizon, soonest first
func (r *GormBatchRepository) ListExpiringBefore(ctx context.Context, warehouseID int64, horizon time.Time, filter shared.Filter) ([]inventory.Batch, error) {
	var batches []inventory.Batch
	query := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND expiry_date IS NOT NULL AND expiry_date < ?", warehouseID, inventory.DateOnly(horizon)).
		Order("expiry_date ASC, id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Ensure GormBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
