package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements StockRepository using GORM. Every mutation
// of a slot quantity goes through a row lock taken here, inside the caller's
// transaction.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// EnsureSlot inserts a zero-quantity slot for the key if none exists, then
// returns the row locked FOR UPDATE
func (r *GormStockRepository) EnsureSlot(ctx context.Context, scope inventory.Scope, warehouseID, itemID int64, batchCode *string) (*inventory.StockSlot, error) {
	slot := &inventory.StockSlot{
		Scope:       scope,
		WarehouseID: warehouseID,
		ItemID:      itemID,
		BatchCode:   batchCode,
		Qty:         0,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "warehouse_id"}, {Name: "item_id"}, {Name: "batch_code_key"}},
		DoNothing: true,
	}).Create(slot).Error; err != nil {
		return nil, translateIntegrityError(err)
	}
	return r.FindForUpdate(ctx, inventory.SlotKey{
		Scope:        scope,
		WarehouseID:  warehouseID,
		ItemID:       itemID,
		BatchCodeKey: inventory.BatchCodeKey(batchCode),
	})
}

// FindForUpdate returns the slot locked FOR UPDATE, or shared.ErrNotFound
func (r *GormStockRepository) FindForUpdate(ctx context.Context, key inventory.SlotKey) (*inventory.StockSlot, error) {
	var slot inventory.StockSlot
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("scope = ? AND warehouse_id = ? AND item_id = ? AND batch_code_key = ?",
			key.Scope, key.WarehouseID, key.ItemID, key.BatchCodeKey).
		First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

// Find returns the slot without locking, or shared.ErrNotFound
func (r *GormStockRepository) Find(ctx context.Context, key inventory.SlotKey) (*inventory.StockSlot, error) {
	var slot inventory.StockSlot
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND warehouse_id = ? AND item_id = ? AND batch_code_key = ?",
			key.Scope, key.WarehouseID, key.ItemID, key.BatchCodeKey).
		First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

// ListForUpdateByItem locks every slot of (scope, warehouse, item) FOR UPDATE
// and returns them joined with batch expiry dates, ready for allocation
// planning. Only the stock rows are locked; batch metadata stays free.
func (r *GormStockRepository) ListForUpdateByItem(ctx context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.FefoCandidate, error) {
	var candidates []inventory.FefoCandidate
	if err := r.db.WithContext(ctx).Raw(`
		SELECT s.id AS stock_id, s.batch_code, b.expiry_date, s.qty AS available
		FROM stocks s
		LEFT JOIN batches b
		  ON b.warehouse_id = s.warehouse_id
		 AND b.item_id = s.item_id
		 AND b.batch_code = s.batch_code
		WHERE s.scope = ? AND s.warehouse_id = ? AND s.item_id = ?
		ORDER BY s.id
		FOR UPDATE OF s`,
		scope, warehouseID, itemID).
		Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

// UpdateQty sets the quantity of a locked slot
func (r *GormStockRepository) UpdateQty(ctx context.Context, stockID int64, qty int64) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockSlot{}).
		Where("id = ?", stockID).
		Update("qty", qty)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByWarehouse returns a page of slots in a warehouse
func (r *GormStockRepository) ListByWarehouse(ctx context.Context, scope inventory.Scope, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.StockSlot], error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockSlot{}).
		Where("scope = ? AND warehouse_id = ?", scope, warehouseID)
	if itemID, ok := filter.Filters["item_id"]; ok {
		query = query.Where("item_id = ?", itemID)
	}
	if nonZero, ok := filter.Filters["non_zero"].(bool); ok && nonZero {
		query = query.Where("qty <> 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, StockSortFields, "id")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var slots []inventory.StockSlot
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&slots).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(slots, total, filter.Page, filter.Limit())
	return &page, nil
}

// ListByItem returns all slots of an item in a warehouse
func (r *GormStockRepository) ListByItem(ctx context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.StockSlot, error) {
	var slots []inventory.StockSlot
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND warehouse_id = ? AND item_id = ?", scope, warehouseID, itemID).
		Order("batch_code_key ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// TotalQty sums quantity across all slots of a scope
func (r *GormStockRepository) TotalQty(ctx context.Context, scope inventory.Scope) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockSlot{}).
		Where("scope = ?", scope).
		Select("COALESCE(SUM(qty), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Ensure GormStockRepository implements StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
