package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id int64) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDs finds multiple items and returns them keyed by ID
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*inventory.Item, error) {
	out := make(map[int64]*inventory.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []inventory.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// FindBySKU finds an item by its unique SKU
func (r *GormItemRepository) FindBySKU(ctx context.Context, sku string) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// List returns a page of items
func (r *GormItemRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[inventory.Item], error) {
	query := r.db.WithContext(ctx).Model(&inventory.Item{})
	if search, ok := filter.Filters["search"].(string); ok && search != "" {
		pattern := "%" + search + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ?", pattern, pattern)
	}
	if requiresBatch, ok := filter.Filters["requires_batch"].(bool); ok {
		query = query.Where("requires_batch = ?", requiresBatch)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ItemSortFields, "id")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var items []inventory.Item
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&items).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &page, nil
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
