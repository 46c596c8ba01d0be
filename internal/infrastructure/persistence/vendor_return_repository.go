package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVendorReturnRepository implements VendorReturnRepository using GORM
type GormVendorReturnRepository struct {
	db *gorm.DB
}

// NewGormVendorReturnRepository creates a new GormVendorReturnRepository
func NewGormVendorReturnRepository(db *gorm.DB) *GormVendorReturnRepository {
	return &GormVendorReturnRepository{db: db}
}

// FindTaskByID returns the task with its lines, or shared.ErrNotFound
func (r *GormVendorReturnRepository) FindTaskByID(ctx context.Context, id int64) (*inventory.VendorReturnTask, error) {
	var task inventory.VendorReturnTask
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("vendor_return_lines.id ASC") }).
		First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ListOpenTasks returns a page of open tasks for a warehouse
func (r *GormVendorReturnRepository) ListOpenTasks(ctx context.Context, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.VendorReturnTask], error) {
	query := r.db.WithContext(ctx).Model(&inventory.VendorReturnTask{}).
		Where("warehouse_id = ? AND status = ?", warehouseID, inventory.VendorReturnStatusOpen)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var tasks []inventory.VendorReturnTask
	if err := query.
		Preload("Lines").
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(tasks, total, filter.Page, filter.Limit())
	return &page, nil
}

// SaveTask creates or updates a task together with its lines
func (r *GormVendorReturnRepository) SaveTask(ctx context.Context, task *inventory.VendorReturnTask) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(task).Error
}

// SaveLine updates a single line
func (r *GormVendorReturnRepository) SaveLine(ctx context.Context, line *inventory.VendorReturnLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// ClaimNextLine locks and returns one line of the task that still has
// quantity to pick, skipping lines other workers hold. Returns
// shared.ErrNotFound when every remaining line is taken or done.
func (r *GormVendorReturnRepository) ClaimNextLine(ctx context.Context, taskID int64) (*inventory.VendorReturnLine, error) {
	var line inventory.VendorReturnLine
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("task_id = ? AND picked_qty < expected_qty", taskID).
		Order("id ASC").
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// Ensure GormVendorReturnRepository implements VendorReturnRepository
var _ inventory.VendorReturnRepository = (*GormVendorReturnRepository)(nil)
