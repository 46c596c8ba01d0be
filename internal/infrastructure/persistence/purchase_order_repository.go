package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindLine returns one line by (po_no, line_no), or shared.ErrNotFound.
// The row is locked FOR UPDATE: receipts and returns mutate ReceivedQty
// and must not interleave.
func (r *GormPurchaseOrderRepository) FindLine(ctx context.Context, poNo string, lineNo int) (*inventory.PurchaseOrderLine, error) {
	var line inventory.PurchaseOrderLine
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("po_no = ? AND line_no = ?", poNo, lineNo).
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindLineByID returns one line by its row ID
func (r *GormPurchaseOrderRepository) FindLineByID(ctx context.Context, id int64) (*inventory.PurchaseOrderLine, error) {
	var line inventory.PurchaseOrderLine
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&line, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindLinesByPO returns all lines of a purchase order ordered by line_no
func (r *GormPurchaseOrderRepository) FindLinesByPO(ctx context.Context, poNo string) ([]inventory.PurchaseOrderLine, error) {
	var lines []inventory.PurchaseOrderLine
	if err := r.db.WithContext(ctx).
		Where("po_no = ?", poNo).
		Order("line_no ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save creates or updates a line
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, line *inventory.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ inventory.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
