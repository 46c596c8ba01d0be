package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBarcodeRepository implements BarcodeRepository using GORM
type GormBarcodeRepository struct {
	db *gorm.DB
}

// NewGormBarcodeRepository creates a new GormBarcodeRepository
func NewGormBarcodeRepository(db *gorm.DB) *GormBarcodeRepository {
	return &GormBarcodeRepository{db: db}
}

// FindByCode returns the mapping for a raw code, or shared.ErrNotFound
func (r *GormBarcodeRepository) FindByCode(ctx context.Context, code string) (*inventory.Barcode, error) {
	var barcode inventory.Barcode
	if err := r.db.WithContext(ctx).Where("barcode = ?", code).First(&barcode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &barcode, nil
}

// Save creates or replaces a mapping
func (r *GormBarcodeRepository) Save(ctx context.Context, barcode *inventory.Barcode) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_id", "warehouse_id"}),
	}).Create(barcode).Error
}

// Ensure GormBarcodeRepository implements BarcodeRepository
var _ inventory.BarcodeRepository = (*GormBarcodeRepository)(nil)
