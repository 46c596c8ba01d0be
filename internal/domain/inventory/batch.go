package inventory

import (
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// Batch is descriptive metadata for one (warehouse, item, batch_code). It
// owns no quantity; balances live in stock slots joined by the same code.
// Batches are created lazily on the first inbound movement for a new code.
type Batch struct {
	shared.BaseEntity
	WarehouseID    int64      `gorm:"column:warehouse_id;uniqueIndex:uq_batches_wh_item_code" json:"warehouse_id"`
	ItemID         int64      `gorm:"column:item_id;uniqueIndex:uq_batches_wh_item_code" json:"item_id"`
	BatchCode      string     `gorm:"column:batch_code;uniqueIndex:uq_batches_wh_item_code" json:"batch_code"`
	ProductionDate *time.Time `gorm:"type:date" json:"production_date,omitempty"`
	ExpiryDate     *time.Time `gorm:"type:date" json:"expiry_date,omitempty"`
}

// TableName returns the database table name
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates batch metadata for a concrete code.
func NewBatch(warehouseID, itemID int64, code string, production, expiry *time.Time) (*Batch, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_BATCH", "batch code cannot be empty")
	}
	if warehouseID <= 0 || itemID <= 0 {
		return nil, shared.NewDomainError("INVALID_BATCH", "warehouse and item are required")
	}
	return &Batch{
		WarehouseID:    warehouseID,
		ItemID:         itemID,
		BatchCode:      code,
		ProductionDate: DateOnlyPtr(production),
		ExpiryDate:     DateOnlyPtr(expiry),
	}, nil
}

// IsExpiredAt returns true when the expiry date is strictly before asOf.
// A batch expiring on asOf itself is still usable that day.
func (b *Batch) IsExpiredAt(asOf time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(DateOnly(asOf))
}
