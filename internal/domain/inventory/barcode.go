package inventory

import (
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// Barcode maps a raw scanned code to an item. WarehouseID is set for codes
// that only resolve inside one site, nil for global codes.
type Barcode struct {
	Barcode     string    `json:"barcode" gorm:"primaryKey;type:varchar(100)"`
	ItemID      int64     `json:"item_id" gorm:"not null"`
	WarehouseID *int64    `json:"warehouse_id,omitempty"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (Barcode) TableName() string {
	return "barcodes"
}

// NewBarcode registers a mapping from a raw code to an item.
func NewBarcode(code string, itemID int64, warehouseID *int64) (*Barcode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_BARCODE", "Barcode cannot be empty")
	}
	if len(code) > 100 {
		return nil, shared.NewDomainError("INVALID_BARCODE", "Barcode exceeds 100 characters")
	}
	if itemID <= 0 {
		return nil, shared.NewDomainError("INVALID_ITEM", "Barcode requires an item")
	}
	return &Barcode{Barcode: code, ItemID: itemID, WarehouseID: warehouseID}, nil
}

// MatchesWarehouse reports whether the mapping applies in the given
// warehouse. Global mappings match everywhere.
func (b *Barcode) MatchesWarehouse(warehouseID int64) bool {
	return b.WarehouseID == nil || *b.WarehouseID == warehouseID
}
