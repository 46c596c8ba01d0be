package inventory

import (
	"strings"

	"github.com/wms/backend/internal/domain/shared"
)

// Item is a catalogue entry. Items are created by catalogue management,
// referenced by every other inventory entity, and never deleted.
type Item struct {
	shared.BaseEntity
	SKU             string `gorm:"column:sku;uniqueIndex:uq_items_sku" json:"sku"`
	Name            string `json:"name"`
	RequiresBatch   bool   `gorm:"column:requires_batch" json:"requires_batch"`
	ShelfLifeDays   *int   `json:"shelf_life_days,omitempty"`
	ShelfLifeMonths *int   `json:"shelf_life_months,omitempty"`
}

// TableName returns the database table name
func (Item) TableName() string {
	return "items"
}

// NewItem creates a catalogue entry. The batch requirement is derived from
// the shelf life: an item with a finite shelf life must move in batches.
func NewItem(sku, name string, shelfLifeDays, shelfLifeMonths *int) (*Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "SKU cannot be empty")
	}
	item := &Item{
		SKU:             sku,
		Name:            name,
		ShelfLifeDays:   shelfLifeDays,
		ShelfLifeMonths: shelfLifeMonths,
	}
	item.RequiresBatch = item.HasShelfLife()
	return item, nil
}

// HasShelfLife returns true when a positive shelf life is configured,
// in days or calendar months.
func (i *Item) HasShelfLife() bool {
	if i.ShelfLifeDays != nil && *i.ShelfLifeDays > 0 {
		return true
	}
	return i.ShelfLifeMonths != nil && *i.ShelfLifeMonths > 0
}
