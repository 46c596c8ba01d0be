package inventory

import "time"

// StockSlot is the authoritative balance for one quadruple
// (scope, warehouse_id, item_id, batch_code_key). Slots are created on
// demand at qty 0 and remain once materialised, possibly sitting at 0.
type StockSlot struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Scope       Scope     `gorm:"column:scope" json:"scope"`
	WarehouseID int64     `gorm:"column:warehouse_id" json:"warehouse_id"`
	ItemID      int64     `gorm:"column:item_id" json:"item_id"`
	BatchCode   *string   `gorm:"column:batch_code" json:"batch_code,omitempty"`
	// BatchCodeKey is generated by the database from batch_code; NULL codes
	// surface as the NullBatchKey token so they can join uniqueness constraints.
	BatchCodeKey string    `gorm:"column:batch_code_key;->" json:"batch_code_key"`
	Qty          int64     `gorm:"column:qty" json:"qty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the database table name
func (StockSlot) TableName() string {
	return "stocks"
}

// Key returns the slot's logical key.
func (s *StockSlot) Key() SlotKey {
	return SlotKey{
		Scope:        s.Scope,
		WarehouseID:  s.WarehouseID,
		ItemID:       s.ItemID,
		BatchCodeKey: BatchCodeKey(s.BatchCode),
	}
}

// SlotKey identifies one balance row.
type SlotKey struct {
	Scope        Scope
	WarehouseID  int64
	ItemID       int64
	BatchCodeKey string
}
