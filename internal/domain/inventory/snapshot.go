package inventory

import "time"

// Snapshot is one daily observability row, regenerated idempotently from
// operational stocks. It is never a source of truth. QtyAvailable mirrors
// QtyOnHand until allocation tracking lands.
type Snapshot struct {
	SnapshotDate time.Time `gorm:"column:snapshot_date;primaryKey;type:date" json:"snapshot_date"`
	WarehouseID  int64     `gorm:"column:warehouse_id;primaryKey" json:"warehouse_id"`
	ItemID       int64     `gorm:"column:item_id;primaryKey" json:"item_id"`
	// BatchCode holds the slot key token, so NULL batch slots appear under
	// NullBatchKey and the column is never empty.
	BatchCode    string    `gorm:"column:batch_code;primaryKey" json:"batch_code"`
	QtyOnHand    int64     `gorm:"column:qty_on_hand" json:"qty_on_hand"`
	QtyAvailable int64     `gorm:"column:qty_available" json:"qty_available"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the database table name
func (Snapshot) TableName() string {
	return "stock_snapshots"
}

// ThreeBooksSummary is the sanity panel read: total stock on hand, total
// ledger delta, and today's snapshot total. The three agree on a healthy
// system.
type ThreeBooksSummary struct {
	StocksTotal   int64     `json:"stocks_total"`
	LedgerTotal   int64     `json:"ledger_total"`
	SnapshotTotal int64     `json:"snapshot_total"`
	AsOf          time.Time `json:"as_of"`
}

// InBalance returns true when all three books agree.
func (s ThreeBooksSummary) InBalance() bool {
	return s.StocksTotal == s.LedgerTotal && s.StocksTotal == s.SnapshotTotal
}
