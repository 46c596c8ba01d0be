package inventory

import (
	"context"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// ItemRepository defines the interface for item master persistence
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id int64) (*Item, error)

	// FindByIDs finds multiple items and returns them keyed by ID
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*Item, error)

	// FindBySKU finds an item by its unique SKU
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error

	// List returns a page of items
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[Item], error)
}

// BatchRepository defines the interface for batch master persistence.
// Batches carry dates only; quantity lives on stocks.
type BatchRepository interface {
	// FindByNaturalKey finds a batch by (warehouse, item, code)
	FindByNaturalKey(ctx context.Context, warehouseID, itemID int64, batchCode string) (*Batch, error)

	// Ensure inserts the batch if missing. On conflict it back-fills only
	// NULL date columns; an existing non-NULL date is never overwritten.
	// Returns the row as persisted.
	Ensure(ctx context.Context, batch *Batch) (*Batch, error)

	// ListExpiringBefore returns batches of a warehouse whose expiry falls
	// before the horizon, soonest first
	ListExpiringBefore(ctx context.Context, warehouseID int64, horizon time.Time, filter shared.Filter) ([]Batch, error)
}

// StockRepository defines the interface for stock slot persistence. Slots
// are the only rows that carry live quantity; every mutation goes through
// a FOR UPDATE lock taken here.
type StockRepository interface {
	// EnsureSlot inserts a zero-quantity slot for the key if none exists,
	// then returns the row locked FOR UPDATE
	EnsureSlot(ctx context.Context, scope Scope, warehouseID, itemID int64, batchCode *string) (*StockSlot, error)

	// FindForUpdate returns the slot locked FOR UPDATE, or shared.ErrNotFound
	FindForUpdate(ctx context.Context, key SlotKey) (*StockSlot, error)

	// Find returns the slot without locking, or shared.ErrNotFound
	Find(ctx context.Context, key SlotKey) (*StockSlot, error)

	// ListForUpdateByItem locks every slot of (scope, warehouse, item)
	// FOR UPDATE and returns them joined with batch expiry dates, ready
	// for allocation planning
	ListForUpdateByItem(ctx context.Context, scope Scope, warehouseID, itemID int64) ([]FefoCandidate, error)

	// UpdateQty sets the quantity of a locked slot
	UpdateQty(ctx context.Context, stockID int64, qty int64) error

	// ListByWarehouse returns a page of slots in a warehouse
	ListByWarehouse(ctx context.Context, scope Scope, warehouseID int64, filter shared.Filter) (*shared.Paginated[StockSlot], error)

	// ListByItem returns all slots of an item in a warehouse
	ListByItem(ctx context.Context, scope Scope, warehouseID, itemID int64) ([]StockSlot, error)

	// TotalQty sums quantity across all slots of a scope
	TotalQty(ctx context.Context, scope Scope) (int64, error)
}

// LedgerQuery filters ledger listings.
type LedgerQuery struct {
	Scope       Scope
	WarehouseID int64
	ItemID      int64
	Reason      string
	Ref         string
	From        *time.Time
	To          *time.Time
	Filter      shared.Filter
}

// ReconcileRow is one key where the summed ledger disagrees with the live
// stock quantity. Diff is ledger minus stocks.
type ReconcileRow struct {
	Scope        Scope  `json:"scope"`
	WarehouseID  int64  `json:"warehouse_id"`
	ItemID       int64  `json:"item_id"`
	BatchCodeKey string `json:"batch_code_key"`
	LedgerQty    int64  `json:"ledger_qty"`
	StockQty     int64  `json:"stock_qty"`
	Diff         int64  `json:"diff"`
}

// LedgerRepository defines the interface for the append-only stock ledger.
type LedgerRepository interface {
	// Insert appends one entry. Returns the new row ID, or 0 when the
	// idempotency fingerprint already exists; in that case NULL auxiliary
	// columns of the existing row are back-filled best-effort.
	Insert(ctx context.Context, entry *LedgerEntry) (int64, error)

	// FindByFingerprint returns the entry carrying the fingerprint, or
	// shared.ErrNotFound
	FindByFingerprint(ctx context.Context, fp Fingerprint) (*LedgerEntry, error)

	// FindByRef returns all entries of a scope with the given ref
	FindByRef(ctx context.Context, scope Scope, ref string) ([]LedgerEntry, error)

	// SumShippedByRef sums outbound deltas already booked under a shipment
	// ref for the item. A nil batchCodeKey sums across all batch keys.
	SumShippedByRef(ctx context.Context, scope Scope, ref string, warehouseID, itemID int64, batchCodeKey *string) (int64, error)

	// SumBySlot sums all deltas contributing to one slot key
	SumBySlot(ctx context.Context, key SlotKey) (int64, error)

	// TotalDelta sums all deltas of a scope
	TotalDelta(ctx context.Context, scope Scope) (int64, error)

	// Query returns a page of entries matching the query, newest first
	Query(ctx context.Context, q LedgerQuery) (*shared.Paginated[LedgerEntry], error)

	// DiffAgainstStocks returns every key of the scope where the summed
	// ledger and the stocks table disagree
	DiffAgainstStocks(ctx context.Context, scope Scope) ([]ReconcileRow, error)
}

// SnapshotRepository defines the interface for the daily stock snapshot.
type SnapshotRepository interface {
	// RebuildDay deletes the snapshot for the day and re-inserts it from
	// the live stocks of the production scope. Returns rows written.
	RebuildDay(ctx context.Context, day time.Time) (int64, error)

	// BackfillDay derives the snapshot of day from the snapshot of prevDay
	// plus the ledger deltas of the (prevDay, day] window. Returns rows
	// written. The day's existing rows are replaced.
	BackfillDay(ctx context.Context, prevDay, day time.Time) (int64, error)

	// FindQty returns the snapshotted on-hand quantity of one key on one
	// day; defaults to 0 when the key has no row
	FindQty(ctx context.Context, day time.Time, warehouseID, itemID int64, batchCodeKey string) (int64, error)

	// LatestDay returns the most recent snapshot date, or shared.ErrNotFound
	// when no snapshot exists yet
	LatestDay(ctx context.Context) (time.Time, error)

	// ListByDay returns the snapshot rows of one day
	ListByDay(ctx context.Context, day time.Time, filter shared.Filter) (*shared.Paginated[Snapshot], error)

	// TotalQty sums the snapshot of one day
	TotalQty(ctx context.Context, day time.Time) (int64, error)

	// DiffAgainstStocks compares the day's snapshot with live production
	// stocks and returns every disagreeing key
	DiffAgainstStocks(ctx context.Context, day time.Time) ([]SnapshotMismatch, error)
}

// BarcodeRepository defines the interface for barcode mappings.
type BarcodeRepository interface {
	// FindByCode returns the mapping for a raw code, or shared.ErrNotFound
	FindByCode(ctx context.Context, code string) (*Barcode, error)

	// Save creates or replaces a mapping
	Save(ctx context.Context, barcode *Barcode) error
}

// PurchaseOrderRepository defines the interface for inbound order lines.
type PurchaseOrderRepository interface {
	// FindLine returns one line by (po_no, line_no), or shared.ErrNotFound
	FindLine(ctx context.Context, poNo string, lineNo int) (*PurchaseOrderLine, error)

	// FindLineByID returns one line by its row ID
	FindLineByID(ctx context.Context, id int64) (*PurchaseOrderLine, error)

	// FindLinesByPO returns all lines of a purchase order ordered by line_no
	FindLinesByPO(ctx context.Context, poNo string) ([]PurchaseOrderLine, error)

	// Save creates or updates a line
	Save(ctx context.Context, line *PurchaseOrderLine) error
}

// VendorReturnRepository defines the interface for return-to-vendor tasks.
type VendorReturnRepository interface {
	// FindTaskByID returns the task with its lines, or shared.ErrNotFound
	FindTaskByID(ctx context.Context, id int64) (*VendorReturnTask, error)

	// ListOpenTasks returns a page of open tasks for a warehouse
	ListOpenTasks(ctx context.Context, warehouseID int64, filter shared.Filter) (*shared.Paginated[VendorReturnTask], error)

	// SaveTask creates or updates a task together with its lines
	SaveTask(ctx context.Context, task *VendorReturnTask) error

	// SaveLine updates a single line
	SaveLine(ctx context.Context, line *VendorReturnLine) error

	// ClaimNextLine locks and returns one line of the task that still has
	// quantity to pick, skipping lines other workers hold. Returns
	// shared.ErrNotFound when every remaining line is taken or done.
	ClaimNextLine(ctx context.Context, taskID int64) (*VendorReturnLine, error)
}
