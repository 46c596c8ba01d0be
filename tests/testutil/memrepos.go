// Package testutil provides common test utilities for the WMS backend.
package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// MemRepos is an in-memory implementation of every inventory repository.
// It mirrors the database semantics the workflows rely on: generated
// batch_code_key, ledger fingerprint uniqueness with auxiliary back-fill,
// and snapshot rebuild from production stocks.
type MemRepos struct {
	Items     map[int64]*inventory.Item
	Batches   []*inventory.Batch
	Stocks    []*inventory.StockSlot
	Ledger    []*inventory.LedgerEntry
	Snapshots []*inventory.Snapshot
	Barcodes  map[string]*inventory.Barcode
	POLines   []*inventory.PurchaseOrderLine
	VRTasks   map[int64]*inventory.VendorReturnTask
	lastID    int64
}

// NewMemRepos creates an empty in-memory store.
func NewMemRepos() *MemRepos {
	return &MemRepos{
		Items:    make(map[int64]*inventory.Item),
		Barcodes: make(map[string]*inventory.Barcode),
		VRTasks:  make(map[int64]*inventory.VendorReturnTask),
	}
}

// NextID hands out a unique identifier.
func (m *MemRepos) NextID() int64 {
	m.lastID++
	return m.lastID
}

// SnapshotRepo adapts the store to inventory.SnapshotRepository. The
// adapter exists because TotalQty and DiffAgainstStocks collide with the
// stock and ledger interfaces on the same receiver.
func (m *MemRepos) SnapshotRepo() inventory.SnapshotRepository {
	return memSnapshotRepo{m}
}

// BarcodeRepo adapts the store to inventory.BarcodeRepository.
func (m *MemRepos) BarcodeRepo() inventory.BarcodeRepository {
	return memBarcodeRepo{m}
}

// PORepo adapts the store to inventory.PurchaseOrderRepository.
func (m *MemRepos) PORepo() inventory.PurchaseOrderRepository {
	return memPORepo{m}
}

type memSnapshotRepo struct{ *MemRepos }

func (r memSnapshotRepo) TotalQty(_ context.Context, day time.Time) (int64, error) {
	day = inventory.DateOnly(day)
	var total int64
	for _, s := range r.Snapshots {
		if inventory.DateOnly(s.SnapshotDate).Equal(day) {
			total += s.QtyOnHand
		}
	}
	return total, nil
}

func (r memSnapshotRepo) DiffAgainstStocks(_ context.Context, day time.Time) ([]inventory.SnapshotMismatch, error) {
	day = inventory.DateOnly(day)
	snap := make(map[inventory.SlotKey]int64)
	for _, s := range r.Snapshots {
		if inventory.DateOnly(s.SnapshotDate).Equal(day) {
			var code *string
			if s.BatchCode != inventory.NullBatchKey {
				c := s.BatchCode
				code = &c
			}
			key := inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: s.WarehouseID, ItemID: s.ItemID, BatchCodeKey: inventory.BatchCodeKey(code)}
			snap[key] = s.QtyOnHand
		}
	}
	var out []inventory.SnapshotMismatch
	for _, s := range r.Stocks {
		if s.Scope != inventory.ScopeProd {
			continue
		}
		if snap[s.Key()] != s.Qty {
			out = append(out, inventory.SnapshotMismatch{
				WarehouseID:  s.WarehouseID,
				ItemID:       s.ItemID,
				BatchCodeKey: s.BatchCodeKey,
				StockQty:     s.Qty,
				SnapshotQty:  snap[s.Key()],
			})
		}
	}
	return out, nil
}

type memBarcodeRepo struct{ *MemRepos }

func (r memBarcodeRepo) Save(ctx context.Context, barcode *inventory.Barcode) error {
	return r.SaveBarcode(ctx, barcode)
}

type memPORepo struct{ *MemRepos }

func (r memPORepo) Save(ctx context.Context, line *inventory.PurchaseOrderLine) error {
	return r.SavePOLine(ctx, line)
}

// SeedItem registers a catalogue entry.
func (m *MemRepos) SeedItem(id int64, requiresBatch bool, shelfLifeDays *int) *inventory.Item {
	item := &inventory.Item{
		SKU:           "SKU-" + time.Now().Format("150405.000000000"),
		Name:          "item",
		RequiresBatch: requiresBatch,
		ShelfLifeDays: shelfLifeDays,
	}
	item.ID = id
	m.Items[id] = item
	return item
}

// SeedStock materialises a slot with quantity and optional batch expiry.
func (m *MemRepos) SeedStock(scope inventory.Scope, warehouseID, itemID int64, batchCode string, qty int64, expiry *time.Time) *inventory.StockSlot {
	var code *string
	if batchCode != "" {
		code = &batchCode
		m.Batches = append(m.Batches, &inventory.Batch{
			WarehouseID: warehouseID,
			ItemID:      itemID,
			BatchCode:   batchCode,
			ExpiryDate:  inventory.DateOnlyPtr(expiry),
		})
	}
	slot := &inventory.StockSlot{
		ID:           m.NextID(),
		Scope:        scope,
		WarehouseID:  warehouseID,
		ItemID:       itemID,
		BatchCode:    code,
		BatchCodeKey: inventory.BatchCodeKey(code),
		Qty:          qty,
	}
	m.Stocks = append(m.Stocks, slot)
	// keep the ledger in agreement so conservation holds from the start
	if qty != 0 {
		m.Ledger = append(m.Ledger, &inventory.LedgerEntry{
			ID:           m.NextID(),
			Scope:        scope,
			WarehouseID:  warehouseID,
			ItemID:       itemID,
			BatchCode:    code,
			BatchCodeKey: inventory.BatchCodeKey(code),
			Reason:       inventory.RawReasonReceipt,
			Ref:          "SEED",
			RefLine:      slot.ID,
			Delta:        qty,
			AfterQty:     qty,
			OccurredAt:   time.Now().UTC(),
		})
	}
	return slot
}

// SeedBarcode registers a raw code to item mapping.
func (m *MemRepos) SeedBarcode(code string, itemID int64, warehouseID *int64) *inventory.Barcode {
	b := &inventory.Barcode{Barcode: code, ItemID: itemID, WarehouseID: warehouseID}
	m.Barcodes[code] = b
	return b
}

// --- ItemRepository ---

func (m *MemRepos) FindByID(_ context.Context, id int64) (*inventory.Item, error) {
	if item, ok := m.Items[id]; ok {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) FindByIDs(_ context.Context, ids []int64) (map[int64]*inventory.Item, error) {
	out := make(map[int64]*inventory.Item, len(ids))
	for _, id := range ids {
		if item, ok := m.Items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (m *MemRepos) FindBySKU(_ context.Context, sku string) (*inventory.Item, error) {
	for _, item := range m.Items {
		if item.SKU == sku {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) Save(_ context.Context, item *inventory.Item) error {
	if item.ID == 0 {
		item.ID = m.NextID()
	}
	m.Items[item.ID] = item
	return nil
}

func (m *MemRepos) List(_ context.Context, filter shared.Filter) (*shared.Paginated[inventory.Item], error) {
	items := make([]inventory.Item, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, *item)
	}
	p := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.Limit())
	return &p, nil
}

// --- BatchRepository ---

func (m *MemRepos) FindByNaturalKey(_ context.Context, warehouseID, itemID int64, batchCode string) (*inventory.Batch, error) {
	for _, b := range m.Batches {
		if b.WarehouseID == warehouseID && b.ItemID == itemID && b.BatchCode == batchCode {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) Ensure(_ context.Context, batch *inventory.Batch) (*inventory.Batch, error) {
	for _, b := range m.Batches {
		if b.WarehouseID == batch.WarehouseID && b.ItemID == batch.ItemID && b.BatchCode == batch.BatchCode {
			if b.ProductionDate == nil {
				b.ProductionDate = batch.ProductionDate
			}
			if b.ExpiryDate == nil {
				b.ExpiryDate = batch.ExpiryDate
			}
			return b, nil
		}
	}
	batch.ID = m.NextID()
	m.Batches = append(m.Batches, batch)
	return batch, nil
}

func (m *MemRepos) ListExpiringBefore(_ context.Context, warehouseID int64, horizon time.Time, _ shared.Filter) ([]inventory.Batch, error) {
	var out []inventory.Batch
	for _, b := range m.Batches {
		if b.WarehouseID == warehouseID && b.ExpiryDate != nil && b.ExpiryDate.Before(horizon) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// --- StockRepository ---

func (m *MemRepos) findSlot(key inventory.SlotKey) *inventory.StockSlot {
	for _, s := range m.Stocks {
		if s.Scope == key.Scope && s.WarehouseID == key.WarehouseID &&
			s.ItemID == key.ItemID && s.BatchCodeKey == key.BatchCodeKey {
			return s
		}
	}
	return nil
}

func (m *MemRepos) EnsureSlot(_ context.Context, scope inventory.Scope, warehouseID, itemID int64, batchCode *string) (*inventory.StockSlot, error) {
	key := inventory.SlotKey{Scope: scope, WarehouseID: warehouseID, ItemID: itemID, BatchCodeKey: inventory.BatchCodeKey(batchCode)}
	if slot := m.findSlot(key); slot != nil {
		return slot, nil
	}
	slot := &inventory.StockSlot{
		ID:           m.NextID(),
		Scope:        scope,
		WarehouseID:  warehouseID,
		ItemID:       itemID,
		BatchCode:    batchCode,
		BatchCodeKey: key.BatchCodeKey,
	}
	m.Stocks = append(m.Stocks, slot)
	return slot, nil
}

func (m *MemRepos) FindForUpdate(_ context.Context, key inventory.SlotKey) (*inventory.StockSlot, error) {
	if slot := m.findSlot(key); slot != nil {
		return slot, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) Find(_ context.Context, key inventory.SlotKey) (*inventory.StockSlot, error) {
	if slot := m.findSlot(key); slot != nil {
		return slot, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) ListForUpdateByItem(_ context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.FefoCandidate, error) {
	var out []inventory.FefoCandidate
	for _, s := range m.Stocks {
		if s.Scope != scope || s.WarehouseID != warehouseID || s.ItemID != itemID || s.Qty <= 0 {
			continue
		}
		var expiry *time.Time
		if s.BatchCode != nil {
			if b, err := m.FindByNaturalKey(context.Background(), warehouseID, itemID, *s.BatchCode); err == nil {
				expiry = b.ExpiryDate
			}
		}
		out = append(out, inventory.FefoCandidate{
			StockID:    s.ID,
			BatchCode:  s.BatchCode,
			ExpiryDate: expiry,
			Available:  s.Qty,
		})
	}
	return out, nil
}

func (m *MemRepos) UpdateQty(_ context.Context, stockID int64, qty int64) error {
	for _, s := range m.Stocks {
		if s.ID == stockID {
			s.Qty = qty
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *MemRepos) ListByWarehouse(_ context.Context, scope inventory.Scope, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.StockSlot], error) {
	var out []inventory.StockSlot
	for _, s := range m.Stocks {
		if s.Scope == scope && s.WarehouseID == warehouseID {
			out = append(out, *s)
		}
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.Limit())
	return &p, nil
}

func (m *MemRepos) ListByItem(_ context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.StockSlot, error) {
	var out []inventory.StockSlot
	for _, s := range m.Stocks {
		if s.Scope == scope && s.WarehouseID == warehouseID && s.ItemID == itemID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *MemRepos) TotalQty(_ context.Context, scope inventory.Scope) (int64, error) {
	var total int64
	for _, s := range m.Stocks {
		if s.Scope == scope {
			total += s.Qty
		}
	}
	return total, nil
}

// --- LedgerRepository ---

func (m *MemRepos) Insert(_ context.Context, entry *inventory.LedgerEntry) (int64, error) {
	fp := inventory.Fingerprint{
		Scope:        entry.Scope,
		WarehouseID:  entry.WarehouseID,
		ItemID:       entry.ItemID,
		BatchCodeKey: inventory.BatchCodeKey(entry.BatchCode),
		Reason:       entry.Reason,
		Ref:          entry.Ref,
		RefLine:      entry.RefLine,
	}
	for _, e := range m.Ledger {
		if e.Fingerprint() == fp {
			if e.ReasonCanon == nil {
				e.ReasonCanon = entry.ReasonCanon
			}
			if e.SubReason == nil {
				e.SubReason = entry.SubReason
			}
			if e.TraceID == nil {
				e.TraceID = entry.TraceID
			}
			if e.ProductionDate == nil {
				e.ProductionDate = entry.ProductionDate
			}
			if e.ExpiryDate == nil {
				e.ExpiryDate = entry.ExpiryDate
			}
			return 0, nil
		}
	}
	entry.ID = m.NextID()
	entry.BatchCodeKey = inventory.BatchCodeKey(entry.BatchCode)
	entry.CreatedAt = time.Now().UTC()
	m.Ledger = append(m.Ledger, entry)
	return entry.ID, nil
}

func (m *MemRepos) FindByFingerprint(_ context.Context, fp inventory.Fingerprint) (*inventory.LedgerEntry, error) {
	for _, e := range m.Ledger {
		if e.Fingerprint() == fp {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) FindByRef(_ context.Context, scope inventory.Scope, ref string) ([]inventory.LedgerEntry, error) {
	var out []inventory.LedgerEntry
	for _, e := range m.Ledger {
		if e.Scope == scope && e.Ref == ref {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *MemRepos) SumShippedByRef(_ context.Context, scope inventory.Scope, ref string, warehouseID, itemID int64, batchCodeKey *string) (int64, error) {
	var total int64
	for _, e := range m.Ledger {
		if e.Scope != scope || e.Ref != ref || e.WarehouseID != warehouseID || e.ItemID != itemID {
			continue
		}
		if batchCodeKey != nil && e.BatchCodeKey != *batchCodeKey {
			continue
		}
		total += e.Delta
	}
	return total, nil
}

func (m *MemRepos) SumBySlot(_ context.Context, key inventory.SlotKey) (int64, error) {
	var total int64
	for _, e := range m.Ledger {
		if e.SlotKey() == key {
			total += e.Delta
		}
	}
	return total, nil
}

func (m *MemRepos) TotalDelta(_ context.Context, scope inventory.Scope) (int64, error) {
	var total int64
	for _, e := range m.Ledger {
		if e.Scope == scope {
			total += e.Delta
		}
	}
	return total, nil
}

func (m *MemRepos) Query(_ context.Context, q inventory.LedgerQuery) (*shared.Paginated[inventory.LedgerEntry], error) {
	var out []inventory.LedgerEntry
	for _, e := range m.Ledger {
		if e.Scope != q.Scope {
			continue
		}
		if q.WarehouseID != 0 && e.WarehouseID != q.WarehouseID {
			continue
		}
		if q.ItemID != 0 && e.ItemID != q.ItemID {
			continue
		}
		if q.Ref != "" && e.Ref != q.Ref {
			continue
		}
		if q.Reason != "" && !strings.EqualFold(e.Reason, q.Reason) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	p := shared.NewPaginated(out, int64(len(out)), q.Filter.Page, q.Filter.Limit())
	return &p, nil
}

func (m *MemRepos) DiffAgainstStocks(_ context.Context, scope inventory.Scope) ([]inventory.ReconcileRow, error) {
	ledgerSums := make(map[inventory.SlotKey]int64)
	for _, e := range m.Ledger {
		if e.Scope == scope {
			ledgerSums[e.SlotKey()] += e.Delta
		}
	}
	stockQty := make(map[inventory.SlotKey]int64)
	for _, s := range m.Stocks {
		if s.Scope == scope {
			stockQty[s.Key()] = s.Qty
		}
	}
	keys := make(map[inventory.SlotKey]struct{})
	for k := range ledgerSums {
		keys[k] = struct{}{}
	}
	for k := range stockQty {
		keys[k] = struct{}{}
	}

	var rows []inventory.ReconcileRow
	for k := range keys {
		if ledgerSums[k] == stockQty[k] {
			continue
		}
		rows = append(rows, inventory.ReconcileRow{
			Scope:        k.Scope,
			WarehouseID:  k.WarehouseID,
			ItemID:       k.ItemID,
			BatchCodeKey: k.BatchCodeKey,
			LedgerQty:    ledgerSums[k],
			StockQty:     stockQty[k],
			Diff:         ledgerSums[k] - stockQty[k],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows, nil
}

// --- SnapshotRepository ---

func (m *MemRepos) RebuildDay(_ context.Context, day time.Time) (int64, error) {
	day = inventory.DateOnly(day)
	kept := m.Snapshots[:0]
	for _, s := range m.Snapshots {
		if !inventory.DateOnly(s.SnapshotDate).Equal(day) {
			kept = append(kept, s)
		}
	}
	m.Snapshots = kept

	var written int64
	for _, s := range m.Stocks {
		if s.Scope != inventory.ScopeProd {
			continue
		}
		m.Snapshots = append(m.Snapshots, &inventory.Snapshot{
			SnapshotDate: day,
			WarehouseID:  s.WarehouseID,
			ItemID:       s.ItemID,
			BatchCode:    s.BatchCodeKey,
			QtyOnHand:    s.Qty,
			QtyAvailable: s.Qty,
		})
		written++
	}
	return written, nil
}

func (m *MemRepos) BackfillDay(ctx context.Context, prevDay, day time.Time) (int64, error) {
	prevDay = inventory.DateOnly(prevDay)
	day = inventory.DateOnly(day)

	qty := make(map[inventory.SlotKey]int64)
	for _, s := range m.Snapshots {
		if inventory.DateOnly(s.SnapshotDate).Equal(prevDay) {
			var code *string
			if s.BatchCode != inventory.NullBatchKey {
				c := s.BatchCode
				code = &c
			}
			key := inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: s.WarehouseID, ItemID: s.ItemID, BatchCodeKey: inventory.BatchCodeKey(code)}
			qty[key] = s.QtyOnHand
		}
	}
	for _, e := range m.Ledger {
		if e.Scope != inventory.ScopeProd {
			continue
		}
		occurred := inventory.DateOnly(e.OccurredAt)
		if occurred.After(prevDay) && !occurred.After(day) {
			qty[e.SlotKey()] += e.Delta
		}
	}

	kept := m.Snapshots[:0]
	for _, s := range m.Snapshots {
		if !inventory.DateOnly(s.SnapshotDate).Equal(day) {
			kept = append(kept, s)
		}
	}
	m.Snapshots = kept

	var written int64
	for key, q := range qty {
		m.Snapshots = append(m.Snapshots, &inventory.Snapshot{
			SnapshotDate: day,
			WarehouseID:  key.WarehouseID,
			ItemID:       key.ItemID,
			BatchCode:    key.BatchCodeKey,
			QtyOnHand:    q,
			QtyAvailable: q,
		})
		written++
	}
	return written, nil
}

func (m *MemRepos) FindQty(_ context.Context, day time.Time, warehouseID, itemID int64, batchCodeKey string) (int64, error) {
	day = inventory.DateOnly(day)
	for _, s := range m.Snapshots {
		if inventory.DateOnly(s.SnapshotDate).Equal(day) && s.WarehouseID == warehouseID &&
			s.ItemID == itemID && s.BatchCode == batchCodeKey {
			return s.QtyOnHand, nil
		}
	}
	return 0, nil
}

func (m *MemRepos) LatestDay(_ context.Context) (time.Time, error) {
	var latest time.Time
	for _, s := range m.Snapshots {
		if s.SnapshotDate.After(latest) {
			latest = s.SnapshotDate
		}
	}
	if latest.IsZero() {
		return time.Time{}, shared.ErrNotFound
	}
	return latest, nil
}

func (m *MemRepos) ListByDay(_ context.Context, day time.Time, filter shared.Filter) (*shared.Paginated[inventory.Snapshot], error) {
	day = inventory.DateOnly(day)
	var out []inventory.Snapshot
	for _, s := range m.Snapshots {
		if inventory.DateOnly(s.SnapshotDate).Equal(day) {
			out = append(out, *s)
		}
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.Limit())
	return &p, nil
}

// --- BarcodeRepository ---

func (m *MemRepos) FindByCode(_ context.Context, code string) (*inventory.Barcode, error) {
	if b, ok := m.Barcodes[code]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) SaveBarcode(_ context.Context, barcode *inventory.Barcode) error {
	m.Barcodes[barcode.Barcode] = barcode
	return nil
}

// --- PurchaseOrderRepository ---

func (m *MemRepos) FindLine(_ context.Context, poNo string, lineNo int) (*inventory.PurchaseOrderLine, error) {
	for _, l := range m.POLines {
		if l.PONo == poNo && l.LineNo == lineNo {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) FindLineByID(_ context.Context, id int64) (*inventory.PurchaseOrderLine, error) {
	for _, l := range m.POLines {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) FindLinesByPO(_ context.Context, poNo string) ([]inventory.PurchaseOrderLine, error) {
	var out []inventory.PurchaseOrderLine
	for _, l := range m.POLines {
		if l.PONo == poNo {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out, nil
}

func (m *MemRepos) SavePOLine(_ context.Context, line *inventory.PurchaseOrderLine) error {
	if line.ID == 0 {
		line.ID = m.NextID()
		m.POLines = append(m.POLines, line)
		return nil
	}
	for i, l := range m.POLines {
		if l.ID == line.ID {
			m.POLines[i] = line
			return nil
		}
	}
	m.POLines = append(m.POLines, line)
	return nil
}

// --- VendorReturnRepository ---

func (m *MemRepos) FindTaskByID(_ context.Context, id int64) (*inventory.VendorReturnTask, error) {
	if t, ok := m.VRTasks[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MemRepos) ListOpenTasks(_ context.Context, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.VendorReturnTask], error) {
	var out []inventory.VendorReturnTask
	for _, t := range m.VRTasks {
		if t.WarehouseID == warehouseID && t.Status == inventory.VendorReturnStatusOpen {
			out = append(out, *t)
		}
	}
	p := shared.NewPaginated(out, int64(len(out)), filter.Page, filter.Limit())
	return &p, nil
}

func (m *MemRepos) SaveTask(_ context.Context, task *inventory.VendorReturnTask) error {
	if task.ID == 0 {
		task.ID = m.NextID()
	}
	for i := range task.Lines {
		if task.Lines[i].ID == 0 {
			task.Lines[i].ID = m.NextID()
			task.Lines[i].TaskID = task.ID
		}
	}
	m.VRTasks[task.ID] = task
	return nil
}

func (m *MemRepos) SaveLine(_ context.Context, line *inventory.VendorReturnLine) error {
	task, ok := m.VRTasks[line.TaskID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range task.Lines {
		if task.Lines[i].ID == line.ID {
			task.Lines[i] = *line
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *MemRepos) ClaimNextLine(_ context.Context, taskID int64) (*inventory.VendorReturnLine, error) {
	task, ok := m.VRTasks[taskID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for i := range task.Lines {
		if task.Lines[i].Remaining() > 0 {
			return &task.Lines[i], nil
		}
	}
	return nil, shared.ErrNotFound
}
