package persistence

import (
	"context"
	"errors"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fingerprintWhere is the column predicate of the idempotency fingerprint.
const fingerprintWhere = "scope = ? AND warehouse_id = ? AND item_id = ? AND batch_code_key = ? AND reason = ? AND ref = ? AND ref_line = ?"

// GormLedgerRepository implements LedgerRepository using GORM. The ledger
// table is append-only; the unique fingerprint index is what makes every
// workflow in this module replay-safe.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Insert appends one entry. Returns the new row ID, or 0 when the
// idempotency fingerprint already exists; in that case NULL auxiliary
// columns of the existing row are back-filled best-effort.
func (r *GormLedgerRepository) Insert(ctx context.Context, entry *inventory.LedgerEntry) (int64, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "scope"}, {Name: "warehouse_id"}, {Name: "item_id"},
			{Name: "batch_code_key"}, {Name: "reason"}, {Name: "ref"}, {Name: "ref_line"},
		},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return 0, translateIntegrityError(result.Error)
	}
	if result.RowsAffected > 0 {
		return entry.ID, nil
	}

	// Fingerprint replay: back-fill what the first write didn't know.
	fp := entry.Fingerprint()
	if err := r.db.WithContext(ctx).Exec(`
		UPDATE stock_ledger SET
			reason_canon    = COALESCE(reason_canon, ?),
			sub_reason      = COALESCE(sub_reason, ?),
			trace_id        = COALESCE(trace_id, ?),
			production_date = COALESCE(production_date, ?),
			expiry_date     = COALESCE(expiry_date, ?)
		WHERE `+fingerprintWhere,
		entry.ReasonCanon, entry.SubReason, entry.TraceID, entry.ProductionDate, entry.ExpiryDate,
		fp.Scope, fp.WarehouseID, fp.ItemID, fp.BatchCodeKey, fp.Reason, fp.Ref, fp.RefLine,
	).Error; err != nil {
		return 0, err
	}
	return 0, nil
}

// FindByFingerprint returns the entry carrying the fingerprint, or
// shared.ErrNotFound
func (r *GormLedgerRepository) FindByFingerprint(ctx context.Context, fp inventory.Fingerprint) (*inventory.LedgerEntry, error) {
	var entry inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where(fingerprintWhere, fp.Scope, fp.WarehouseID, fp.ItemID, fp.BatchCodeKey, fp.Reason, fp.Ref, fp.RefLine).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByRef returns all entries of a scope with the given ref
func (r *GormLedgerRepository) FindByRef(ctx context.Context, scope inventory.Scope, ref string) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND ref = ?", scope, ref).
		Order("ref_line ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumShippedByRef sums deltas already booked under a shipment ref for the
// item. A nil batchCodeKey sums across all batch keys.
func (r *GormLedgerRepository) SumShippedByRef(ctx context.Context, scope inventory.Scope, ref string, warehouseID, itemID int64, batchCodeKey *string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("scope = ? AND ref = ? AND warehouse_id = ? AND item_id = ?", scope, ref, warehouseID, itemID)
	if batchCodeKey != nil {
		query = query.Where("batch_code_key = ?", *batchCodeKey)
	}

	var total int64
	if err := query.Select("COALESCE(SUM(delta), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumBySlot sums all deltas contributing to one slot key
func (r *GormLedgerRepository) SumBySlot(ctx context.Context, key inventory.SlotKey) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("scope = ? AND warehouse_id = ? AND item_id = ? AND batch_code_key = ?",
			key.Scope, key.WarehouseID, key.ItemID, key.BatchCodeKey).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// TotalDelta sums all deltas of a scope
func (r *GormLedgerRepository) TotalDelta(ctx context.Context, scope inventory.Scope) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("scope = ?", scope).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Query returns a page of entries matching the query, newest first
func (r *GormLedgerRepository) Query(ctx context.Context, q inventory.LedgerQuery) (*shared.Paginated[inventory.LedgerEntry], error) {
	query := r.db.WithContext(ctx).Model(&inventory.LedgerEntry{}).Where("scope = ?", q.Scope)
	if q.WarehouseID != 0 {
		query = query.Where("warehouse_id = ?", q.WarehouseID)
	}
	if q.ItemID != 0 {
		query = query.Where("item_id = ?", q.ItemID)
	}
	if q.Reason != "" {
		query = query.Where("reason = ? OR reason_canon = ?", q.Reason, q.Reason)
	}
	if q.Ref != "" {
		query = query.Where("ref = ?", q.Ref)
	}
	if q.From != nil {
		query = query.Where("occurred_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("occurred_at < ?", *q.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []inventory.LedgerEntry
	if err := query.
		Order("occurred_at DESC, id DESC").
		Offset(q.Filter.Offset()).
		Limit(q.Filter.Limit()).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(entries, total, q.Filter.Page, q.Filter.Limit())
	return &page, nil
}

// DiffAgainstStocks returns every key of the scope where the summed ledger
// and the stocks table disagree
func (r *GormLedgerRepository) DiffAgainstStocks(ctx context.Context, scope inventory.Scope) ([]inventory.ReconcileRow, error) {
	var rows []inventory.ReconcileRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(l.warehouse_id, s.warehouse_id)     AS warehouse_id,
			COALESCE(l.item_id, s.item_id)               AS item_id,
			COALESCE(l.batch_code_key, s.batch_code_key) AS batch_code_key,
			COALESCE(l.ledger_qty, 0)                    AS ledger_qty,
			COALESCE(s.qty, 0)                           AS stock_qty,
			COALESCE(l.ledger_qty, 0) - COALESCE(s.qty, 0) AS diff
		FROM (
			SELECT warehouse_id, item_id, batch_code_key, SUM(delta) AS ledger_qty
			FROM stock_ledger
			WHERE scope = ?
			GROUP BY warehouse_id, item_id, batch_code_key
		) l
		FULL OUTER JOIN (
			SELECT warehouse_id, item_id, batch_code_key, qty
			FROM stocks
			WHERE scope = ?
		) s
		  ON s.warehouse_id = l.warehouse_id
		 AND s.item_id = l.item_id
		 AND s.batch_code_key = l.batch_code_key
		WHERE COALESCE(l.ledger_qty, 0) <> COALESCE(s.qty, 0)
		ORDER BY item_id, warehouse_id, batch_code_key`,
		scope, scope).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Scope = scope
	}
	return rows, nil
}

// Ensure GormLedgerRepository implements LedgerRepository
var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
