package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSnapshotRepository implements SnapshotRepository using GORM. Snapshot
// rows are derived data; both rebuild paths replace the whole day so the
// jobs can run any number of times.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// RebuildDay deletes the snapshot for the day and re-inserts it from the
// live stocks of the production scope. Returns rows written.
func (r *GormSnapshotRepository) RebuildDay(ctx context.Context, day time.Time) (int64, error) {
	day = inventory.DateOnly(day)
	if err := r.db.WithContext(ctx).
		Exec(`DELETE FROM stock_snapshots WHERE snapshot_date = ?`, day).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO stock_snapshots (snapshot_date, warehouse_id, item_id, batch_code, qty_on_hand, qty_available)
		SELECT ?, warehouse_id, item_id, batch_code_key, qty, qty
		FROM stocks
		WHERE scope = ?`,
		day, inventory.ScopeProd)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// BackfillDay derives the snapshot of day from the snapshot of prevDay plus
// the ledger deltas of the (prevDay, day] window. Returns rows written. The
// day's existing rows are replaced.
func (r *GormSnapshotRepository) BackfillDay(ctx context.Context, prevDay, day time.Time) (int64, error) {
	prevDay = inventory.DateOnly(prevDay)
	day = inventory.DateOnly(day)
	if err := r.db.WithContext(ctx).
		Exec(`DELETE FROM stock_snapshots WHERE snapshot_date = ?`, day).Error; err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO stock_snapshots (snapshot_date, warehouse_id, item_id, batch_code, qty_on_hand, qty_available)
		SELECT ?, warehouse_id, item_id, batch_code, SUM(qty), SUM(qty)
		FROM (
			SELECT warehouse_id, item_id, batch_code, qty_on_hand AS qty
			FROM stock_snapshots
			WHERE snapshot_date = ?
			UNION ALL
			SELECT warehouse_id, item_id, batch_code_key, delta
			FROM stock_ledger
			WHERE scope = ? AND occurred_at::date > ? AND occurred_at::date <= ?
		) movements
		GROUP BY warehouse_id, item_id, batch_code`,
		day, prevDay, inventory.ScopeProd, prevDay, day)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindQty returns the snapshotted on-hand quantity of one key on one day;
// defaults to 0 when the key has no row
func (r *GormSnapshotRepository) FindQty(ctx context.Context, day time.Time, warehouseID, itemID int64, batchCodeKey string) (int64, error) {
	var qty int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Snapshot{}).
		Where("snapshot_date = ? AND warehouse_id = ? AND item_id = ? AND batch_code = ?",
			inventory.DateOnly(day), warehouseID, itemID, batchCodeKey).
		Select("COALESCE(SUM(qty_on_hand), 0)").
		Scan(&qty).Error; err != nil {
		return 0, err
	}
	return qty, nil
}

// LatestDay returns the most recent snapshot date, or shared.ErrNotFound
// when no snapshot exists yet
func (r *GormSnapshotRepository) LatestDay(ctx context.Context) (time.Time, error) {
	var day *time.Time
	if err := r.db.WithContext(ctx).
		Model(&inventory.Snapshot{}).
		Select("MAX(snapshot_date)").
		Scan(&day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, shared.ErrNotFound
		}
		return time.Time{}, err
	}
	if day == nil {
		return time.Time{}, shared.ErrNotFound
	}
	return *day, nil
}

// ListByDay returns the snapshot rows of one day
func (r *GormSnapshotRepository) ListByDay(ctx context.Context, day time.Time, filter shared.Filter) (*shared.Paginated[inventory.Snapshot], error) {
	query := r.db.WithContext(ctx).Model(&inventory.Snapshot{}).
		Where("snapshot_date = ?", inventory.DateOnly(day))
	if warehouseID, ok := filter.Filters["warehouse_id"]; ok {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if itemID, ok := filter.Filters["item_id"]; ok {
		query = query.Where("item_id = ?", itemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var snapshots []inventory.Snapshot
	if err := query.
		Order("warehouse_id ASC, item_id ASC, batch_code ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(snapshots, total, filter.Page, filter.Limit())
	return &page, nil
}

// TotalQty sums the snapshot of one day
func (r *GormSnapshotRepository) TotalQty(ctx context.Context, day time.Time) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.Snapshot{}).
		Where("snapshot_date = ?", inventory.DateOnly(day)).
		Select("COALESCE(SUM(qty_on_hand), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// DiffAgainstStocks compares the day's snapshot with live production stocks
// and returns every disagreeing key
func (r *GormSnapshotRepository) DiffAgainstStocks(ctx context.Context, day time.Time) ([]inventory.SnapshotMismatch, error) {
	var mismatches []inventory.SnapshotMismatch
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(s.warehouse_id, n.warehouse_id)     AS warehouse_id,
			COALESCE(s.item_id, n.item_id)               AS item_id,
			COALESCE(s.batch_code_key, n.batch_code)     AS batch_code_key,
			COALESCE(s.qty, 0)                           AS stock_qty,
			COALESCE(n.qty_on_hand, 0)                   AS snapshot_qty
		FROM (
			SELECT warehouse_id, item_id, batch_code_key, qty
			FROM stocks
			WHERE scope = ?
		) s
		FULL OUTER JOIN (
			SELECT warehouse_id, item_id, batch_code, qty_on_hand
			FROM stock_snapshots
			WHERE snapshot_date = ?
		) n
		  ON n.warehouse_id = s.warehouse_id
		 AND n.item_id = s.item_id
		 AND n.batch_code = s.batch_code_key
		WHERE COALESCE(s.qty, 0) <> COALESCE(n.qty_on_hand, 0)
		ORDER BY item_id, warehouse_id, batch_code_key`,
		inventory.ScopeProd, inventory.DateOnly(day)).
		Scan(&mismatches).Error; err != nil {
		return nil, err
	}
	return mismatches, nil
}

// Ensure GormSnapshotRepository implements SnapshotRepository
var _ inventory.SnapshotRepository = (*GormSnapshotRepository)(nil)
