package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// SnapshotEngine maintains the daily stock snapshot. The snapshot is
// strictly derivative: it is rebuilt from stocks (or replayed from the
// ledger for missed days) and is never a source of truth.
type SnapshotEngine struct{}

// NewSnapshotEngine creates a SnapshotEngine.
func NewSnapshotEngine() SnapshotEngine {
	return SnapshotEngine{}
}

// RebuildToday deletes today's snapshot rows and re-inserts them from the
// live production stocks. Returns the number of rows written.
func (SnapshotEngine) RebuildToday(ctx context.Context, repos TransactionalRepositories) (int64, error) {
	return repos.SnapshotRepo().RebuildDay(ctx, inventory.DateOnly(time.Now().UTC()))
}

// Backfill fills the snapshot days between the latest existing cut and the
// given cut by replaying ledger deltas window by window. When no snapshot
// exists at all, only the current day is rebuilt from stocks. Returns the
// days written.
func (e SnapshotEngine) Backfill(ctx context.Context, repos TransactionalRepositories, cut time.Time) ([]time.Time, error) {
	cut = inventory.DateOnly(cut)
	today := inventory.DateOnly(time.Now().UTC())
	if cut.After(today) {
		cut = today
	}

	latest, err := repos.SnapshotRepo().LatestDay(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if _, err := repos.SnapshotRepo().RebuildDay(ctx, today); err != nil {
			return nil, err
		}
		return []time.Time{today}, nil
	}

	latest = inventory.DateOnly(latest)
	var written []time.Time
	for day := latest.AddDate(0, 0, 1); !day.After(cut); day = day.AddDate(0, 0, 1) {
		prev := day.AddDate(0, 0, -1)
		if _, err := repos.SnapshotRepo().BackfillDay(ctx, prev, day); err != nil {
			return nil, err
		}
		written = append(written, day)
	}
	return written, nil
}

// ThreeBooksSummary reads the grand totals of the three books for sanity
// panels: live stock quantity, summed ledger deltas, and the snapshot of
// the given day. Totals cover the production scope.
func (SnapshotEngine) ThreeBooksSummary(ctx context.Context, repos TransactionalRepositories, day time.Time) (*inventory.ThreeBooksSummary, error) {
	day = inventory.DateOnly(day)

	stocks, err := repos.StockRepo().TotalQty(ctx, inventory.ScopeProd)
	if err != nil {
		return nil, err
	}
	ledger, err := repos.LedgerRepo().TotalDelta(ctx, inventory.ScopeProd)
	if err != nil {
		return nil, err
	}
	snapshot, err := repos.SnapshotRepo().TotalQty(ctx, day)
	if err != nil {
		return nil, err
	}

	return &inventory.ThreeBooksSummary{
		StocksTotal:   stocks,
		LedgerTotal:   ledger,
		SnapshotTotal: snapshot,
		AsOf:          day,
	}, nil
}
