package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// StockQueryService serves the read side: stock listings, ledger queries,
// snapshot views, and the three-books sanity summary. Reads run on plain
// connections; only the snapshot rebuild takes a transaction.
type StockQueryService struct {
	repos     Repositories
	txScope   TransactionScope
	snapshots SnapshotEngine
	logger    *zap.Logger
}

// NewStockQueryService creates a StockQueryService.
func NewStockQueryService(repos Repositories, txScope TransactionScope, snapshots SnapshotEngine, logger *zap.Logger) *StockQueryService {
	return &StockQueryService{
		repos:     repos,
		txScope:   txScope,
		snapshots: snapshots,
		logger:    logger,
	}
}

// ListStocks returns a page of stock slots in a warehouse.
func (s *StockQueryService) ListStocks(ctx context.Context, scope inventory.Scope, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.StockSlot], error) {
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+scope.String())
	}
	return s.repos.Stocks.ListByWarehouse(ctx, scope, warehouseID, filter)
}

// ItemStocks returns every slot of one item in a warehouse.
func (s *StockQueryService) ItemStocks(ctx context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.StockSlot, error) {
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+scope.String())
	}
	return s.repos.Stocks.ListByItem(ctx, scope, warehouseID, itemID)
}

// QueryLedger returns a page of ledger entries, newest first.
func (s *StockQueryService) QueryLedger(ctx context.Context, q inventory.LedgerQuery) (*shared.Paginated[inventory.LedgerEntry], error) {
	if !q.Scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+q.Scope.String())
	}
	return s.repos.Ledger.Query(ctx, q)
}

// ThreeBooksSummary reads the grand totals of the three books for the day.
func (s *StockQueryService) ThreeBooksSummary(ctx context.Context, day time.Time) (*inventory.ThreeBooksSummary, error) {
	var summary *inventory.ThreeBooksSummary
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		summary, err = s.snapshots.ThreeBooksSummary(ctx, repos, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RebuildSnapshot rebuilds today's snapshot and backfills any missed days
// up to the cut.
func (s *StockQueryService) RebuildSnapshot(ctx context.Context, cut time.Time) ([]time.Time, error) {
	var days []time.Time
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		written, err := s.snapshots.Backfill(ctx, repos, cut)
		if err != nil {
			return err
		}
		today, err := s.snapshots.RebuildToday(ctx, repos)
		if err != nil {
			return err
		}
		days = written
		s.logger.Info("snapshot rebuilt",
			zap.Int("backfilled_days", len(written)),
			zap.Int64("today_rows", today),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// ListSnapshot returns the snapshot rows of one day.
func (s *StockQueryService) ListSnapshot(ctx context.Context, day time.Time, filter shared.Filter) (*shared.Paginated[inventory.Snapshot], error) {
	return s.repos.Snapshots.ListByDay(ctx, inventory.DateOnly(day), filter)
}
