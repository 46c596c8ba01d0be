package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// openingBalanceEpoch timestamps cutover adjustments so they sort before
// any operational movement.
var openingBalanceEpoch = time.Unix(0, 0).UTC()

// ReconcileService is diagnostic tooling around the three books. It never
// repairs anything during steady state; the one write it offers is the
// opening-balance backfill used once at cutover.
type ReconcileService struct {
	txScope TransactionScope
	writer  LedgerWriter
	logger  *zap.Logger
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(txScope TransactionScope, logger *zap.Logger) *ReconcileService {
	return &ReconcileService{
		txScope: txScope,
		writer:  NewLedgerWriter(),
		logger:  logger,
	}
}

// DiffLedgerVsStocks returns every key of the scope where the summed
// ledger disagrees with the live stock quantity.
func (s *ReconcileService) DiffLedgerVsStocks(ctx context.Context, scope inventory.Scope) ([]inventory.ReconcileRow, error) {
	var rows []inventory.ReconcileRow
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		rows, err = repos.LedgerRepo().DiffAgainstStocks(ctx, scope)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OpeningBalanceBackfill writes one epoch-dated adjustment per drifting key
// so that the summed ledger agrees with the live stocks. Stocks are the
// truth at cutover; the ledger catches up. Replays are harmless because the
// per-key reference is part of the idempotency fingerprint.
func (s *ReconcileService) OpeningBalanceBackfill(ctx context.Context, scope inventory.Scope) (*ReconcileReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "reconcile.opening_balance_backfill",
		telemetry.WithAttribute(telemetry.SpanAttrScope, scope.String()),
	)
	defer span.End()

	report := &ReconcileReport{}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, err := repos.LedgerRepo().DiffAgainstStocks(ctx, scope)
		if err != nil {
			return err
		}
		report.Checked = len(rows)
		report.Rows = rows

		for _, row := range rows {
			delta := row.StockQty - row.LedgerQty
			if delta == 0 {
				continue
			}

			var batchCode *string
			if row.BatchCodeKey != inventory.NullBatchKey {
				code := row.BatchCodeKey
				batchCode = &code
			}
			sub := inventory.SubReasonOpeningBalance
			entry := &inventory.LedgerEntry{
				Scope:       scope,
				WarehouseID: row.WarehouseID,
				ItemID:      row.ItemID,
				BatchCode:   batchCode,
				Reason:      inventory.RawReasonAdjustment,
				SubReason:   &sub,
				Ref:         fmt.Sprintf("OPEN:%d:%d:%s", row.WarehouseID, row.ItemID, row.BatchCodeKey),
				RefLine:     1,
				Delta:       delta,
				AfterQty:    row.StockQty,
				OccurredAt:  openingBalanceEpoch,
			}
			_, idempotent, err := s.writer.Write(ctx, repos.LedgerRepo(), entry)
			if err != nil {
				return err
			}
			if !idempotent {
				report.Written++
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "backfill_finished",
		"drifting_keys", report.Checked,
		"written", report.Written,
	)
	s.logger.Info("opening balance backfill finished",
		zap.String("scope", scope.String()),
		zap.Int("drifting_keys", report.Checked),
		zap.Int("written", report.Written),
	)
	return report, nil
}
