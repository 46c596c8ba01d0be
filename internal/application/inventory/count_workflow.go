package inventory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// CountWorkflow records scan-driven physical counts. A count that matches
// the booked quantity still leaves a trace: a zero-delta confirmation entry
// in the ledger. A mismatch books the difference as an adjustment.
type CountWorkflow struct {
	txScope  TransactionScope
	mutator  *StockMutator
	enforcer ThreeBooksEnforcer
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewCountWorkflow creates a CountWorkflow.
func NewCountWorkflow(txScope TransactionScope, mutator *StockMutator, enforcer ThreeBooksEnforcer, events shared.EventPublisher, logger *zap.Logger) *CountWorkflow {
	return &CountWorkflow{
		txScope:  txScope,
		mutator:  mutator,
		enforcer: enforcer,
		events:   events,
		logger:   logger,
	}
}

// Count books one count in its own transaction.
func (w *CountWorkflow) Count(ctx context.Context, cmd CountCommand) (*CountResult, error) {
	var result *CountResult
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = w.CountTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountTx books one count inside the caller's transaction. The slot is read
// under a row lock so the compared quantity cannot move between the read
// and the adjustment.
func (w *CountWorkflow) CountTx(ctx context.Context, repos TransactionalRepositories, cmd CountCommand) (*CountResult, error) {
	if err := validateDocCommand(cmd.Scope, cmd.WarehouseID, cmd.Ref, 1); err != nil {
		return nil, err
	}
	if cmd.Actual < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	traceID := ensureTraceID(ctx, cmd.TraceID)

	item, err := repos.ItemRepo().FindByID(ctx, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	batchCode := inventory.NormalizeBatchCode(cmd.BatchCode, item.RequiresBatch)
	if !item.RequiresBatch {
		batchCode = nil
	}

	current, err := w.lockedQty(ctx, repos, inventory.SlotKey{
		Scope:        cmd.Scope,
		WarehouseID:  cmd.WarehouseID,
		ItemID:       cmd.ItemID,
		BatchCodeKey: inventory.BatchCodeKey(batchCode),
	})
	if err != nil {
		return nil, err
	}

	delta := cmd.Actual - current
	if delta > 0 && item.RequiresBatch && cmd.ProductionDate == nil && cmd.ExpiryDate == nil {
		return nil, shared.NewDomainError("DATE_REQUIRED",
			"Counting stock in on a batch-tracked item requires a production or expiry date")
	}
	subReason := inventory.SubReasonCountAdjust
	if delta == 0 {
		subReason = inventory.SubReasonCountConfirm
	}

	adjCmd := inventory.AdjustCommand{
		Scope:          cmd.Scope,
		WarehouseID:    cmd.WarehouseID,
		ItemID:         cmd.ItemID,
		BatchCode:      batchCode,
		Delta:          delta,
		Reason:         inventory.RawReasonAdjustment,
		Ref:            cmd.Ref,
		RefLine:        cmd.RefLine,
		OccurredAt:     occurredAt,
		ProductionDate: cmd.ProductionDate,
		ExpiryDate:     cmd.ExpiryDate,
		TraceID:        traceID,
		Meta: inventory.AdjustMeta{
			AllowZeroDeltaLedger: delta == 0,
			SubReason:            subReason,
		},
	}
	res, err := w.mutator.Adjust(ctx, repos, adjCmd)
	if err != nil {
		return nil, err
	}
	if res.Applied {
		w.publish(ctx, inventory.NewStockAdjustedEvent(adjCmd, res, inventory.ReasonAdjustment))
	}

	effects := []inventory.Effect{effectFromAdjust(adjCmd, delta)}
	if err := w.enforcer.Enforce(ctx, repos, cmd.Scope, inventory.TruncateRef(cmd.Ref), effects); err != nil {
		publishViolation(ctx, w.events, err)
		return nil, err
	}

	w.logger.Info("count recorded",
		zap.String("ref", cmd.Ref),
		zap.String("scope", cmd.Scope.String()),
		zap.Int64("warehouse_id", cmd.WarehouseID),
		zap.Int64("item_id", cmd.ItemID),
		zap.Int64("current", current),
		zap.Int64("actual", cmd.Actual),
		zap.Int64("delta", delta),
		zap.String("sub_reason", subReason),
		zap.String("trace_id", traceID),
	)
	return &CountResult{
		Current:   current,
		Actual:    cmd.Actual,
		Delta:     delta,
		SubReason: subReason,
		Adjust:    res,
	}, nil
}

// lockedQty reads the slot quantity under FOR UPDATE. A slot that was never
// materialised counts as zero; the adjust will create it if the count
// brings stock in.
func (w *CountWorkflow) lockedQty(ctx context.Context, repos TransactionalRepositories, key inventory.SlotKey) (int64, error) {
	slot, err := repos.StockRepo().FindForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return slot.Qty, nil
}

func (w *CountWorkflow) publish(ctx context.Context, events ...shared.DomainEvent) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, events...)
}
