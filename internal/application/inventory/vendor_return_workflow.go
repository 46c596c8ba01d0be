package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// VendorReturnWorkflow models goods going back to a supplier against a
// purchase order. A task is created from the order with expected
// quantities, picks accumulate as intent without moving stock, and only the
// commit books the picked quantities out and debits the order's received
// counters.
type VendorReturnWorkflow struct {
	txScope      TransactionScope
	mutator      *StockMutator
	enforcer     ThreeBooksEnforcer
	events       shared.EventPublisher
	logger       *zap.Logger
	allowExpired bool
}

// NewVendorReturnWorkflow creates a VendorReturnWorkflow. Expired batches
// are returnable by default; vendors usually take expired goods back.
func NewVendorReturnWorkflow(txScope TransactionScope, mutator *StockMutator, enforcer ThreeBooksEnforcer, events shared.EventPublisher, logger *zap.Logger) *VendorReturnWorkflow {
	return &VendorReturnWorkflow{
		txScope:      txScope,
		mutator:      mutator,
		enforcer:     enforcer,
		events:       events,
		logger:       logger,
		allowExpired: true,
	}
}

// WithAllowExpired toggles whether expired batches may be booked out on
// commit. With it off, a picked line whose batch has passed its expiry date
// is rejected at commit time.
func (w *VendorReturnWorkflow) WithAllowExpired(allow bool) *VendorReturnWorkflow {
	w.allowExpired = allow
	return w
}

// CreateTask opens a return task against a purchase order. Each selected
// order line contributes one task line expecting
// min(received on the order, available in stock); lines with nothing
// returnable are skipped.
func (w *VendorReturnWorkflow) CreateTask(ctx context.Context, cmd CreateVendorReturnCommand) (*inventory.VendorReturnTask, error) {
	var task *inventory.VendorReturnTask
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		task, err = w.createTaskTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (w *VendorReturnWorkflow) createTaskTx(ctx context.Context, repos TransactionalRepositories, cmd CreateVendorReturnCommand) (*inventory.VendorReturnTask, error) {
	task, err := inventory.NewVendorReturnTask(cmd.Scope, cmd.WarehouseID, cmd.VendorCode, cmd.PONo)
	if err != nil {
		return nil, err
	}

	poLines, err := repos.PurchaseOrderRepo().FindLinesByPO(ctx, cmd.PONo)
	if err != nil {
		return nil, err
	}
	if len(poLines) == 0 {
		return nil, shared.ErrNotFound
	}

	specs := cmd.Items
	if len(specs) == 0 {
		for _, pl := range poLines {
			specs = append(specs, VendorReturnItemSpec{POLineNo: pl.LineNo})
		}
	}

	byLineNo := make(map[int]*inventory.PurchaseOrderLine, len(poLines))
	for i := range poLines {
		byLineNo[poLines[i].LineNo] = &poLines[i]
	}

	for _, spec := range specs {
		poLine, ok := byLineNo[spec.POLineNo]
		if !ok {
			return nil, shared.NewDomainError("INVALID_PO_LINE",
				fmt.Sprintf("Purchase order %s has no line %d", cmd.PONo, spec.POLineNo))
		}
		if poLine.ReceivedQty <= 0 {
			continue
		}

		item, err := repos.ItemRepo().FindByID(ctx, poLine.ItemID)
		if err != nil {
			return nil, err
		}
		batchCode := inventory.NormalizeBatchCode(spec.BatchCode, item.RequiresBatch)
		if item.RequiresBatch && batchCode == nil {
			return nil, &inventory.BatchRequiredError{WarehouseID: cmd.WarehouseID, ItemID: poLine.ItemID}
		}
		if !item.RequiresBatch {
			batchCode = nil
		}

		available, err := w.availableQty(ctx, repos, cmd.Scope, cmd.WarehouseID, poLine.ItemID, batchCode)
		if err != nil {
			return nil, err
		}
		expected := poLine.ReceivedQty
		if available < expected {
			expected = available
		}
		if expected <= 0 {
			continue
		}
		if err := task.AddLine(poLine.ID, poLine.ItemID, batchCode, expected); err != nil {
			return nil, err
		}
	}

	if len(task.Lines) == 0 {
		return nil, shared.NewDomainError("NOTHING_RETURNABLE", "No purchase order line has returnable stock")
	}
	if err := repos.VendorReturnRepo().SaveTask(ctx, task); err != nil {
		return nil, err
	}

	w.logger.Info("vendor return task created",
		zap.Int64("task_id", task.ID),
		zap.String("po_no", cmd.PONo),
		zap.Int64("warehouse_id", cmd.WarehouseID),
		zap.Int("lines", len(task.Lines)),
	)
	return task, nil
}

// RecordPick adds picked quantity to one task line. Picks are intent only;
// no stock moves until the task commits.
func (w *VendorReturnWorkflow) RecordPick(ctx context.Context, taskID, lineID, qty int64) (*inventory.VendorReturnTask, error) {
	var task *inventory.VendorReturnTask
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		task, err = repos.VendorReturnRepo().FindTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status != inventory.VendorReturnStatusOpen {
			return shared.NewDomainError("INVALID_STATE", "Picks can only be recorded on an open task")
		}
		line := task.LineByID(lineID)
		if line == nil {
			return shared.ErrNotFound
		}
		if err := line.RecordPick(qty); err != nil {
			return err
		}
		return repos.VendorReturnRepo().SaveLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ClaimNextPick hands one still-open line of the task to a picker, skipping
// lines other workers currently hold, and records the pick on it. Workers
// pulling from the same task never block each other.
func (w *VendorReturnWorkflow) ClaimNextPick(ctx context.Context, taskID, qty int64) (*inventory.VendorReturnLine, error) {
	var picked *inventory.VendorReturnLine
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		line, err := repos.VendorReturnRepo().ClaimNextLine(ctx, taskID)
		if err != nil {
			return err
		}
		take := qty
		if take <= 0 || take > line.Remaining() {
			take = line.Remaining()
		}
		if err := line.RecordPick(take); err != nil {
			return err
		}
		if err := repos.VendorReturnRepo().SaveLine(ctx, line); err != nil {
			return err
		}
		picked = line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

// Commit books every picked quantity out of stock under RTN-{task} and
// debits the received counters of the purchase order, then closes the task.
func (w *VendorReturnWorkflow) Commit(ctx context.Context, taskID int64) (*WorkflowResult, error) {
	var result *WorkflowResult
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = w.CommitTx(ctx, repos, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CommitTx books the task inside the caller's transaction.
func (w *VendorReturnWorkflow) CommitTx(ctx context.Context, repos TransactionalRepositories, taskID int64) (*WorkflowResult, error) {
	task, err := repos.VendorReturnRepo().FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := task.Commit(); err != nil {
		return nil, err
	}

	occurredAt := time.Now().UTC()
	traceID := ensureTraceID(ctx, "")
	ref := inventory.TruncateRef(fmt.Sprintf("RTN-%d", task.ID))
	result := &WorkflowResult{Ref: ref}
	var effects []inventory.Effect

	for i := range task.Lines {
		line := &task.Lines[i]
		if line.PickedQty == 0 {
			continue
		}

		if !w.allowExpired && line.BatchCode != nil {
			expired, err := w.batchExpired(ctx, repos, task.WarehouseID, line.ItemID, *line.BatchCode, occurredAt)
			if err != nil {
				return nil, err
			}
			if expired {
				result.Lines = append(result.Lines, LineResult{
					LineNo:    line.ID,
					ItemID:    line.ItemID,
					BatchCode: line.BatchCode,
					Status:    inventory.LineStatusRejected,
					Error:     fmt.Sprintf("batch %s is expired and expired returns are disabled", *line.BatchCode),
				})
				continue
			}
		}

		adjCmd := inventory.AdjustCommand{
			Scope:       task.Scope,
			WarehouseID: task.WarehouseID,
			ItemID:      line.ItemID,
			BatchCode:   line.BatchCode,
			Delta:       -line.PickedQty,
			Reason:      inventory.RawReasonReturnOut,
			Ref:         ref,
			RefLine:     line.ID,
			OccurredAt:  occurredAt,
			TraceID:     traceID,
		}
		res, err := w.mutator.Adjust(ctx, repos, adjCmd)
		if err != nil {
			if status, lineLevel := classifyLineError(err); lineLevel {
				result.Lines = append(result.Lines, LineResult{
					LineNo:    line.ID,
					ItemID:    line.ItemID,
					BatchCode: line.BatchCode,
					Status:    status,
					Error:     err.Error(),
				})
				continue
			}
			return nil, err
		}

		if res.Applied || res.Idempotent {
			effects = append(effects, effectFromAdjust(adjCmd, -line.PickedQty))
		}
		if res.Applied {
			result.Applied++
			w.publish(ctx, inventory.NewStockAdjustedEvent(adjCmd, res, inventory.ReasonShipment))
			if err := w.debitPOLine(ctx, repos, line.POLineID, line.PickedQty); err != nil {
				return nil, err
			}
		}
		result.Lines = append(result.Lines, LineResult{
			LineNo:    line.ID,
			ItemID:    line.ItemID,
			BatchCode: line.BatchCode,
			Status:    inventory.LineStatusOK,
			Adjust:    res,
		})
	}

	if !result.OK() {
		// a failed line leaves the task open; the transaction rolls back
		return result, shared.NewDomainError("RETURN_INCOMPLETE", "Vendor return could not book every picked line")
	}

	if err := repos.VendorReturnRepo().SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if err := w.enforcer.Enforce(ctx, repos, task.Scope, ref, effects); err != nil {
		publishViolation(ctx, w.events, err)
		return nil, err
	}

	w.logger.Info("vendor return committed",
		zap.Int64("task_id", task.ID),
		zap.String("po_no", task.PONo),
		zap.String("ref", ref),
		zap.Int64("picked_total", task.PickedTotal()),
		zap.String("trace_id", traceID),
	)
	return result, nil
}

// Cancel abandons an open task. Nothing has moved, so there is nothing to
// compensate.
func (w *VendorReturnWorkflow) Cancel(ctx context.Context, taskID int64) error {
	return w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		task, err := repos.VendorReturnRepo().FindTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := task.Cancel(); err != nil {
			return err
		}
		return repos.VendorReturnRepo().SaveTask(ctx, task)
	})
}

// availableQty reads the on-hand quantity for one key; with no batch code
// it sums every slot of the item.
func (w *VendorReturnWorkflow) availableQty(ctx context.Context, repos TransactionalRepositories, scope inventory.Scope, warehouseID, itemID int64, batchCode *string) (int64, error) {
	if batchCode != nil {
		slot, err := repos.StockRepo().Find(ctx, inventory.SlotKey{
			Scope:        scope,
			WarehouseID:  warehouseID,
			ItemID:       itemID,
			BatchCodeKey: inventory.BatchCodeKey(batchCode),
		})
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, nil
			}
			return 0, err
		}
		return slot.Qty, nil
	}

	slots, err := repos.StockRepo().ListByItem(ctx, scope, warehouseID, itemID)
	if err != nil {
		return 0, err
	}
	var total int64
	for i := range slots {
		total += slots[i].Qty
	}
	return total, nil
}

// batchExpired reports whether the named batch has passed its expiry date.
// An unregistered batch carries no expiry and is never considered expired.
func (w *VendorReturnWorkflow) batchExpired(ctx context.Context, repos TransactionalRepositories, warehouseID, itemID int64, batchCode string, asOf time.Time) (bool, error) {
	batch, err := repos.BatchRepo().FindByNaturalKey(ctx, warehouseID, itemID, batchCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return batch.IsExpiredAt(asOf), nil
}

func (w *VendorReturnWorkflow) debitPOLine(ctx context.Context, repos TransactionalRepositories, poLineID, qty int64) error {
	poLine, err := repos.PurchaseOrderRepo().FindLineByID(ctx, poLineID)
	if err != nil {
		return err
	}
	if err := poLine.RecordReturn(qty); err != nil {
		return err
	}
	return repos.PurchaseOrderRepo().Save(ctx, poLine)
}

func (w *VendorReturnWorkflow) publish(ctx context.Context, events ...shared.DomainEvent) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, events...)
}
