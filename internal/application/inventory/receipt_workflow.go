package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// ReceiptWorkflow books confirmed receipt documents. Every line becomes one
// positive adjust under the receipt reference; zero-quantity lines record a
// confirmation entry instead of a balance change. The whole document runs
// in one transaction closed by the three-books enforcer.
type ReceiptWorkflow struct {
	txScope  TransactionScope
	mutator  *StockMutator
	enforcer ThreeBooksEnforcer
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewReceiptWorkflow creates a ReceiptWorkflow.
func NewReceiptWorkflow(txScope TransactionScope, mutator *StockMutator, enforcer ThreeBooksEnforcer, events shared.EventPublisher, logger *zap.Logger) *ReceiptWorkflow {
	return &ReceiptWorkflow{
		txScope:  txScope,
		mutator:  mutator,
		enforcer: enforcer,
		events:   events,
		logger:   logger,
	}
}

// Confirm books the receipt in its own transaction.
func (w *ReceiptWorkflow) Confirm(ctx context.Context, cmd ReceiptCommand) (*WorkflowResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "confirm")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrScope, cmd.Scope.String(),
		telemetry.SpanAttrWarehouseID, cmd.WarehouseID,
		telemetry.SpanAttrRef, cmd.ReceiptNo,
	)

	var result *WorkflowResult
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = w.ConfirmTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "lines_applied", result.Applied)
	return result, nil
}

// ConfirmTx books the receipt inside the caller's transaction. The caller
// owns commit and rollback; the scan orchestrator uses this entry point for
// probe runs.
func (w *ReceiptWorkflow) ConfirmTx(ctx context.Context, repos TransactionalRepositories, cmd ReceiptCommand) (*WorkflowResult, error) {
	if err := validateDocCommand(cmd.Scope, cmd.WarehouseID, cmd.ReceiptNo, len(cmd.Lines)); err != nil {
		return nil, err
	}
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	traceID := ensureTraceID(ctx, cmd.TraceID)

	result := &WorkflowResult{Ref: inventory.TruncateRef(cmd.ReceiptNo)}
	var effects []inventory.Effect

	for _, line := range cmd.Lines {
		if line.Qty < 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY",
				fmt.Sprintf("Receipt line %d carries a negative quantity", line.LineNo))
		}

		adjCmd := inventory.AdjustCommand{
			Scope:          cmd.Scope,
			WarehouseID:    cmd.WarehouseID,
			ItemID:         line.ItemID,
			BatchCode:      line.BatchCode,
			Delta:          line.Qty,
			Reason:         inventory.RawReasonReceipt,
			Ref:            cmd.ReceiptNo,
			RefLine:        line.LineNo,
			OccurredAt:     occurredAt,
			ProductionDate: line.ProductionDate,
			ExpiryDate:     line.ExpiryDate,
			TraceID:        traceID,
		}
		if line.Qty == 0 {
			adjCmd.Meta = inventory.AdjustMeta{
				AllowZeroDeltaLedger: true,
				SubReason:            inventory.SubReasonReceiptConfirm,
			}
		}

		res, err := w.mutator.Adjust(ctx, repos, adjCmd)
		if err != nil {
			if status, lineLevel := classifyLineError(err); lineLevel {
				result.Lines = append(result.Lines, LineResult{
					LineNo:    line.LineNo,
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
			effects = append(effects, effectFromAdjust(adjCmd, line.Qty))
		}
		if res.Applied {
			result.Applied++
			w.publish(ctx, inventory.NewStockAdjustedEvent(adjCmd, res, inventory.ReasonReceipt))
		}
		if cmd.PONo != "" && line.POLineNo > 0 && res.Applied && line.Qty > 0 {
			if err := w.creditPOLine(ctx, repos, cmd.PONo, line.POLineNo, line.Qty); err != nil {
				return nil, err
			}
		}

		result.Lines = append(result.Lines, LineResult{
			LineNo:    line.LineNo,
			ItemID:    line.ItemID,
			BatchCode: res.BatchCode,
			Status:    inventory.LineStatusOK,
			Adjust:    res,
		})
	}

	if err := w.enforcer.Enforce(ctx, repos, cmd.Scope, result.Ref, effects); err != nil {
		publishViolation(ctx, w.events, err)
		return nil, err
	}

	w.logger.Info("receipt confirmed",
		zap.String("receipt_no", cmd.ReceiptNo),
		zap.String("scope", cmd.Scope.String()),
		zap.Int64("warehouse_id", cmd.WarehouseID),
		zap.Int("lines", len(cmd.Lines)),
		zap.Int("applied", result.Applied),
		zap.String("trace_id", traceID),
	)
	return result, nil
}

// creditPOLine raises the received counter of the purchase order line the
// receipt was booked against.
func (w *ReceiptWorkflow) creditPOLine(ctx context.Context, repos TransactionalRepositories, poNo string, poLineNo int, qty int64) error {
	line, err := repos.PurchaseOrderRepo().FindLine(ctx, poNo, poLineNo)
	if err != nil {
		return err
	}
	if err := line.RecordReceipt(qty); err != nil {
		return err
	}
	return repos.PurchaseOrderRepo().Save(ctx, line)
}

func (w *ReceiptWorkflow) publish(ctx context.Context, events ...shared.DomainEvent) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, events...)
}

// validateDocCommand checks the header fields every document workflow needs.
func validateDocCommand(scope inventory.Scope, warehouseID int64, ref string, lines int) error {
	if !scope.IsValid() {
		return shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+scope.String())
	}
	if warehouseID <= 0 {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Document requires a warehouse")
	}
	if ref == "" {
		return shared.NewDomainError("INVALID_REF", "Document requires a business reference")
	}
	if lines == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Document carries no lines")
	}
	return nil
}
