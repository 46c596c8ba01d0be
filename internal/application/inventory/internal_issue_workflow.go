package inventory

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// InternalIssueWorkflow books goods handed out inside the company, to a
// named recipient rather than a customer order. Lines naming a batch book
// directly; lines without one fan out through the allocator, with ref lines
// encoded as line_no*100+seq so every leg keeps a stable fingerprint.
type InternalIssueWorkflow struct {
	txScope   TransactionScope
	mutator   *StockMutator
	allocator *FefoAllocator
	enforcer  ThreeBooksEnforcer
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewInternalIssueWorkflow creates an InternalIssueWorkflow.
func NewInternalIssueWorkflow(txScope TransactionScope, mutator *StockMutator, allocator *FefoAllocator, enforcer ThreeBooksEnforcer, events shared.EventPublisher, logger *zap.Logger) *InternalIssueWorkflow {
	return &InternalIssueWorkflow{
		txScope:   txScope,
		mutator:   mutator,
		allocator: allocator,
		enforcer:  enforcer,
		events:    events,
		logger:    logger,
	}
}

// Confirm books the issue document in its own transaction.
func (w *InternalIssueWorkflow) Confirm(ctx context.Context, cmd InternalIssueCommand) (*WorkflowResult, error) {
	var result *WorkflowResult
	err := w.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = w.ConfirmTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmTx books the issue document inside the caller's transaction.
func (w *InternalIssueWorkflow) ConfirmTx(ctx context.Context, repos TransactionalRepositories, cmd InternalIssueCommand) (*WorkflowResult, error) {
	if err := validateDocCommand(cmd.Scope, cmd.WarehouseID, cmd.DocNo, len(cmd.Lines)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.RecipientName) == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Internal issue requires a recipient name")
	}
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	traceID := ensureTraceID(ctx, cmd.TraceID)

	ref := inventory.TruncateRef(cmd.DocNo)
	result := &WorkflowResult{Ref: ref}
	var effects []inventory.Effect

	for _, line := range cmd.Lines {
		if line.Qty <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Issue quantity must be positive")
		}

		var lineRes LineResult
		var err error
		if line.BatchCode != nil && *line.BatchCode != "" {
			lineRes, err = w.issueConcreteBatch(ctx, repos, cmd, line, occurredAt, traceID, &effects)
		} else {
			lineRes, err = w.issueViaFefo(ctx, repos, cmd, line, occurredAt, traceID, &effects)
		}
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
		result.Applied++
		result.Lines = append(result.Lines, lineRes)
	}

	if err := w.enforcer.Enforce(ctx, repos, cmd.Scope, ref, effects); err != nil {
		publishViolation(ctx, w.events, err)
		return nil, err
	}

	w.logger.Info("internal issue confirmed",
		zap.String("doc_no", cmd.DocNo),
		zap.String("recipient", cmd.RecipientName),
		zap.String("scope", cmd.Scope.String()),
		zap.Int64("warehouse_id", cmd.WarehouseID),
		zap.Int("lines", len(cmd.Lines)),
		zap.Int("applied", result.Applied),
		zap.String("trace_id", traceID),
	)
	return result, nil
}

func (w *InternalIssueWorkflow) issueConcreteBatch(ctx context.Context, repos TransactionalRepositories, cmd InternalIssueCommand, line IssueLine, occurredAt time.Time, traceID string, effects *[]inventory.Effect) (LineResult, error) {
	adjCmd := inventory.AdjustCommand{
		Scope:       cmd.Scope,
		WarehouseID: cmd.WarehouseID,
		ItemID:      line.ItemID,
		BatchCode:   line.BatchCode,
		Delta:       -line.Qty,
		Reason:      inventory.RawReasonInternalOut,
		Ref:         cmd.DocNo,
		RefLine:     line.LineNo,
		OccurredAt:  occurredAt,
		TraceID:     traceID,
	}
	res, err := w.mutator.Adjust(ctx, repos, adjCmd)
	if err != nil {
		return LineResult{}, err
	}
	if res.Applied || res.Idempotent {
		*effects = append(*effects, effectFromAdjust(adjCmd, -line.Qty))
	}
	if res.Applied {
		w.publish(ctx, inventory.NewStockAdjustedEvent(adjCmd, res, inventory.ReasonShipment))
	}
	return LineResult{
		LineNo:    line.LineNo,
		ItemID:    line.ItemID,
		BatchCode: res.BatchCode,
		Status:    inventory.LineStatusOK,
		Adjust:    res,
	}, nil
}

func (w *InternalIssueWorkflow) issueViaFefo(ctx context.Context, repos TransactionalRepositories, cmd InternalIssueCommand, line IssueLine, occurredAt time.Time, traceID string, effects *[]inventory.Effect) (LineResult, error) {
	legs, legEffects, err := w.allocator.Ship(ctx, repos, ShipRequest{
		Scope:       cmd.Scope,
		WarehouseID: cmd.WarehouseID,
		ItemID:      line.ItemID,
		Qty:         line.Qty,
		Ref:         cmd.DocNo,
		Reason:      inventory.RawReasonInternalOut,
		// legs of line N land on ref lines N*100+1, N*100+2, ...
		StartRefLine: line.LineNo*100 + 1,
		OccurredAt:   occurredAt,
		TraceID:      traceID,
	})
	if err != nil {
		return LineResult{}, err
	}
	*effects = append(*effects, legEffects...)
	w.publish(ctx, inventory.NewShipmentPlannedEvent(cmd.Scope, cmd.WarehouseID, line.ItemID, inventory.TruncateRef(cmd.DocNo), legs))

	return LineResult{
		LineNo: line.LineNo,
		ItemID: line.ItemID,
		Status: inventory.LineStatusOK,
		Legs:   legs,
	}, nil
}

func (w *InternalIssueWorkflow) publish(ctx context.Context, events ...shared.DomainEvent) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, events...)
}
