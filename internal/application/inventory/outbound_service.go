package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// OutboundService books order shipments. Duplicate order lines on the same
// (item, batch) key merge before booking; replaying the same order computes
// the residual from the ledger and only ships what is still owed, which
// makes the whole shipment idempotent by total delta per key.
type OutboundService struct {
	txScope   TransactionScope
	mutator   *StockMutator
	allocator *FefoAllocator
	enforcer  ThreeBooksEnforcer
	events    shared.EventPublisher
	logger    *zap.Logger
}

// NewOutboundService creates an OutboundService.
func NewOutboundService(txScope TransactionScope, mutator *StockMutator, allocator *FefoAllocator, enforcer ThreeBooksEnforcer, events shared.EventPublisher, logger *zap.Logger) *OutboundService {
	return &OutboundService{
		txScope:   txScope,
		mutator:   mutator,
		allocator: allocator,
		enforcer:  enforcer,
		events:    events,
		logger:    logger,
	}
}

// shipKey merges duplicate order lines.
type shipKey struct {
	ItemID       int64
	BatchCodeKey string
}

type mergedLine struct {
	LineNo    int64
	ItemID    int64
	BatchCode *string
	Want      int64
}

// Ship books the order in its own transaction.
func (s *OutboundService) Ship(ctx context.Context, cmd ShipCommand) (*WorkflowResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbound", "ship")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrScope, cmd.Scope.String(),
		telemetry.SpanAttrWarehouseID, cmd.WarehouseID,
		telemetry.SpanAttrRef, cmd.OrderID,
	)

	var result *WorkflowResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.ShipTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "lines_applied", result.Applied)
	return result, nil
}

// ShipTx books the order inside the caller's transaction. Insufficiency on
// one line becomes a per-line status and the remaining lines still ship;
// the caller reads the result as "N of M fulfilled".
func (s *OutboundService) ShipTx(ctx context.Context, repos TransactionalRepositories, cmd ShipCommand) (*WorkflowResult, error) {
	if err := validateDocCommand(cmd.Scope, cmd.WarehouseID, cmd.OrderID, len(cmd.Lines)); err != nil {
		return nil, err
	}
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	traceID := ensureTraceID(ctx, cmd.TraceID)

	merged := mergeShipLines(cmd.Lines)
	ref := inventory.TruncateRef(cmd.OrderID)
	result := &WorkflowResult{Ref: ref}
	var effects []inventory.Effect

	for _, line := range merged {
		if line.Want <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Ship quantity must be positive")
		}

		need, err := s.residualNeed(ctx, repos, cmd.Scope, ref, cmd.WarehouseID, line)
		if err != nil {
			return nil, err
		}
		if need <= 0 {
			// the ledger already carries the full quantity for this key
			result.Lines = append(result.Lines, LineResult{
				LineNo:    line.LineNo,
				ItemID:    line.ItemID,
				BatchCode: line.BatchCode,
				Status:    inventory.LineStatusOK,
			})
			continue
		}

		var lineRes LineResult
		if line.BatchCode != nil {
			lineRes, err = s.shipConcreteBatch(ctx, repos, cmd, line, need, occurredAt, traceID, &effects)
		} else {
			lineRes, err = s.shipViaFefo(ctx, repos, cmd, line, need, occurredAt, traceID, &effects)
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

	if err := s.enforcer.Enforce(ctx, repos, cmd.Scope, ref, effects); err != nil {
		publishViolation(ctx, s.events, err)
		return nil, err
	}

	s.logger.Info("order shipped",
		zap.String("order_id", cmd.OrderID),
		zap.String("scope", cmd.Scope.String()),
		zap.Int64("warehouse_id", cmd.WarehouseID),
		zap.Int("lines", len(merged)),
		zap.Int("applied", result.Applied),
		zap.String("trace_id", traceID),
	)
	return result, nil
}

// residualNeed subtracts what the ledger already shipped under this order
// from what the order wants. Shipped deltas are negative, so the residual
// is want plus the booked total.
func (s *OutboundService) residualNeed(ctx context.Context, repos TransactionalRepositories, scope inventory.Scope, ref string, warehouseID int64, line mergedLine) (int64, error) {
	var batchKey *string
	if line.BatchCode != nil {
		key := inventory.BatchCodeKey(line.BatchCode)
		batchKey = &key
	}
	shipped, err := repos.LedgerRepo().SumShippedByRef(ctx, scope, ref, warehouseID, line.ItemID, batchKey)
	if err != nil {
		return 0, err
	}
	return line.Want + shipped, nil
}

// shipConcreteBatch books the whole residual against the batch the order
// named, on ref line 1.
func (s *OutboundService) shipConcreteBatch(ctx context.Context, repos TransactionalRepositories, cmd ShipCommand, line mergedLine, need int64, occurredAt time.Time, traceID string, effects *[]inventory.Effect) (LineResult, error) {
	adjCmd := inventory.AdjustCommand{
		Scope:       cmd.Scope,
		WarehouseID: cmd.WarehouseID,
		ItemID:      line.ItemID,
		BatchCode:   line.BatchCode,
		Delta:       -need,
		Reason:      inventory.RawReasonShipment,
		Ref:         cmd.OrderID,
		RefLine:     1,
		OccurredAt:  occurredAt,
		TraceID:     traceID,
		Meta:        inventory.AdjustMeta{SubReason: inventory.SubReasonOrderShip},
	}
	res, err := s.mutator.Adjust(ctx, repos, adjCmd)
	if err != nil {
		return LineResult{}, err
	}
	if res.Applied || res.Idempotent {
		*effects = append(*effects, effectFromAdjust(adjCmd, -need))
	}
	if res.Applied {
		s.publish(ctx, inventory.NewStockAdjustedEvent(adjCmd, res, inventory.ReasonShipment))
	}
	return LineResult{
		LineNo:    line.LineNo,
		ItemID:    line.ItemID,
		BatchCode: line.BatchCode,
		Status:    inventory.LineStatusOK,
		Adjust:    res,
	}, nil
}

// shipViaFefo decomposes the residual across batches in first-expiry order.
// Ref lines continue after the legs of earlier partial runs so a replay
// never collides with a fingerprint it already wrote.
func (s *OutboundService) shipViaFefo(ctx context.Context, repos TransactionalRepositories, cmd ShipCommand, line mergedLine, need int64, occurredAt time.Time, traceID string, effects *[]inventory.Effect) (LineResult, error) {
	startRefLine, err := s.nextRefLine(ctx, repos, cmd.Scope, inventory.TruncateRef(cmd.OrderID), line.ItemID)
	if err != nil {
		return LineResult{}, err
	}

	legs, legEffects, err := s.allocator.Ship(ctx, repos, ShipRequest{
		Scope:        cmd.Scope,
		WarehouseID:  cmd.WarehouseID,
		ItemID:       line.ItemID,
		Qty:          need,
		Ref:          cmd.OrderID,
		Reason:       inventory.RawReasonShipment,
		SubReason:    inventory.SubReasonOrderShip,
		StartRefLine: startRefLine,
		OccurredAt:   occurredAt,
		TraceID:      traceID,
		AllowExpired: cmd.AllowExpired,
	})
	if err != nil {
		return LineResult{}, err
	}
	*effects = append(*effects, legEffects...)
	s.publish(ctx, inventory.NewShipmentPlannedEvent(cmd.Scope, cmd.WarehouseID, line.ItemID, inventory.TruncateRef(cmd.OrderID), legs))

	return LineResult{
		LineNo: line.LineNo,
		ItemID: line.ItemID,
		Status: inventory.LineStatusOK,
		Legs:   legs,
	}, nil
}

// nextRefLine finds the highest ref line the order already booked for the
// item and starts after it.
func (s *OutboundService) nextRefLine(ctx context.Context, repos TransactionalRepositories, scope inventory.Scope, ref string, itemID int64) (int64, error) {
	entries, err := repos.LedgerRepo().FindByRef(ctx, scope, ref)
	if err != nil {
		return 0, err
	}
	var max int64
	for i := range entries {
		if entries[i].ItemID == itemID && entries[i].RefLine > max {
			max = entries[i].RefLine
		}
	}
	return max + 1, nil
}

func (s *OutboundService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, events...)
}

// mergeShipLines folds duplicate (item, batch) keys into one position,
// keeping the first line number for reporting.
func mergeShipLines(lines []ShipLine) []mergedLine {
	index := make(map[shipKey]int, len(lines))
	merged := make([]mergedLine, 0, len(lines))
	for _, l := range lines {
		key := shipKey{ItemID: l.ItemID, BatchCodeKey: inventory.BatchCodeKey(l.BatchCode)}
		if i, ok := index[key]; ok {
			merged[i].Want += l.Qty
			continue
		}
		index[key] = len(merged)
		merged = append(merged, mergedLine{
			LineNo:    l.LineNo,
			ItemID:    l.ItemID,
			BatchCode: l.BatchCode,
			Want:      l.Qty,
		})
	}
	return merged
}
