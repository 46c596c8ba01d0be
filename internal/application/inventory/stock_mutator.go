package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// StockMutator is the single chokepoint for every balance change. It locks
// the affected slot, writes the ledger row, and moves the quantity, all
// inside the caller's transaction. It never commits or rolls back itself;
// transaction boundaries belong to the workflow.
type StockMutator struct {
	resolver inventory.ExpiryResolver
	writer   LedgerWriter
	registry BatchRegistry
}

// NewStockMutator creates a StockMutator with the given date resolver.
func NewStockMutator(resolver inventory.ExpiryResolver) *StockMutator {
	return &StockMutator{
		resolver: resolver,
		writer:   NewLedgerWriter(),
		registry: NewBatchRegistry(),
	}
}

// Adjust applies one balance change:
//
//  1. Resolves the item's batch requirement and normalises the batch code.
//  2. Declines zero deltas unless the meta flags admit a confirmation entry.
//  3. Resolves production/expiry dates for positive batched deltas.
//  4. Replays idempotently when the fingerprint already has a ledger row.
//  5. Ensures the batch master row, then the stock slot, locking it.
//  6. Fails InsufficientStock when the new quantity would go negative.
//  7. Writes the ledger row and moves the slot quantity.
//
// Idempotent replays and declined zero-deltas come back as results with
// Applied=false, never as errors.
func (m *StockMutator) Adjust(ctx context.Context, repos TransactionalRepositories, cmd inventory.AdjustCommand) (*inventory.AdjustResult, error) {
	if !cmd.Scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+cmd.Scope.String())
	}
	if cmd.WarehouseID <= 0 || cmd.ItemID <= 0 {
		return nil, shared.NewDomainError("INVALID_SLOT", "Adjust requires a warehouse and an item")
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Adjust requires a reason")
	}
	if strings.TrimSpace(cmd.Ref) == "" {
		return nil, shared.NewDomainError("INVALID_REF", "Adjust requires a business reference")
	}
	if cmd.OccurredAt.IsZero() {
		cmd.OccurredAt = time.Now().UTC()
	}

	item, err := repos.ItemRepo().FindByID(ctx, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	batchCode := inventory.NormalizeBatchCode(cmd.BatchCode, item.RequiresBatch)
	if !item.RequiresBatch {
		// non-batched items always book on the NULL slot
		batchCode = nil
	}
	if item.RequiresBatch && batchCode == nil && cmd.Delta != 0 {
		return nil, &inventory.BatchRequiredError{WarehouseID: cmd.WarehouseID, ItemID: cmd.ItemID}
	}

	if cmd.Delta == 0 && (!cmd.Meta.AllowZeroDeltaLedger || strings.TrimSpace(cmd.Meta.SubReason) == "") {
		return &inventory.AdjustResult{BatchCode: batchCode, Applied: false, Idempotent: true}, nil
	}

	var dates inventory.ResolvedDates
	if cmd.Delta > 0 && batchCode != nil {
		dates, err = m.resolver.Resolve(item, cmd.ProductionDate, cmd.ExpiryDate)
		if err != nil {
			return nil, err
		}
	}

	ref := inventory.TruncateRef(cmd.Ref)
	key := inventory.SlotKey{
		Scope:        cmd.Scope,
		WarehouseID:  cmd.WarehouseID,
		ItemID:       cmd.ItemID,
		BatchCodeKey: inventory.BatchCodeKey(batchCode),
	}
	fp := inventory.Fingerprint{
		Scope:        key.Scope,
		WarehouseID:  key.WarehouseID,
		ItemID:       key.ItemID,
		BatchCodeKey: key.BatchCodeKey,
		Reason:       cmd.Reason,
		Ref:          ref,
		RefLine:      cmd.RefLine,
	}
	existing, err := repos.LedgerRepo().FindByFingerprint(ctx, fp)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return m.replayResult(ctx, repos, key, existing), nil
	}

	if cmd.Delta > 0 && batchCode != nil {
		if _, err := m.registry.Ensure(ctx, repos.BatchRepo(), cmd.WarehouseID, cmd.ItemID, *batchCode, dates.ProductionDate, dates.ExpiryDate); err != nil {
			return nil, err
		}
	}

	slot, err := repos.StockRepo().EnsureSlot(ctx, cmd.Scope, cmd.WarehouseID, cmd.ItemID, batchCode)
	if err != nil {
		return nil, err
	}

	before := slot.Qty
	after := before + cmd.Delta
	if after < 0 {
		return nil, &inventory.InsufficientStockError{
			Scope:       cmd.Scope,
			WarehouseID: cmd.WarehouseID,
			ItemID:      cmd.ItemID,
			BatchCode:   batchCode,
			Required:    -cmd.Delta,
			Available:   before,
			Shortage:    -after,
			Hint:        inventory.HintAdjustToAvailable,
		}
	}

	entry := &inventory.LedgerEntry{
		Scope:          cmd.Scope,
		WarehouseID:    cmd.WarehouseID,
		ItemID:         cmd.ItemID,
		BatchCode:      batchCode,
		Reason:         cmd.Reason,
		SubReason:      optional(cmd.Meta.SubReason),
		Ref:            ref,
		RefLine:        cmd.RefLine,
		Delta:          cmd.Delta,
		AfterQty:       after,
		OccurredAt:     cmd.OccurredAt,
		TraceID:        optional(cmd.TraceID),
		ProductionDate: dates.ProductionDate,
		ExpiryDate:     dates.ExpiryDate,
	}
	_, idempotent, err := m.writer.Write(ctx, repos.LedgerRepo(), entry)
	if err != nil {
		return nil, err
	}
	if idempotent {
		// a concurrent duplicate landed between the pre-check and the insert
		return &inventory.AdjustResult{
			StockID:    slot.ID,
			BatchCode:  batchCode,
			Before:     before,
			After:      before,
			Delta:      cmd.Delta,
			Applied:    false,
			Idempotent: true,
		}, nil
	}

	if cmd.Delta != 0 {
		if err := repos.StockRepo().UpdateQty(ctx, slot.ID, after); err != nil {
			return nil, err
		}
	}

	return &inventory.AdjustResult{
		StockID:        slot.ID,
		BatchCode:      batchCode,
		Before:         before,
		After:          after,
		Delta:          cmd.Delta,
		Applied:        true,
		Idempotent:     false,
		ProductionDate: dates.ProductionDate,
		ExpiryDate:     dates.ExpiryDate,
	}, nil
}

// replayResult reports an idempotent hit without touching any balance.
func (m *StockMutator) replayResult(ctx context.Context, repos TransactionalRepositories, key inventory.SlotKey, existing *inventory.LedgerEntry) *inventory.AdjustResult {
	res := &inventory.AdjustResult{
		BatchCode:      existing.BatchCode,
		Delta:          existing.Delta,
		Applied:        false,
		Idempotent:     true,
		ProductionDate: existing.ProductionDate,
		ExpiryDate:     existing.ExpiryDate,
	}
	if slot, err := repos.StockRepo().Find(ctx, key); err == nil {
		res.StockID = slot.ID
		res.Before = slot.Qty
		res.After = slot.Qty
	}
	return res
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
