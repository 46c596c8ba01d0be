package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// FefoAllocator decomposes an outbound quantity into batch legs in
// first-expiry-first-out order. Plan locks every candidate slot of the item
// FOR UPDATE, which makes the plan-and-write section the sole cross-slot
// critical section; concurrent shippers serialise on contended slots and
// no shipper overshoots.
type FefoAllocator struct {
	mutator *StockMutator
}

// NewFefoAllocator creates a FefoAllocator executing legs through the
// given mutator.
func NewFefoAllocator(mutator *StockMutator) *FefoAllocator {
	return &FefoAllocator{mutator: mutator}
}

// ShipRequest describes one outbound quantity to decompose and book.
type ShipRequest struct {
	Scope        inventory.Scope
	WarehouseID  int64
	ItemID       int64
	Qty          int64
	Ref          string
	Reason       string
	SubReason    string
	StartRefLine int64
	OccurredAt   time.Time
	TraceID      string
	AllowExpired bool
}

// Plan locks the item's slots and returns the allocation legs without
// booking anything. The caller holds the row locks until its transaction
// ends.
func (a *FefoAllocator) Plan(ctx context.Context, repos TransactionalRepositories, scope inventory.Scope, warehouseID, itemID, need int64, asOf time.Time, allowExpired bool, startRefLine int64) ([]inventory.PlanLeg, error) {
	candidates, err := repos.StockRepo().ListForUpdateByItem(ctx, scope, warehouseID, itemID)
	if err != nil {
		return nil, err
	}
	legs, err := inventory.PlanFefo(candidates, need, asOf, allowExpired, startRefLine)
	if err != nil {
		var insufficient *inventory.InsufficientStockError
		if errors.As(err, &insufficient) {
			insufficient.Scope = scope
			insufficient.WarehouseID = warehouseID
			insufficient.ItemID = itemID
		}
		return nil, err
	}
	return legs, nil
}

// Ship plans and books the legs, one negative adjust per leg with an
// incrementing ref line. Legs come back in the order they were consumed.
func (a *FefoAllocator) Ship(ctx context.Context, repos TransactionalRepositories, req ShipRequest) ([]inventory.PlanLeg, []inventory.Effect, error) {
	if req.Qty <= 0 {
		return nil, nil, shared.NewDomainError("INVALID_QUANTITY", "Ship quantity must be positive")
	}
	reason := req.Reason
	if reason == "" {
		reason = inventory.RawReasonShipment
	}
	startRefLine := req.StartRefLine
	if startRefLine <= 0 {
		startRefLine = 1
	}
	asOf := req.OccurredAt
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	legs, err := a.Plan(ctx, repos, req.Scope, req.WarehouseID, req.ItemID, req.Qty, asOf, req.AllowExpired, startRefLine)
	if err != nil {
		return nil, nil, err
	}

	effects := make([]inventory.Effect, 0, len(legs))
	for _, leg := range legs {
		cmd := inventory.AdjustCommand{
			Scope:       req.Scope,
			WarehouseID: req.WarehouseID,
			ItemID:      req.ItemID,
			BatchCode:   leg.BatchCode,
			Delta:       -leg.Qty,
			Reason:      reason,
			Ref:         req.Ref,
			RefLine:     leg.RefLine,
			OccurredAt:  asOf,
			TraceID:     req.TraceID,
			Meta:        inventory.AdjustMeta{SubReason: req.SubReason},
		}
		if _, err := a.mutator.Adjust(ctx, repos, cmd); err != nil {
			return nil, nil, err
		}
		effects = append(effects, inventory.Effect{
			WarehouseID: req.WarehouseID,
			ItemID:      req.ItemID,
			BatchCode:   leg.BatchCode,
			QtyDelta:    -leg.Qty,
			Ref:         inventory.TruncateRef(req.Ref),
			RefLine:     leg.RefLine,
			Reason:      reason,
		})
	}
	return legs, effects, nil
}
