package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// ThreeBooksEnforcer verifies, at the end of every mutating workflow, that
// the three books agree: the ledger carries one row per claimed effect with
// the claimed delta, and the daily snapshot matches the live stock on every
// touched key. A violation aborts the workflow's transaction. It should be
// impossible under correct primitives; the enforcer is the watchdog, not
// the guarantor.
type ThreeBooksEnforcer struct {
	snapshots SnapshotEngine
}

// NewThreeBooksEnforcer creates a ThreeBooksEnforcer.
func NewThreeBooksEnforcer(snapshots SnapshotEngine) ThreeBooksEnforcer {
	return ThreeBooksEnforcer{snapshots: snapshots}
}

// Enforce rebuilds today's snapshot, then checks every effect against the
// ledger and every touched key against the snapshot. Effects in the drill
// scope skip the snapshot book; snapshots cover production stock only.
func (e ThreeBooksEnforcer) Enforce(ctx context.Context, repos TransactionalRepositories, scope inventory.Scope, ref string, effects []inventory.Effect) error {
	if len(effects) == 0 {
		return nil
	}

	if scope == inventory.ScopeProd {
		if _, err := e.snapshots.RebuildToday(ctx, repos); err != nil {
			return err
		}
	}

	violation := &inventory.ThreeBooksViolationError{Ref: ref}

	for _, eff := range effects {
		fp := inventory.Fingerprint{
			Scope:        scope,
			WarehouseID:  eff.WarehouseID,
			ItemID:       eff.ItemID,
			BatchCodeKey: inventory.BatchCodeKey(eff.BatchCode),
			Reason:       eff.Reason,
			Ref:          eff.Ref,
			RefLine:      eff.RefLine,
		}
		entry, err := repos.LedgerRepo().FindByFingerprint(ctx, fp)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				violation.MissingLedger = append(violation.MissingLedger, eff)
				continue
			}
			return err
		}
		if entry.Delta != eff.QtyDelta {
			violation.DeltaMismatch = append(violation.DeltaMismatch, inventory.DeltaMismatch{
				Effect:      eff,
				LedgerDelta: entry.Delta,
			})
		}
	}

	if scope == inventory.ScopeProd {
		today := inventory.DateOnly(time.Now().UTC())
		seen := make(map[inventory.SlotKey]struct{}, len(effects))
		for _, eff := range effects {
			key := inventory.SlotKey{
				Scope:        scope,
				WarehouseID:  eff.WarehouseID,
				ItemID:       eff.ItemID,
				BatchCodeKey: inventory.BatchCodeKey(eff.BatchCode),
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			var stockQty int64
			slot, err := repos.StockRepo().Find(ctx, key)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if slot != nil {
				stockQty = slot.Qty
			}

			snapQty, err := repos.SnapshotRepo().FindQty(ctx, today, key.WarehouseID, key.ItemID, key.BatchCodeKey)
			if err != nil {
				return err
			}
			if stockQty != snapQty {
				violation.StockVsSnapshot = append(violation.StockVsSnapshot, inventory.SnapshotMismatch{
					WarehouseID:  key.WarehouseID,
					ItemID:       key.ItemID,
					BatchCodeKey: key.BatchCodeKey,
					StockQty:     stockQty,
					SnapshotQty:  snapQty,
				})
			}
		}
	}

	if violation.HasFindings() {
		return violation
	}
	return nil
}
