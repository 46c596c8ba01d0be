package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/tests/testutil"
)

func newReceiptWorkflow(repos *memRepos) *ReceiptWorkflow {
	return NewReceiptWorkflow(repos.scope(), testMutator(), NewThreeBooksEnforcer(NewSnapshotEngine()), nil, zap.NewNop())
}

func TestReceiptWorkflowConfirm(t *testing.T) {
	ctx := context.Background()
	exp := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("Confirmed receipt lands in all three books", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		wf := newReceiptWorkflow(repos)

		result, err := wf.Confirm(ctx, ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R1",
			Lines: []ReceiptLine{{
				LineNo:     1,
				ItemID:     1,
				Qty:        10,
				BatchCode:  inventory.BatchCodePtr("B1"),
				ExpiryDate: &exp,
			}},
		})
		require.NoError(t, err)
		assert.True(t, result.OK())
		assert.Equal(t, 1, result.Applied)

		slot, err := repos.Find(ctx, inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: 1, ItemID: 1, BatchCodeKey: "B1"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), slot.Qty)

		entries, err := repos.FindByRef(ctx, inventory.ScopeProd, "R1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(10), entries[0].Delta)
		assert.Equal(t, inventory.RawReasonReceipt, entries[0].Reason)

		today := inventory.DateOnly(time.Now().UTC())
		qty, err := repos.FindQty(ctx, today, 1, 1, "B1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), qty)
	})

	t.Run("Replaying a receipt books nothing new", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		wf := newReceiptWorkflow(repos)

		cmd := ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R1",
			Lines:       []ReceiptLine{{LineNo: 1, ItemID: 1, Qty: 10, BatchCode: inventory.BatchCodePtr("B1")}},
		}
		first, err := wf.Confirm(ctx, cmd)
		require.NoError(t, err)
		require.Equal(t, 1, first.Applied)

		second, err := wf.Confirm(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Applied)
		assert.True(t, second.OK())
		require.NotNil(t, second.Lines[0].Adjust)
		assert.True(t, second.Lines[0].Adjust.Idempotent)

		entries, err := repos.FindByRef(ctx, inventory.ScopeProd, "R1")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		slot, err := repos.Find(ctx, inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: 1, ItemID: 1, BatchCodeKey: "B1"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), slot.Qty)
	})

	t.Run("Zero-quantity line records a confirmation entry", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		repos.SeedStock(inventory.ScopeProd, 1, 1, "B1", 5, nil)
		wf := newReceiptWorkflow(repos)

		result, err := wf.Confirm(ctx, ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R2",
			Lines:       []ReceiptLine{{LineNo: 1, ItemID: 1, Qty: 0, BatchCode: inventory.BatchCodePtr("B1")}},
		})
		require.NoError(t, err)
		assert.True(t, result.OK())

		entries, err := repos.FindByRef(ctx, inventory.ScopeProd, "R2")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(0), entries[0].Delta)
		require.NotNil(t, entries[0].SubReason)
		assert.Equal(t, inventory.SubReasonReceiptConfirm, *entries[0].SubReason)
	})

	t.Run("Bad line is rejected while the rest of the document books", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		repos.SeedItem(2, false, nil)
		wf := newReceiptWorkflow(repos)

		result, err := wf.Confirm(ctx, ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R3",
			Lines: []ReceiptLine{
				{LineNo: 1, ItemID: 1, Qty: 10}, // batch required but missing
				{LineNo: 2, ItemID: 2, Qty: 7},
			},
		})
		require.NoError(t, err)
		assert.False(t, result.OK())
		assert.Equal(t, 1, result.Applied)
		assert.Equal(t, inventory.LineStatusRejected, result.Lines[0].Status)
		assert.Equal(t, inventory.LineStatusOK, result.Lines[1].Status)
	})

	t.Run("Receipt against a purchase order credits the line", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		poLine, err := inventory.NewPurchaseOrderLine("PO-9", 1, 1, 50)
		require.NoError(t, err)
		require.NoError(t, repos.SavePOLine(ctx, poLine))
		wf := newReceiptWorkflow(repos)

		_, err = wf.Confirm(ctx, ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R4",
			PONo:        "PO-9",
			Lines: []ReceiptLine{{
				LineNo:    1,
				ItemID:    1,
				Qty:       20,
				BatchCode: inventory.BatchCodePtr("B1"),
				POLineNo:  1,
			}},
		})
		require.NoError(t, err)

		got, err := repos.FindLine(ctx, "PO-9", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(20), got.ReceivedQty)
		assert.Equal(t, int64(30), got.OutstandingQty())
	})

	t.Run("Confirm publishes one stock adjusted event per applied line", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)
		repos.SeedItem(2, false, nil)

		bus := event.NewInMemoryEventBus(zap.NewNop())
		handler := testutil.NewMockEventHandler(inventory.EventTypeStockAdjusted)
		bus.Subscribe(handler)

		wf := NewReceiptWorkflow(repos.scope(), testMutator(), NewThreeBooksEnforcer(NewSnapshotEngine()), bus, zap.NewNop())

		_, err := wf.Confirm(ctx, ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R5",
			Lines: []ReceiptLine{
				{LineNo: 1, ItemID: 1, Qty: 10, BatchCode: inventory.BatchCodePtr("B1"), ExpiryDate: &exp},
				{LineNo: 2, ItemID: 2, Qty: 7},
			},
		})
		require.NoError(t, err)

		require.True(t, testutil.WaitForEventCount(t, handler, 2, time.Second))
		adjusted, ok := handler.Handled()[0].(*inventory.StockAdjustedEvent)
		require.True(t, ok)
		assert.Equal(t, "R5", adjusted.Ref)
		assert.Equal(t, int64(10), adjusted.Delta)
	})

	t.Run("Replaying a reference with a conflicting quantity aborts and raises a violation event", func(t *testing.T) {
		repos := newMemRepos()
		repos.SeedItem(1, true, nil)

		bus := event.NewInMemoryEventBus(zap.NewNop())
		handler := testutil.NewMockEventHandler(inventory.EventTypeThreeBooksViolation)
		bus.Subscribe(handler)

		wf := NewReceiptWorkflow(repos.scope(), testMutator(), NewThreeBooksEnforcer(NewSnapshotEngine()), bus, zap.NewNop())

		cmd := ReceiptCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: 1,
			ReceiptNo:   "R6",
			Lines:       []ReceiptLine{{LineNo: 1, ItemID: 1, Qty: 10, BatchCode: inventory.BatchCodePtr("B1"), ExpiryDate: &exp}},
		}
		_, err := wf.Confirm(ctx, cmd)
		require.NoError(t, err)

		// same fingerprint, different quantity: the ledger row disagrees
		// with the claimed effect
		cmd.Lines[0].Qty = 12
		_, err = wf.Confirm(ctx, cmd)
		require.Error(t, err)
		var violation *inventory.ThreeBooksViolationError
		require.ErrorAs(t, err, &violation)
		require.Len(t, violation.DeltaMismatch, 1)
		assert.Equal(t, int64(10), violation.DeltaMismatch[0].LedgerDelta)

		require.True(t, testutil.WaitForEventCount(t, handler, 1, time.Second))
		evt, ok := handler.Handled()[0].(*inventory.ThreeBooksViolationEvent)
		require.True(t, ok)
		assert.Equal(t, "R6", evt.Ref)
	})
}
