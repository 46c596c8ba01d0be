package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
)

// TestVendorReturnFlow_Integration books stock in against a purchase order,
// then returns part of it to the vendor through the pick/commit task flow.
func TestVendorReturnFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	svc := newInventoryServices(testDB)
	ctx := context.Background()

	const warehouseID = int64(1)
	itemID := testDB.CreateTestItem("SKU-MILK-1L", true)
	testDB.CreateTestPOLine("PO-2001", 1, itemID, warehouseID, 50)

	expiry := time.Now().UTC().Add(14 * 24 * time.Hour)
	_, err := svc.receipts.Confirm(ctx, invapp.ReceiptCommand{
		Scope:       inventory.ScopeProd,
		WarehouseID: warehouseID,
		ReceiptNo:   "RCV-2001",
		PONo:        "PO-2001",
		Lines: []invapp.ReceiptLine{
			{LineNo: 1, ItemID: itemID, Qty: 50, BatchCode: strPtr("B-RET"), ExpiryDate: &expiry, POLineNo: 1},
		},
	})
	require.NoError(t, err)

	task, err := svc.returns.CreateTask(ctx, invapp.CreateVendorReturnCommand{
		Scope:       inventory.ScopeProd,
		WarehouseID: warehouseID,
		VendorCode:  "V-ACME",
		PONo:        "PO-2001",
		Items:       []invapp.VendorReturnItemSpec{{POLineNo: 1, BatchCode: strPtr("B-RET")}},
	})
	require.NoError(t, err)
	require.Len(t, task.Lines, 1)
	assert.Equal(t, int64(50), task.Lines[0].ExpectedQty)

	t.Run("Pick and commit move stock out and debit the order", func(t *testing.T) {
		_, err := svc.returns.RecordPick(ctx, task.ID, task.Lines[0].ID, 20)
		require.NoError(t, err)

		result, err := svc.returns.Commit(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, result.OK())
		assert.Equal(t, 1, result.Applied)

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(30), qty["B-RET"])

		var received int64
		err = testDB.DB.Raw(
			`SELECT received_qty FROM purchase_order_lines WHERE po_no = ? AND line_no = 1`,
			"PO-2001",
		).Scan(&received).Error
		require.NoError(t, err)
		assert.Equal(t, int64(30), received)
	})

	t.Run("Ledger and stocks agree after the return", func(t *testing.T) {
		rows, err := svc.reconcile.DiffLedgerVsStocks(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("Committed task rejects further picks", func(t *testing.T) {
		_, err := svc.returns.RecordPick(ctx, task.ID, task.Lines[0].ID, 1)
		assert.Error(t, err)
	})
}

// TestReconcile_Integration verifies drift detection and the one-off
// opening-balance backfill against a real database.
func TestReconcile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	svc := newInventoryServices(testDB)
	ctx := context.Background()

	const warehouseID = int64(1)
	itemID := testDB.CreateTestItem("SKU-PALLET", false)

	_, err := svc.receipts.Confirm(ctx, invapp.ReceiptCommand{
		Scope:       inventory.ScopeProd,
		WarehouseID: warehouseID,
		ReceiptNo:   "RCV-3001",
		Lines:       []invapp.ReceiptLine{{LineNo: 1, ItemID: itemID, Qty: 10}},
	})
	require.NoError(t, err)

	t.Run("Healthy books show no drift", func(t *testing.T) {
		rows, err := svc.reconcile.DiffLedgerVsStocks(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("Hand-edited stock shows up as drift", func(t *testing.T) {
		// simulate a cutover import that bypassed the ledger
		err := testDB.DB.Exec(`UPDATE stocks SET qty = qty + 5 WHERE item_id = ?`, itemID).Error
		require.NoError(t, err)

		rows, err := svc.reconcile.DiffLedgerVsStocks(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(15), rows[0].StockQty)
		assert.Equal(t, int64(10), rows[0].LedgerQty)
		assert.Equal(t, int64(-5), rows[0].Diff)
	})

	t.Run("Opening balance backfill closes the gap", func(t *testing.T) {
		report, err := svc.reconcile.OpeningBalanceBackfill(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Checked)
		assert.Equal(t, 1, report.Written)

		rows, err := svc.reconcile.DiffLedgerVsStocks(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		assert.Empty(t, rows)

		// replaying the backfill is a no-op
		again, err := svc.reconcile.OpeningBalanceBackfill(ctx, inventory.ScopeProd)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Written)
	})
}
