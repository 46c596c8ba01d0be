package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invapp "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/persistence"
)

// inventoryServices wires the application services against one test
// database, the same way cmd/server does it.
type inventoryServices struct {
	receipts  *invapp.ReceiptWorkflow
	outbound  *invapp.OutboundService
	counts    *invapp.CountWorkflow
	issues    *invapp.InternalIssueWorkflow
	returns   *invapp.VendorReturnWorkflow
	reconcile *invapp.ReconcileService
	queries   *invapp.StockQueryService
}

func newInventoryServices(testDB *TestDB) *inventoryServices {
	repos := invapp.Repositories{
		Items:          persistence.NewGormItemRepository(testDB.DB),
		Batches:        persistence.NewGormBatchRepository(testDB.DB),
		Stocks:         persistence.NewGormStockRepository(testDB.DB),
		Ledger:         persistence.NewGormLedgerRepository(testDB.DB),
		Snapshots:      persistence.NewGormSnapshotRepository(testDB.DB),
		Barcodes:       persistence.NewGormBarcodeRepository(testDB.DB),
		PurchaseOrders: persistence.NewGormPurchaseOrderRepository(testDB.DB),
		VendorReturns:  persistence.NewGormVendorReturnRepository(testDB.DB),
	}
	txScope := persistence.NewGormTransactionScope(testDB.DB)
	log := zap.NewNop()

	mutator := invapp.NewStockMutator(inventory.NewExpiryResolver(0))
	allocator := invapp.NewFefoAllocator(mutator)
	snapshots := invapp.NewSnapshotEngine()
	enforcer := invapp.NewThreeBooksEnforcer(snapshots)

	return &inventoryServices{
		receipts:  invapp.NewReceiptWorkflow(txScope, mutator, enforcer, nil, log),
		outbound:  invapp.NewOutboundService(txScope, mutator, allocator, enforcer, nil, log),
		counts:    invapp.NewCountWorkflow(txScope, mutator, enforcer, nil, log),
		issues:    invapp.NewInternalIssueWorkflow(txScope, mutator, allocator, enforcer, nil, log),
		returns:   invapp.NewVendorReturnWorkflow(txScope, mutator, enforcer, nil, log),
		reconcile: invapp.NewReconcileService(txScope, log),
		queries:   invapp.NewStockQueryService(repos, txScope, snapshots, log),
	}
}

// batchQty reads the live per-batch balances of one item. Batch-free slots
// show up under the empty key.
func batchQty(t *testing.T, svc *inventoryServices, warehouseID, itemID int64) map[string]int64 {
	t.Helper()

	slots, err := svc.queries.ItemStocks(context.Background(), inventory.ScopeProd, warehouseID, itemID)
	require.NoError(t, err)

	out := make(map[string]int64, len(slots))
	for _, slot := range slots {
		key := ""
		if slot.BatchCode != nil {
			key = *slot.BatchCode
		}
		out[key] += slot.Qty
	}
	return out
}

func strPtr(s string) *string { return &s }

// TestInventoryFlow_Integration drives the full receive/ship/count cycle
// against a real PostgreSQL database. Subtests build on each other.
func TestInventoryFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	svc := newInventoryServices(testDB)
	ctx := context.Background()

	const warehouseID = int64(1)
	itemID := testDB.CreateTestItem("SKU-YOG-500", true)
	testDB.CreateTestPOLine("PO-1001", 1, itemID, warehouseID, 100)

	now := time.Now().UTC()
	earlyExpiry := now.Add(30 * 24 * time.Hour)
	lateExpiry := now.Add(90 * 24 * time.Hour)

	receipt := invapp.ReceiptCommand{
		Scope:       inventory.ScopeProd,
		WarehouseID: warehouseID,
		ReceiptNo:   "RCV-1001",
		PONo:        "PO-1001",
		Lines: []invapp.ReceiptLine{
			{LineNo: 1, ItemID: itemID, Qty: 60, BatchCode: strPtr("B-EARLY"), ExpiryDate: &earlyExpiry, POLineNo: 1},
			{LineNo: 2, ItemID: itemID, Qty: 40, BatchCode: strPtr("B-LATE"), ExpiryDate: &lateExpiry, POLineNo: 1},
		},
	}

	t.Run("Receipt books stock and credits the purchase order", func(t *testing.T) {
		result, err := svc.receipts.Confirm(ctx, receipt)
		require.NoError(t, err)
		assert.True(t, result.OK())
		assert.Equal(t, 2, result.Applied)

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(60), qty["B-EARLY"])
		assert.Equal(t, int64(40), qty["B-LATE"])

		var received int64
		err = testDB.DB.Raw(
			`SELECT received_qty FROM purchase_order_lines WHERE po_no = ? AND line_no = 1`,
			"PO-1001",
		).Scan(&received).Error
		require.NoError(t, err)
		assert.Equal(t, int64(100), received)
	})

	t.Run("Replaying the same receipt moves nothing", func(t *testing.T) {
		result, err := svc.receipts.Confirm(ctx, receipt)
		require.NoError(t, err)
		assert.True(t, result.OK())
		assert.Equal(t, 0, result.Applied)

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(60), qty["B-EARLY"])
		assert.Equal(t, int64(40), qty["B-LATE"])

		// the purchase order was not credited twice
		var received int64
		err = testDB.DB.Raw(
			`SELECT received_qty FROM purchase_order_lines WHERE po_no = ? AND line_no = 1`,
			"PO-1001",
		).Scan(&received).Error
		require.NoError(t, err)
		assert.Equal(t, int64(100), received)
	})

	t.Run("Ship without batch codes drains earliest expiry first", func(t *testing.T) {
		result, err := svc.outbound.Ship(ctx, invapp.ShipCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: warehouseID,
			OrderID:     "SO-2001",
			Lines:       []invapp.ShipLine{{LineNo: 1, ItemID: itemID, Qty: 70}},
		})
		require.NoError(t, err)
		assert.True(t, result.OK())

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(0), qty["B-EARLY"])
		assert.Equal(t, int64(30), qty["B-LATE"])
	})

	t.Run("Count adjusts the slot to the counted quantity", func(t *testing.T) {
		res, err := svc.counts.Count(ctx, invapp.CountCommand{
			Scope:       inventory.ScopeProd,
			WarehouseID: warehouseID,
			ItemID:      itemID,
			BatchCode:   strPtr("B-LATE"),
			Actual:      25,
			Ref:         "CNT-3001",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(30), res.Current)
		assert.Equal(t, int64(-5), res.Delta)

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(25), qty["B-LATE"])
	})

	t.Run("Internal issue books against a recipient", func(t *testing.T) {
		result, err := svc.issues.Confirm(ctx, invapp.InternalIssueCommand{
			Scope:         inventory.ScopeProd,
			WarehouseID:   warehouseID,
			DocNo:         "ISS-4001",
			RecipientName: "maintenance crew",
			Lines:         []invapp.IssueLine{{LineNo: 1, ItemID: itemID, Qty: 5}},
		})
		require.NoError(t, err)
		assert.True(t, result.OK())

		qty := batchQty(t, svc, warehouseID, itemID)
		assert.Equal(t, int64(20), qty["B-LATE"])
	})

	t.Run("Three books agree after the day's movements", func(t *testing.T) {
		summary, err := svc.queries.ThreeBooksSummary(ctx, time.Now().UTC())
		require.NoError(t, err)
		assert.True(t, summary.InBalance())
		assert.Equal(t, int64(20), summary.StocksTotal)
	})

	t.Run("Ledger carries the full document trail", func(t *testing.T) {
		page, err := svc.queries.QueryLedger(ctx, inventory.LedgerQuery{
			Scope:       inventory.ScopeProd,
			WarehouseID: warehouseID,
			ItemID:      itemID,
			Filter:      shared.DefaultFilter(),
		})
		require.NoError(t, err)
		// two receipt lines, two ship legs, one count, one issue
		assert.Equal(t, int64(6), page.Total)
	})
}
