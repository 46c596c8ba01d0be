package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/tests/testutil"
)

// recordingScope wraps the no-op scope and remembers which execution path
// the orchestrator took.
type recordingScope struct {
	inner    appinv.TransactionScope
	executed bool
	probed   bool
}

func (s *recordingScope) Execute(ctx context.Context, fn func(appinv.TransactionalRepositories) error) error {
	s.executed = true
	return s.inner.Execute(ctx, fn)
}

func (s *recordingScope) Probe(ctx context.Context, fn func(appinv.TransactionalRepositories) error) error {
	s.probed = true
	return s.inner.Probe(ctx, fn)
}

// capturePublisher collects published events.
type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type scanFixture struct {
	repos  *testutil.MemRepos
	scope  *recordingScope
	events *capturePublisher
	orch   *Orchestrator
}

func newScanFixture() *scanFixture {
	repos := testutil.NewMemRepos()
	bundle := appinv.Repositories{
		Items:          repos,
		Batches:        repos,
		Stocks:         repos,
		Ledger:         repos,
		Snapshots:      repos.SnapshotRepo(),
		Barcodes:       repos.BarcodeRepo(),
		PurchaseOrders: repos.PORepo(),
		VendorReturns:  repos,
	}
	scope := &recordingScope{inner: appinv.NewNoOpTransactionScope(bundle)}
	events := &capturePublisher{}
	logger := zap.NewNop()

	mutator := appinv.NewStockMutator(inventory.NewExpiryResolver(0))
	allocator := appinv.NewFefoAllocator(mutator)
	enforcer := appinv.NewThreeBooksEnforcer(appinv.NewSnapshotEngine())

	return &scanFixture{
		repos:  repos,
		scope:  scope,
		events: events,
		orch: NewOrchestrator(
			scope,
			NewParser(repos),
			appinv.NewReceiptWorkflow(scope, mutator, enforcer, events, logger),
			appinv.NewOutboundService(scope, mutator, allocator, enforcer, events, logger),
			appinv.NewCountWorkflow(scope, mutator, enforcer, events, logger),
			events,
			logger,
		),
	}
}

func (f *scanFixture) rejections() []*inventory.ScanRejectedEvent {
	var out []*inventory.ScanRejectedEvent
	for _, e := range f.events.events {
		if r, ok := e.(*inventory.ScanRejectedEvent); ok {
			out = append(out, r)
		}
	}
	return out
}

func scanCmd(mode Mode, barcode string) Command {
	return Command{
		Scope:       inventory.ScopeProd,
		Mode:        mode,
		Barcode:     barcode,
		DeviceID:    "dev1",
		WarehouseID: 1,
		OccurredAt:  time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
	}
}

func TestScanRef(t *testing.T) {
	ts := time.Date(2026, 8, 20, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "scan:dev1:202608201030:CODE", ScanRef("dev1", ts, "CODE"))

	long := ScanRef("dev1", ts, string(make([]byte, 200)))
	assert.LessOrEqual(t, len(long), inventory.MaxRefLen)
}

func TestOrchestratorHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("Receive scan books a receipt under the scan ref", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)

		result, err := f.orch.Handle(ctx, scanCmd(ModeReceive, "ITM:1 QTY:10 B:B1 EXP:20261231"))
		require.NoError(t, err)
		require.NotNil(t, result.Receipt)
		assert.True(t, result.Receipt.OK())
		assert.True(t, f.scope.executed)

		entries, err := f.repos.FindByRef(ctx, inventory.ScopeProd, result.ScanRef)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(10), entries[0].Delta)
	})

	t.Run("Count scan confirms a matching quantity", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)
		f.repos.SeedStock(inventory.ScopeProd, 1, 1, "B1", 5, nil)

		result, err := f.orch.Handle(ctx, scanCmd(ModeCount, "ITM:1 QTY:5 B:B1"))
		require.NoError(t, err)
		require.NotNil(t, result.Count)
		assert.Equal(t, int64(0), result.Count.Delta)
		assert.Equal(t, inventory.SubReasonCountConfirm, result.Count.SubReason)
	})

	t.Run("Pick scan ships in expiry order", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)
		exp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.repos.SeedStock(inventory.ScopeProd, 1, 1, "A", 10, &exp)

		result, err := f.orch.Handle(ctx, scanCmd(ModePick, "ITM:1 QTY:4"))
		require.NoError(t, err)
		require.NotNil(t, result.Shipment)
		assert.True(t, result.Shipment.OK())

		slot, err := f.repos.Find(ctx, inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: 1, ItemID: 1, BatchCodeKey: "A"})
		require.NoError(t, err)
		assert.Equal(t, int64(6), slot.Qty)
	})

	t.Run("Pick probe parses without dispatching", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)
		exp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.repos.SeedStock(inventory.ScopeProd, 1, 1, "A", 10, &exp)
		ledgerBefore := len(f.repos.Ledger)

		cmd := scanCmd(ModePick, "ITM:1 QTY:4")
		cmd.Probe = true
		result, err := f.orch.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Nil(t, result.Shipment)
		require.NotNil(t, result.Parsed)
		assert.Equal(t, int64(1), result.Parsed.ItemID)
		assert.False(t, f.scope.executed)
		assert.False(t, f.scope.probed)
		assert.Len(t, f.repos.Ledger, ledgerBefore)
	})

	t.Run("Receive probe runs under the probe path", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)

		cmd := scanCmd(ModeReceive, "ITM:1 QTY:10 B:B1")
		cmd.Probe = true
		result, err := f.orch.Handle(ctx, cmd)
		require.NoError(t, err)
		require.NotNil(t, result.Receipt)
		assert.True(t, f.scope.probed)
		assert.False(t, f.scope.executed)
	})

	t.Run("Putaway is a retired mode", func(t *testing.T) {
		f := newScanFixture()

		_, err := f.orch.Handle(ctx, scanCmd(Mode("putaway"), "ITM:1"))
		require.ErrorIs(t, err, shared.ErrFeatureDisabled)
		require.Len(t, f.rejections(), 1)
		assert.Equal(t, "FEATURE_DISABLED", f.rejections()[0].Code)
	})

	t.Run("Unknown mode is rejected", func(t *testing.T) {
		f := newScanFixture()

		_, err := f.orch.Handle(ctx, scanCmd(Mode("teleport"), "ITM:1"))
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_MODE", domainErr.Code)
	})

	t.Run("Unresolvable barcode publishes a rejection", func(t *testing.T) {
		f := newScanFixture()

		_, err := f.orch.Handle(ctx, scanCmd(ModeReceive, "garbage"))
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)
		require.Len(t, f.rejections(), 1)
		assert.Equal(t, "UNKNOWN_BARCODE", f.rejections()[0].Code)
	})

	t.Run("Insufficient stock on a pick surfaces as a scan error", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)
		exp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.repos.SeedStock(inventory.ScopeProd, 1, 1, "A", 2, &exp)

		_, err := f.orch.Handle(ctx, scanCmd(ModePick, "ITM:1 QTY:50"))
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
		require.Len(t, f.rejections(), 1)
	})

	t.Run("Warehouse token overrides the device warehouse", func(t *testing.T) {
		f := newScanFixture()
		f.repos.SeedItem(1, true, nil)

		result, err := f.orch.Handle(ctx, scanCmd(ModeReceive, "ITM:1 QTY:3 B:B1 WH:7"))
		require.NoError(t, err)

		slot, err := f.repos.Find(ctx, inventory.SlotKey{Scope: inventory.ScopeProd, WarehouseID: 7, ItemID: 1, BatchCodeKey: "B1"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), slot.Qty)
		assert.True(t, result.Receipt.OK())
	})
}
