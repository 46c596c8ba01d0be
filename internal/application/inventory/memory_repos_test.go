package inventory

import (
	"github.com/wms/backend/tests/testutil"
)

// memRepos wraps the shared in-memory store with the wiring this package's
// tests need: the repository bundle and a no-op transaction scope.
type memRepos struct {
	*testutil.MemRepos
}

func newMemRepos() *memRepos {
	return &memRepos{testutil.NewMemRepos()}
}

func (m *memRepos) bundle() Repositories {
	return Repositories{
		Items:          m.MemRepos,
		Batches:        m.MemRepos,
		Stocks:         m.MemRepos,
		Ledger:         m.MemRepos,
		Snapshots:      m.SnapshotRepo(),
		Barcodes:       m.BarcodeRepo(),
		PurchaseOrders: m.PORepo(),
		VendorReturns:  m.MemRepos,
	}
}

func (m *memRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(m.bundle())
}
