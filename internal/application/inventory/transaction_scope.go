package inventory

import (
	"context"

	"github.com/wms/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error

	// Probe runs the given function within a transaction that is always
	// rolled back, regardless of the outcome. The function's own error, if
	// any, is returned. Used for scan pre-flight: the caller learns what
	// would happen without moving any stock.
	Probe(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all inventory repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// ItemRepo returns the item repository scoped to the current transaction
	ItemRepo() inventory.ItemRepository
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// StockRepo returns the stock slot repository scoped to the current transaction
	StockRepo() inventory.StockRepository
	// LedgerRepo returns the ledger repository scoped to the current transaction
	LedgerRepo() inventory.LedgerRepository
	// SnapshotRepo returns the snapshot repository scoped to the current transaction
	SnapshotRepo() inventory.SnapshotRepository
	// BarcodeRepo returns the barcode repository scoped to the current transaction
	BarcodeRepo() inventory.BarcodeRepository
	// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction
	PurchaseOrderRepo() inventory.PurchaseOrderRepository
	// VendorReturnRepo returns the vendor return repository scoped to the current transaction
	VendorReturnRepo() inventory.VendorReturnRepository
}

// Repositories bundles one concrete repository per aggregate. It satisfies
// TransactionalRepositories and backs the no-op scope used in tests.
type Repositories struct {
	Items          inventory.ItemRepository
	Batches        inventory.BatchRepository
	Stocks         inventory.StockRepository
	Ledger         inventory.LedgerRepository
	Snapshots      inventory.SnapshotRepository
	Barcodes       inventory.BarcodeRepository
	PurchaseOrders inventory.PurchaseOrderRepository
	VendorReturns  inventory.VendorReturnRepository
}

// ItemRepo returns the item repository.
func (r Repositories) ItemRepo() inventory.ItemRepository { return r.Items }

// BatchRepo returns the batch repository.
func (r Repositories) BatchRepo() inventory.BatchRepository { return r.Batches }

// StockRepo returns the stock slot repository.
func (r Repositories) StockRepo() inventory.StockRepository { return r.Stocks }

// LedgerRepo returns the ledger repository.
func (r Repositories) LedgerRepo() inventory.LedgerRepository { return r.Ledger }

// SnapshotRepo returns the snapshot repository.
func (r Repositories) SnapshotRepo() inventory.SnapshotRepository { return r.Snapshots }

// BarcodeRepo returns the barcode repository.
func (r Repositories) BarcodeRepo() inventory.BarcodeRepository { return r.Barcodes }

// PurchaseOrderRepo returns the purchase order repository.
func (r Repositories) PurchaseOrderRepo() inventory.PurchaseOrderRepository {
	return r.PurchaseOrders
}

// VendorReturnRepo returns the vendor return repository.
func (r Repositories) VendorReturnRepo() inventory.VendorReturnRepository {
	return r.VendorReturns
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not
// required. Probe behaves like Execute: writes are NOT discarded.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

// Probe runs the function without a real transaction and without rollback.
func (s *NoOpTransactionScope) Probe(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}
