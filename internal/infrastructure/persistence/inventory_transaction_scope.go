package persistence

import (
	"context"
	"errors"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// errProbeRollback forces a rollback at the end of a successful probe. It
// never leaves this package.
var errProbeRollback = errors.New("probe rollback")

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// Probe runs the given function within a transaction that is always rolled
// back. The function sees real locks and real data, so the caller learns
// exactly what Execute would do, but nothing it writes survives.
func (s *GormTransactionScope) Probe(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		fnErr = fn(repos)
		if fnErr != nil {
			return fnErr
		}
		return errProbeRollback
	})
	if errors.Is(err, errProbeRollback) {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return err
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ItemRepo returns the item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ItemRepo() inventory.ItemRepository {
	return NewGormItemRepository(r.tx)
}

// BatchRepo returns the batch repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// StockRepo returns the stock slot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StockRepo() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

// LedgerRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) LedgerRepo() inventory.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

// SnapshotRepo returns the snapshot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SnapshotRepo() inventory.SnapshotRepository {
	return NewGormSnapshotRepository(r.tx)
}

// BarcodeRepo returns the barcode repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BarcodeRepo() inventory.BarcodeRepository {
	return NewGormBarcodeRepository(r.tx)
}

// PurchaseOrderRepo returns the purchase order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PurchaseOrderRepo() inventory.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

// VendorReturnRepo returns the vendor return repository scoped to the current transaction.
func (r *gormTransactionalRepositories) VendorReturnRepo() inventory.VendorReturnRepository {
	return NewGormVendorReturnRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
