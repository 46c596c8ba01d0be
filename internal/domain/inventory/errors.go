package inventory

import (
	"fmt"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// Domain error codes surfaced to transports.
var (
	ErrBatchRequired       = shared.NewDomainError("BATCH_REQUIRED", "Batch code is required for this item")
	ErrInsufficientStock   = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrDateConsistency     = shared.NewDomainError("DATE_CONSISTENCY", "Expiry date precedes production date")
	ErrUnknownBarcode      = shared.NewDomainError("UNKNOWN_BARCODE", "Barcode could not be resolved to an item")
	ErrThreeBooksViolation = shared.NewDomainError("THREE_BOOKS_VIOLATION", "Ledger, stocks, and snapshot disagree")
)

// Remediation hints attached to insufficiency errors so a UI can suggest
// the next action.
const (
	HintRescanStock       = "rescan_stock"
	HintAdjustToAvailable = "adjust_to_available"
)

// BatchRequiredError reports a mutation on a batch-tracked item that arrived
// without a batch code.
type BatchRequiredError struct {
	WarehouseID int64 `json:"warehouse_id"`
	ItemID      int64 `json:"item_id"`
}

func (e *BatchRequiredError) Error() string {
	return fmt.Sprintf("item %d at warehouse %d requires a batch code", e.ItemID, e.WarehouseID)
}

// Unwrap ties the error to its domain code.
func (e *BatchRequiredError) Unwrap() error {
	return ErrBatchRequired
}

// InsufficientStockError fails an outbound movement and carries enough
// context for shortage explanations.
type InsufficientStockError struct {
	Scope       Scope   `json:"scope"`
	WarehouseID int64   `json:"warehouse_id"`
	ItemID      int64   `json:"item_id"`
	BatchCode   *string `json:"batch_code,omitempty"`
	Required    int64   `json:"required"`
	Available   int64   `json:"available"`
	Shortage    int64   `json:"shortage"`
	Hint        string  `json:"hint"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d at warehouse %d: required %d, available %d, shortage %d",
		e.ItemID, e.WarehouseID, e.Required, e.Available, e.Shortage)
}

// Unwrap ties the error to its domain code.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DateConsistencyError rejects an inbound movement whose resolved expiry
// precedes its production date.
type DateConsistencyError struct {
	ProductionDate time.Time `json:"production_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
}

func (e *DateConsistencyError) Error() string {
	return fmt.Sprintf("expiry date %s precedes production date %s",
		e.ExpiryDate.Format("2006-01-02"), e.ProductionDate.Format("2006-01-02"))
}

// Unwrap ties the error to its domain code.
func (e *DateConsistencyError) Unwrap() error {
	return ErrDateConsistency
}

// UnknownBarcodeError reports a scan payload no resolution layer could decode.
type UnknownBarcodeError struct {
	Barcode string `json:"barcode"`
}

func (e *UnknownBarcodeError) Error() string {
	return fmt.Sprintf("barcode %q could not be resolved", e.Barcode)
}

// Unwrap ties the error to its domain code.
func (e *UnknownBarcodeError) Unwrap() error {
	return ErrUnknownBarcode
}

// FeatureDisabledError reports a request for a retired capability.
type FeatureDisabledError struct {
	Feature string `json:"feature"`
}

func (e *FeatureDisabledError) Error() string {
	return fmt.Sprintf("feature disabled: %s", e.Feature)
}

// Unwrap ties the error to its domain code.
func (e *FeatureDisabledError) Unwrap() error {
	return shared.ErrFeatureDisabled
}

// DeltaMismatch is one enforcement finding: a ledger row exists for the
// effect but its delta differs from the claimed quantity.
type DeltaMismatch struct {
	Effect      Effect `json:"effect"`
	LedgerDelta int64  `json:"ledger_delta"`
}

// SnapshotMismatch is one enforcement finding: today's snapshot disagrees
// with the stock slot on a touched key.
type SnapshotMismatch struct {
	WarehouseID  int64  `json:"warehouse_id"`
	ItemID       int64  `json:"item_id"`
	BatchCodeKey string `json:"batch_code_key"`
	StockQty     int64  `json:"stock_qty"`
	SnapshotQty  int64  `json:"snapshot_qty"`
}

// ThreeBooksViolationError is the post-commit watchdog report. It should be
// impossible under correct primitives; when raised it aborts the whole
// transaction.
type ThreeBooksViolationError struct {
	Ref             string             `json:"ref"`
	MissingLedger   []Effect           `json:"missing_ledger,omitempty"`
	DeltaMismatch   []DeltaMismatch    `json:"delta_mismatch,omitempty"`
	StockVsSnapshot []SnapshotMismatch `json:"stock_vs_snapshot,omitempty"`
}

func (e *ThreeBooksViolationError) Error() string {
	return fmt.Sprintf("three books violation on ref %q: %d missing ledger rows, %d delta mismatches, %d stock/snapshot mismatches",
		e.Ref, len(e.MissingLedger), len(e.DeltaMismatch), len(e.StockVsSnapshot))
}

// Unwrap ties the error to its domain code.
func (e *ThreeBooksViolationError) Unwrap() error {
	return ErrThreeBooksViolation
}

// HasFindings returns true when any section carries a diagnostic.
func (e *ThreeBooksViolationError) HasFindings() bool {
	return len(e.MissingLedger) > 0 || len(e.DeltaMismatch) > 0 || len(e.StockVsSnapshot) > 0
}

// IntegrityError wraps a database uniqueness or foreign-key violation that
// was not an expected idempotency conflict. Never auto-retried.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %v", e.Err)
}

// Unwrap exposes both the domain code and the database cause.
func (e *IntegrityError) Unwrap() error {
	return shared.ErrIntegrity
}

// Cause returns the underlying database error.
func (e *IntegrityError) Cause() error {
	return e.Err
}
