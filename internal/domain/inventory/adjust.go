package inventory

import "time"

// AdjustCommand carries one balance change request into the adjust primitive.
// Ref and RefLine, together with the slot key and reason, form the
// idempotency fingerprint.
type AdjustCommand struct {
	Scope          Scope
	WarehouseID    int64
	ItemID         int64
	BatchCode      *string
	Delta          int64
	Reason         string
	Ref            string
	RefLine        int64
	OccurredAt     time.Time
	ProductionDate *time.Time
	ExpiryDate     *time.Time
	TraceID        string
	Meta           AdjustMeta
}

// AdjustMeta carries optional behaviour switches for the adjust primitive.
type AdjustMeta struct {
	// AllowZeroDeltaLedger admits delta=0 confirmation entries. SubReason must
	// then name the confirmation (COUNT_CONFIRM, RECEIPT_CONFIRM, ...).
	AllowZeroDeltaLedger bool
	SubReason            string
}

// AdjustResult reports what the primitive did. Idempotent hits and declined
// zero-deltas come back as result values, never as errors. BatchCode is the
// code as normalised and booked, which may differ from the one requested.
type AdjustResult struct {
	StockID        int64      `json:"stock_id"`
	BatchCode      *string    `json:"batch_code,omitempty"`
	Before         int64      `json:"before"`
	After          int64      `json:"after"`
	Delta          int64      `json:"delta"`
	Applied        bool       `json:"applied"`
	Idempotent     bool       `json:"idempotent"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

// Effect is one workflow contribution handed to the three-books enforcer:
// the claim that a ledger row with this ref/line exists and that the slot
// moved by QtyDelta.
type Effect struct {
	WarehouseID int64   `json:"warehouse_id"`
	ItemID      int64   `json:"item_id"`
	BatchCode   *string `json:"batch_code,omitempty"`
	QtyDelta    int64   `json:"qty_delta"`
	Ref         string  `json:"ref"`
	RefLine     int64   `json:"ref_line"`
	Reason      string  `json:"reason,omitempty"`
}

// LineStatus is the per-line outcome a workflow reports back to its caller.
type LineStatus string

const (
	LineStatusOK           LineStatus = "OK"
	LineStatusInsufficient LineStatus = "INSUFFICIENT"
	LineStatusRejected     LineStatus = "REJECTED"
)
