package inventory

import (
	"time"

	"github.com/wms/backend/internal/domain/inventory"
)

// ReceiptLine is one inbound position of a confirmed receipt document.
type ReceiptLine struct {
	LineNo         int64      `json:"line_no"`
	ItemID         int64      `json:"item_id"`
	Qty            int64      `json:"qty"`
	BatchCode      *string    `json:"batch_code,omitempty"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	// POLineNo credits the received counter of that purchase order line
	// when set together with the command's PONo.
	POLineNo int `json:"po_line_no,omitempty"`
}

// ReceiptCommand books a confirmed receipt document.
type ReceiptCommand struct {
	Scope       inventory.Scope `json:"scope"`
	WarehouseID int64           `json:"warehouse_id"`
	ReceiptNo   string          `json:"receipt_no"`
	PONo        string          `json:"po_no,omitempty"`
	Lines       []ReceiptLine   `json:"lines"`
	OccurredAt  time.Time       `json:"occurred_at"`
	TraceID     string          `json:"trace_id,omitempty"`
}

// ShipLine is one outbound position of an order. A nil BatchCode lets the
// allocator pick batches in first-expiry order.
type ShipLine struct {
	LineNo    int64   `json:"line_no"`
	ItemID    int64   `json:"item_id"`
	Qty       int64   `json:"qty"`
	BatchCode *string `json:"batch_code,omitempty"`
}

// ShipCommand books an outbound order. Duplicate lines on the same
// (item, batch) key are merged before booking.
type ShipCommand struct {
	Scope        inventory.Scope `json:"scope"`
	WarehouseID  int64           `json:"warehouse_id"`
	OrderID      string          `json:"order_id"`
	Lines        []ShipLine      `json:"lines"`
	OccurredAt   time.Time       `json:"occurred_at"`
	TraceID      string          `json:"trace_id,omitempty"`
	AllowExpired bool            `json:"allow_expired,omitempty"`
}

// CountCommand records one physical count of a slot.
type CountCommand struct {
	Scope          inventory.Scope `json:"scope"`
	WarehouseID    int64           `json:"warehouse_id"`
	ItemID         int64           `json:"item_id"`
	BatchCode      *string         `json:"batch_code,omitempty"`
	Actual         int64           `json:"actual"`
	Ref            string          `json:"ref"`
	RefLine        int64           `json:"ref_line,omitempty"`
	ProductionDate *time.Time      `json:"production_date,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	TraceID        string          `json:"trace_id,omitempty"`
}

// CountResult reports the outcome of one count.
type CountResult struct {
	Current   int64                   `json:"current"`
	Actual    int64                   `json:"actual"`
	Delta     int64                   `json:"delta"`
	SubReason string                  `json:"sub_reason"`
	Adjust    *inventory.AdjustResult `json:"adjust"`
}

// VendorReturnItemSpec selects one purchase order line for a return task.
type VendorReturnItemSpec struct {
	POLineNo  int     `json:"po_line_no"`
	BatchCode *string `json:"batch_code,omitempty"`
}

// CreateVendorReturnCommand opens a return-to-vendor task against a
// purchase order. With no item specs, every line of the order that still
// has returnable quantity is included.
type CreateVendorReturnCommand struct {
	Scope       inventory.Scope        `json:"scope"`
	WarehouseID int64                  `json:"warehouse_id"`
	VendorCode  string                 `json:"vendor_code"`
	PONo        string                 `json:"po_no"`
	Items       []VendorReturnItemSpec `json:"items,omitempty"`
}

// IssueLine is one outbound position of an internal issue document.
type IssueLine struct {
	LineNo    int64   `json:"line_no"`
	ItemID    int64   `json:"item_id"`
	Qty       int64   `json:"qty"`
	BatchCode *string `json:"batch_code,omitempty"`
}

// InternalIssueCommand books goods handed out internally, to a named
// recipient instead of a customer order.
type InternalIssueCommand struct {
	Scope         inventory.Scope `json:"scope"`
	WarehouseID   int64           `json:"warehouse_id"`
	DocNo         string          `json:"doc_no"`
	RecipientName string          `json:"recipient_name"`
	Lines         []IssueLine     `json:"lines"`
	OccurredAt    time.Time       `json:"occurred_at"`
	TraceID       string          `json:"trace_id,omitempty"`
}

// LineResult is the per-line outcome of a multi-line workflow. Failed lines
// carry the error text; the workflow continues with the remaining lines.
type LineResult struct {
	LineNo    int64                   `json:"line_no"`
	ItemID    int64                   `json:"item_id"`
	BatchCode *string                 `json:"batch_code,omitempty"`
	Status    inventory.LineStatus    `json:"status"`
	Error     string                  `json:"error,omitempty"`
	Adjust    *inventory.AdjustResult `json:"adjust,omitempty"`
	Legs      []inventory.PlanLeg     `json:"legs,omitempty"`
}

// WorkflowResult is the outcome of one document-level workflow run.
type WorkflowResult struct {
	Ref     string       `json:"ref"`
	Lines   []LineResult `json:"lines"`
	Applied int          `json:"applied"`
}

// OK reports whether every line landed.
func (r *WorkflowResult) OK() bool {
	for i := range r.Lines {
		if r.Lines[i].Status != inventory.LineStatusOK {
			return false
		}
	}
	return true
}

// ReconcileReport is the outcome of an opening-balance backfill.
type ReconcileReport struct {
	Checked int                      `json:"checked"`
	Written int                      `json:"written"`
	Rows    []inventory.ReconcileRow `json:"rows,omitempty"`
}
