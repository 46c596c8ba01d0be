package inventory

import (
	"strings"
	"time"
)

// Reason is the canonical movement family. Raw reasons stay on the entry for
// human readability; the canonical name is what queries group by.
type Reason string

const (
	ReasonReceipt    Reason = "RECEIPT"
	ReasonShipment   Reason = "SHIPMENT"
	ReasonAdjustment Reason = "ADJUSTMENT"
)

// Raw reasons emitted by the workflows in this package.
const (
	RawReasonReceipt     = "RECEIPT"
	RawReasonShipment    = "SHIPMENT"
	RawReasonAdjustment  = "ADJUSTMENT"
	RawReasonReturnOut   = "RETURN_OUT"
	RawReasonInternalOut = "INTERNAL_OUT"
)

// Sub-reason tags written by the workflows.
const (
	SubReasonCountConfirm   = "COUNT_CONFIRM"
	SubReasonCountAdjust    = "COUNT_ADJUST"
	SubReasonReceiptConfirm = "RECEIPT_CONFIRM"
	SubReasonOrderShip      = "ORDER_SHIP"
	SubReasonOpeningBalance = "OPENING_BALANCE"
)

// rawReasonCanon maps every known raw reason to its canonical family:
// inbound synonyms to RECEIPT, outbound synonyms to SHIPMENT, and the
// count/adjust/pack/scrap family to ADJUSTMENT.
var rawReasonCanon = map[string]Reason{
	"RECEIPT":       ReasonReceipt,
	"INBOUND":       ReasonReceipt,
	"RECEIVE":       ReasonReceipt,
	"RETURN_IN":     ReasonReceipt,
	"SHIP":          ReasonShipment,
	"SHIPMENT":      ReasonShipment,
	"OUTBOUND":      ReasonShipment,
	"OUTBOUND_SHIP": ReasonShipment,
	"DISPATCH":      ReasonShipment,
	"RTV":           ReasonShipment,
	"RETURN_OUT":    ReasonShipment,
	"INTERNAL_OUT":  ReasonShipment,
	"COUNT":         ReasonAdjustment,
	"ADJUST":        ReasonAdjustment,
	"ADJUSTMENT":    ReasonAdjustment,
	"PICK":          ReasonAdjustment,
	"PACK":          ReasonAdjustment,
	"SCRAP":         ReasonAdjustment,
	"CORRECT":       ReasonAdjustment,
}

// CanonicalReason normalises a raw reason string to its canonical family.
// Unrecognised reasons fall into the ADJUSTMENT family.
func CanonicalReason(raw string) Reason {
	if canon, ok := rawReasonCanon[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return canon
	}
	return ReasonAdjustment
}

// MaxRefLen is the persisted width of the ref column; longer business
// references (scan refs in particular) are truncated to fit.
const MaxRefLen = 100

// TruncateRef shortens a reference to the persisted column width.
func TruncateRef(ref string) string {
	if len(ref) <= MaxRefLen {
		return ref
	}
	return ref[:MaxRefLen]
}

// LedgerEntry is one immutable balance change. The ledger is append-only:
// after insertion only NULL auxiliary columns (reason_canon, sub_reason,
// trace_id, production/expiry dates) may be back-filled, never overwritten.
type LedgerEntry struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Scope        Scope   `gorm:"column:scope" json:"scope"`
	WarehouseID  int64   `gorm:"column:warehouse_id" json:"warehouse_id"`
	ItemID       int64   `gorm:"column:item_id" json:"item_id"`
	BatchCode    *string `gorm:"column:batch_code" json:"batch_code,omitempty"`
	BatchCodeKey string  `gorm:"column:batch_code_key;->" json:"batch_code_key"`
	Reason       string  `gorm:"column:reason" json:"reason"`
	ReasonCanon  *string `gorm:"column:reason_canon" json:"reason_canon,omitempty"`
	SubReason    *string `gorm:"column:sub_reason" json:"sub_reason,omitempty"`
	Ref          string  `gorm:"column:ref" json:"ref"`
	RefLine      int64   `gorm:"column:ref_line" json:"ref_line"`
	// Delta may be 0 for confirmation events; AfterQty is the post-write balance.
	Delta          int64      `gorm:"column:delta" json:"delta"`
	AfterQty       int64      `gorm:"column:after_qty" json:"after_qty"`
	OccurredAt     time.Time  `gorm:"column:occurred_at" json:"occurred_at"`
	TraceID        *string    `gorm:"column:trace_id" json:"trace_id,omitempty"`
	ProductionDate *time.Time `gorm:"column:production_date;type:date" json:"production_date,omitempty"`
	ExpiryDate     *time.Time `gorm:"column:expiry_date;type:date" json:"expiry_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the database table name
func (LedgerEntry) TableName() string {
	return "stock_ledger"
}

// Fingerprint identifies one idempotent mutation: two adjusts carrying the
// same fingerprint produce exactly one ledger row and one balance change.
type Fingerprint struct {
	Scope        Scope
	WarehouseID  int64
	ItemID       int64
	BatchCodeKey string
	Reason       string
	Ref          string
	RefLine      int64
}

// Fingerprint returns the entry's idempotency fingerprint.
func (e *LedgerEntry) Fingerprint() Fingerprint {
	return Fingerprint{
		Scope:        e.Scope,
		WarehouseID:  e.WarehouseID,
		ItemID:       e.ItemID,
		BatchCodeKey: BatchCodeKey(e.BatchCode),
		Reason:       e.Reason,
		Ref:          e.Ref,
		RefLine:      e.RefLine,
	}
}

// SlotKey returns the balance key the entry contributes to.
func (e *LedgerEntry) SlotKey() SlotKey {
	return SlotKey{
		Scope:        e.Scope,
		WarehouseID:  e.WarehouseID,
		ItemID:       e.ItemID,
		BatchCodeKey: BatchCodeKey(e.BatchCode),
	}
}
