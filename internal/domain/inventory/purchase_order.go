package inventory

import (
	"strings"

	"github.com/wms/backend/internal/domain/shared"
)

// PurchaseOrderLine is the receivable unit of an inbound order. Receipts
// increase ReceivedQty, vendor returns decrease it back toward zero.
type PurchaseOrderLine struct {
	shared.BaseEntity
	PONo        string `json:"po_no" gorm:"column:po_no;not null"`
	LineNo      int    `json:"line_no" gorm:"not null"`
	ItemID      int64  `json:"item_id" gorm:"not null"`
	OrderedQty  int64  `json:"ordered_qty" gorm:"not null"`
	ReceivedQty int64  `json:"received_qty" gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

// NewPurchaseOrderLine creates a purchase order line pending receipt.
func NewPurchaseOrderLine(poNo string, lineNo int, itemID, orderedQty int64) (*PurchaseOrderLine, error) {
	poNo = strings.TrimSpace(poNo)
	if poNo == "" {
		return nil, shared.NewDomainError("INVALID_PO_NO", "Purchase order number cannot be empty")
	}
	if lineNo <= 0 {
		return nil, shared.NewDomainError("INVALID_LINE_NO", "Purchase order line number must be positive")
	}
	if itemID <= 0 {
		return nil, shared.NewDomainError("INVALID_ITEM", "Purchase order line requires an item")
	}
	if orderedQty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity must be positive")
	}
	return &PurchaseOrderLine{
		PONo:       poNo,
		LineNo:     lineNo,
		ItemID:     itemID,
		OrderedQty: orderedQty,
	}, nil
}

// OutstandingQty is how much is still expected on this line.
func (l *PurchaseOrderLine) OutstandingQty() int64 {
	out := l.OrderedQty - l.ReceivedQty
	if out < 0 {
		return 0
	}
	return out
}

// RecordReceipt adds qty to the received total. Over-receipt is allowed,
// the line just tracks what actually arrived.
func (l *PurchaseOrderLine) RecordReceipt(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Receipt quantity must be positive")
	}
	l.ReceivedQty += qty
	return nil
}

// RecordReturn subtracts qty from the received total when stock goes back
// to the vendor. The total never drops below zero.
func (l *PurchaseOrderLine) RecordReturn(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	if qty > l.ReceivedQty {
		return shared.NewDomainError("RETURN_EXCEEDS_RECEIVED", "Cannot return more than was received on this line")
	}
	l.ReceivedQty -= qty
	return nil
}
