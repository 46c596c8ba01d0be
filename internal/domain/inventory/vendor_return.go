package inventory

import (
	"fmt"
	"strings"

	"github.com/wms/backend/internal/domain/shared"
)

// VendorReturnStatus represents the status of a return-to-vendor task
type VendorReturnStatus string

const (
	VendorReturnStatusOpen      VendorReturnStatus = "OPEN"
	VendorReturnStatusCommitted VendorReturnStatus = "COMMITTED"
	VendorReturnStatusCancelled VendorReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid VendorReturnStatus
func (s VendorReturnStatus) IsValid() bool {
	switch s {
	case VendorReturnStatusOpen, VendorReturnStatusCommitted, VendorReturnStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of VendorReturnStatus
func (s VendorReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s VendorReturnStatus) CanTransitionTo(target VendorReturnStatus) bool {
	switch s {
	case VendorReturnStatusOpen:
		return target == VendorReturnStatusCommitted || target == VendorReturnStatusCancelled
	case VendorReturnStatusCommitted, VendorReturnStatusCancelled:
		return false // Terminal states
	}
	return false
}

// VendorReturnLine is one picked position of a return task. ExpectedQty is
// fixed when the task is created, PickedQty grows as the floor confirms
// each pick and never exceeds ExpectedQty.
type VendorReturnLine struct {
	shared.BaseEntity
	TaskID      int64   `json:"task_id" gorm:"not null;index"`
	POLineID    int64   `json:"po_line_id" gorm:"column:po_line_id;not null"`
	ItemID      int64   `json:"item_id" gorm:"not null"`
	BatchCode   *string `json:"batch_code,omitempty"`
	ExpectedQty int64   `json:"expected_qty" gorm:"not null"`
	PickedQty   int64   `json:"picked_qty" gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (VendorReturnLine) TableName() string {
	return "vendor_return_lines"
}

// RecordPick adds qty to the picked total, capped by what the task expects.
func (l *VendorReturnLine) RecordPick(qty int64) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Pick quantity must be positive")
	}
	if l.PickedQty+qty > l.ExpectedQty {
		return shared.NewDomainError("PICK_EXCEEDS_EXPECTED",
			fmt.Sprintf("Pick of %d would exceed expected %d (already picked %d)", qty, l.ExpectedQty, l.PickedQty))
	}
	l.PickedQty += qty
	return nil
}

// Remaining is the quantity still to pick on this line.
func (l *VendorReturnLine) Remaining() int64 {
	return l.ExpectedQty - l.PickedQty
}

// VendorReturnTask groups the lines of one return shipment back to a vendor.
// Stock only moves when the task commits.
type VendorReturnTask struct {
	shared.BaseEntity
	Scope       Scope              `json:"scope" gorm:"type:varchar(10);not null"`
	WarehouseID int64              `json:"warehouse_id" gorm:"not null"`
	VendorCode  string             `json:"vendor_code" gorm:"not null"`
	PONo        string             `json:"po_no" gorm:"column:po_no;not null"`
	Status      VendorReturnStatus `json:"status" gorm:"type:varchar(20);not null;default:'OPEN'"`
	Lines       []VendorReturnLine `json:"lines" gorm:"foreignKey:TaskID"`
}

// TableName returns the table name for GORM
func (VendorReturnTask) TableName() string {
	return "vendor_return_tasks"
}

// NewVendorReturnTask creates an open return task with no lines yet.
func NewVendorReturnTask(scope Scope, warehouseID int64, vendorCode, poNo string) (*VendorReturnTask, error) {
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+scope.String())
	}
	if warehouseID <= 0 {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Vendor return task requires a warehouse")
	}
	vendorCode = strings.TrimSpace(vendorCode)
	if vendorCode == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor code cannot be empty")
	}
	poNo = strings.TrimSpace(poNo)
	if poNo == "" {
		return nil, shared.NewDomainError("INVALID_PO_NO", "Purchase order number cannot be empty")
	}
	return &VendorReturnTask{
		Scope:       scope,
		WarehouseID: warehouseID,
		VendorCode:  vendorCode,
		PONo:        poNo,
		Status:      VendorReturnStatusOpen,
	}, nil
}

// AddLine appends an expected pick to an open task.
func (t *VendorReturnTask) AddLine(poLineID, itemID int64, batchCode *string, expectedQty int64) error {
	if t.Status != VendorReturnStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added while the task is open")
	}
	if expectedQty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Expected quantity must be positive")
	}
	t.Lines = append(t.Lines, VendorReturnLine{
		POLineID:    poLineID,
		ItemID:      itemID,
		BatchCode:   batchCode,
		ExpectedQty: expectedQty,
	})
	return nil
}

// LineByID returns the line with the given ID, or nil.
func (t *VendorReturnTask) LineByID(lineID int64) *VendorReturnLine {
	for i := range t.Lines {
		if t.Lines[i].ID == lineID {
			return &t.Lines[i]
		}
	}
	return nil
}

// PickedTotal sums picked quantities across all lines.
func (t *VendorReturnTask) PickedTotal() int64 {
	var total int64
	for i := range t.Lines {
		total += t.Lines[i].PickedQty
	}
	return total
}

// Commit moves the task to COMMITTED. The caller ships the picked stock in
// the same transaction; a task with nothing picked cannot commit.
func (t *VendorReturnTask) Commit() error {
	if !t.Status.CanTransitionTo(VendorReturnStatusCommitted) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot commit vendor return task in status %s", t.Status))
	}
	if t.PickedTotal() == 0 {
		return shared.NewDomainError("NOTHING_PICKED", "Vendor return task has no picked quantity to commit")
	}
	t.Status = VendorReturnStatusCommitted
	return nil
}

// Cancel moves the task to CANCELLED. Picked-but-uncommitted quantities are
// simply abandoned, no stock has moved yet.
func (t *VendorReturnTask) Cancel() error {
	if !t.Status.CanTransitionTo(VendorReturnStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel vendor return task in status %s", t.Status))
	}
	t.Status = VendorReturnStatusCancelled
	return nil
}
