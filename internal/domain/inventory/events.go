package inventory

import (
	"fmt"
	"time"

	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStockSlot = "StockSlot"

// Event type constants
const (
	EventTypeStockAdjusted       = "StockAdjusted"
	EventTypeShipmentPlanned     = "ShipmentPlanned"
	EventTypeThreeBooksViolation = "ThreeBooksViolation"
	EventTypeScanRejected        = "ScanRejected"
)

func slotAggregateKey(scope Scope, warehouseID, itemID int64) string {
	return fmt.Sprintf("%s:%d:%d", scope, warehouseID, itemID)
}

// StockAdjustedEvent is raised after a ledgered stock mutation commits.
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	Scope       Scope   `json:"scope"`
	WarehouseID int64   `json:"warehouse_id"`
	ItemID      int64   `json:"item_id"`
	BatchCode   *string `json:"batch_code,omitempty"`
	Delta       int64   `json:"delta"`
	Before      int64   `json:"before"`
	After       int64   `json:"after"`
	Reason      Reason  `json:"reason"`
	Ref         string  `json:"ref"`
	RefLine     int64   `json:"ref_line"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(cmd AdjustCommand, res *AdjustResult, reason Reason) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockSlot, slotAggregateKey(cmd.Scope, cmd.WarehouseID, cmd.ItemID)),
		Scope:           cmd.Scope,
		WarehouseID:     cmd.WarehouseID,
		ItemID:          cmd.ItemID,
		BatchCode:       cmd.BatchCode,
		Delta:           res.Delta,
		Before:          res.Before,
		After:           res.After,
		Reason:          reason,
		Ref:             cmd.Ref,
		RefLine:         cmd.RefLine,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// ShipmentPlannedEvent is raised when a first-expiry-first-out plan is
// committed against a shipment reference.
type ShipmentPlannedEvent struct {
	shared.BaseDomainEvent
	Scope       Scope     `json:"scope"`
	WarehouseID int64     `json:"warehouse_id"`
	ItemID      int64     `json:"item_id"`
	Ref         string    `json:"ref"`
	Legs        []PlanLeg `json:"legs"`
	TotalQty    int64     `json:"total_qty"`
}

// NewShipmentPlannedEvent creates a new ShipmentPlannedEvent
func NewShipmentPlannedEvent(scope Scope, warehouseID, itemID int64, ref string, legs []PlanLeg) *ShipmentPlannedEvent {
	return &ShipmentPlannedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentPlanned, AggregateTypeStockSlot, slotAggregateKey(scope, warehouseID, itemID)),
		Scope:           scope,
		WarehouseID:     warehouseID,
		ItemID:          itemID,
		Ref:             ref,
		Legs:            legs,
		TotalQty:        TotalPlanned(legs),
	}
}

// EventType returns the event type name
func (e *ShipmentPlannedEvent) EventType() string {
	return EventTypeShipmentPlanned
}

// ThreeBooksViolationEvent is raised when post-commit enforcement finds the
// ledger, the stock rows, and the daily snapshot out of agreement.
type ThreeBooksViolationEvent struct {
	shared.BaseDomainEvent
	Ref      string    `json:"ref"`
	Findings string    `json:"findings"`
	AsOf     time.Time `json:"as_of"`
}

// NewThreeBooksViolationEvent creates a new ThreeBooksViolationEvent
func NewThreeBooksViolationEvent(violation *ThreeBooksViolationError, asOf time.Time) *ThreeBooksViolationEvent {
	return &ThreeBooksViolationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeThreeBooksViolation, AggregateTypeStockSlot, violation.Ref),
		Ref:             violation.Ref,
		Findings:        violation.Error(),
		AsOf:            asOf,
	}
}

// EventType returns the event type name
func (e *ThreeBooksViolationEvent) EventType() string {
	return EventTypeThreeBooksViolation
}

// ScanRejectedEvent records a scan submission that failed validation or
// execution, so failed floor activity stays auditable.
type ScanRejectedEvent struct {
	shared.BaseDomainEvent
	DeviceID string `json:"device_id"`
	Mode     string `json:"mode"`
	Barcode  string `json:"barcode"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// NewScanRejectedEvent creates a new ScanRejectedEvent
func NewScanRejectedEvent(deviceID, mode, barcode, code, message string) *ScanRejectedEvent {
	return &ScanRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeScanRejected, AggregateTypeStockSlot, deviceID),
		DeviceID:        deviceID,
		Mode:            mode,
		Barcode:         barcode,
		Code:            code,
		Message:         message,
	}
}

// EventType returns the event type name
func (e *ScanRejectedEvent) EventType() string {
	return EventTypeScanRejected
}
