package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// ThreeBooksAlertHandler handles ThreeBooksViolationEvent. A violation means
// a movement committed while the ledger, the stock rows, and the daily
// snapshot disagree, so it is surfaced at error level for the on-call
// operator regardless of what the originating request returned.
type ThreeBooksAlertHandler struct {
	logger *zap.Logger
}

// NewThreeBooksAlertHandler creates a new handler for three-books violation events
func NewThreeBooksAlertHandler(logger *zap.Logger) *ThreeBooksAlertHandler {
	return &ThreeBooksAlertHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ThreeBooksAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeThreeBooksViolation}
}

// Handle processes a ThreeBooksViolationEvent
func (h *ThreeBooksAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	violation, ok := event.(*inventory.ThreeBooksViolationEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeThreeBooksViolation),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeThreeBooksViolation, event.EventType())
	}

	h.logger.Error("three books disagree after commit",
		zap.String("ref", violation.Ref),
		zap.String("findings", violation.Findings),
		zap.Time("as_of", violation.AsOf),
	)
	return nil
}

// ScanAuditHandler handles ScanRejectedEvent so failed floor activity lands
// in the log stream with the device that produced it.
type ScanAuditHandler struct {
	logger *zap.Logger
}

// NewScanAuditHandler creates a new handler for rejected scan events
func NewScanAuditHandler(logger *zap.Logger) *ScanAuditHandler {
	return &ScanAuditHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ScanAuditHandler) EventTypes() []string {
	return []string{inventory.EventTypeScanRejected}
}

// Handle processes a ScanRejectedEvent
func (h *ScanAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	rejected, ok := event.(*inventory.ScanRejectedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeScanRejected),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeScanRejected, event.EventType())
	}

	h.logger.Warn("scan rejected",
		zap.String("device_id", rejected.DeviceID),
		zap.String("mode", rejected.Mode),
		zap.String("barcode", rejected.Barcode),
		zap.String("code", rejected.Code),
		zap.String("message", rejected.Message),
	)
	return nil
}

// Ensure handlers implement shared.EventHandler
var (
	_ shared.EventHandler = (*ThreeBooksAlertHandler)(nil)
	_ shared.EventHandler = (*ScanAuditHandler)(nil)
)
