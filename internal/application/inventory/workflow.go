package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// ensureTraceID prefers the caller's id, then the active trace, then a
// fresh uuid so ledger rows always carry something correlatable.
func ensureTraceID(ctx context.Context, traceID string) string {
	if traceID != "" {
		return traceID
	}
	if id := telemetry.GetTraceID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// classifyLineError maps an adjust failure onto a per-line status. Line
// level failures let the workflow continue with the remaining lines; other
// errors are fatal to the whole transaction.
func classifyLineError(err error) (inventory.LineStatus, bool) {
	var insufficient *inventory.InsufficientStockError
	if errors.As(err, &insufficient) {
		return inventory.LineStatusInsufficient, true
	}
	var batchRequired *inventory.BatchRequiredError
	if errors.As(err, &batchRequired) {
		return inventory.LineStatusRejected, true
	}
	var dateErr *inventory.DateConsistencyError
	if errors.As(err, &dateErr) {
		return inventory.LineStatusRejected, true
	}
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInvalidInput) {
		return inventory.LineStatusRejected, true
	}
	return "", false
}

// publishViolation raises the watchdog event when enforcement fails. The
// surrounding transaction rolls back; the event is how alerting learns
// about a violation that never reached the books.
func publishViolation(ctx context.Context, events shared.EventPublisher, err error) {
	if events == nil {
		return
	}
	var violation *inventory.ThreeBooksViolationError
	if !errors.As(err, &violation) {
		return
	}
	_ = events.Publish(ctx, inventory.NewThreeBooksViolationEvent(violation, time.Now().UTC()))
}

// effectFromAdjust records one applied or replayed mutation for the
// enforcer. Replays still claim their row: the fingerprint exists with the
// same delta, so the claim holds.
func effectFromAdjust(cmd inventory.AdjustCommand, delta int64) inventory.Effect {
	return inventory.Effect{
		WarehouseID: cmd.WarehouseID,
		ItemID:      cmd.ItemID,
		BatchCode:   cmd.BatchCode,
		QtyDelta:    delta,
		Ref:         inventory.TruncateRef(cmd.Ref),
		RefLine:     cmd.RefLine,
		Reason:      cmd.Reason,
	}
}
