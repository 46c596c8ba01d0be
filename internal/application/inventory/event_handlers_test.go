package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wms/backend/internal/domain/inventory"
)

func TestThreeBooksAlertHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewThreeBooksAlertHandler(zap.New(core))

	assert.Equal(t, []string{inventory.EventTypeThreeBooksViolation}, h.EventTypes())

	violation := &inventory.ThreeBooksViolationError{
		Ref:           "SO-1",
		DeltaMismatch: []inventory.DeltaMismatch{{}},
	}
	event := inventory.NewThreeBooksViolationEvent(violation, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	require.NoError(t, h.Handle(context.Background(), event))

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SO-1", entries[0].ContextMap()["ref"])
}

func TestThreeBooksAlertHandlerWrongEventType(t *testing.T) {
	h := NewThreeBooksAlertHandler(zap.NewNop())

	event := inventory.NewScanRejectedEvent("HT-001", "pick", "X", "INVALID_MODE", "nope")
	assert.Error(t, h.Handle(context.Background(), event))
}

func TestScanAuditHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewScanAuditHandler(zap.New(core))

	assert.Equal(t, []string{inventory.EventTypeScanRejected}, h.EventTypes())

	event := inventory.NewScanRejectedEvent("HT-007", "receive", "PO|P-1|1", "UNKNOWN_BARCODE", "no mapping")
	require.NoError(t, h.Handle(context.Background(), event))

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "HT-007", fields["device_id"])
	assert.Equal(t, "UNKNOWN_BARCODE", fields["code"])
}

func TestScanAuditHandlerWrongEventType(t *testing.T) {
	h := NewScanAuditHandler(zap.NewNop())

	violation := &inventory.ThreeBooksViolationError{Ref: "SO-1"}
	event := inventory.NewThreeBooksViolationEvent(violation, time.Now())
	assert.Error(t, h.Handle(context.Background(), event))
}
