package inventory

import (
	"context"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
)

// BatchRegistry maintains batch master rows. Ensure is idempotent on the
// natural key (warehouse, item, code); concurrent inserts are benign and
// date columns are only ever filled in, never overwritten.
type BatchRegistry struct{}

// NewBatchRegistry creates a BatchRegistry.
func NewBatchRegistry() BatchRegistry {
	return BatchRegistry{}
}

// Ensure inserts the batch row if it is missing and back-fills NULL dates
// on an existing row. Returns the row as persisted.
func (BatchRegistry) Ensure(ctx context.Context, batches inventory.BatchRepository, warehouseID, itemID int64, code string, production, expiry *time.Time) (*inventory.Batch, error) {
	batch, err := inventory.NewBatch(warehouseID, itemID, code, production, expiry)
	if err != nil {
		return nil, err
	}
	return batches.Ensure(ctx, batch)
}
