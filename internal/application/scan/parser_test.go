package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/tests/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParserKV(t *testing.T) {
	ctx := context.Background()
	parser := NewParser(testutil.NewMemRepos())

	t.Run("Full token set decodes every field", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "ITM:42 QTY:5 B:LOT1 PD:20260101 EXP:2026-06-30 WH:2 TLID:7", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(42), parsed.ItemID)
		assert.Equal(t, int64(5), parsed.Qty)
		require.NotNil(t, parsed.BatchCode)
		assert.Equal(t, "LOT1", *parsed.BatchCode)
		require.NotNil(t, parsed.ProductionDate)
		assert.Equal(t, date(2026, 1, 1), *parsed.ProductionDate)
		require.NotNil(t, parsed.ExpiryDate)
		assert.Equal(t, date(2026, 6, 30), *parsed.ExpiryDate)
		assert.Equal(t, int64(2), parsed.WarehouseID)
		assert.Equal(t, int64(7), parsed.TaskLineID)
		assert.Equal(t, "kv", parsed.Source)
	})

	t.Run("Long key aliases work", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "ITEM_ID:42 BATCH_CODE:X WAREHOUSE_ID:3", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(42), parsed.ItemID)
		assert.Equal(t, "X", *parsed.BatchCode)
		assert.Equal(t, int64(3), parsed.WarehouseID)
	})

	t.Run("Quantity defaults to one", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "ITM:42", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), parsed.Qty)
	})

	t.Run("KV payload without an item token is rejected, not re-resolved", func(t *testing.T) {
		_, err := parser.Parse(ctx, "QTY:5 B:LOT1", 1)
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("Malformed numeric value is rejected", func(t *testing.T) {
		_, err := parser.Parse(ctx, "ITM:abc", 1)
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)
	})
}

func TestParserBarcodeTable(t *testing.T) {
	ctx := context.Background()

	t.Run("Registered code resolves with quantity one", func(t *testing.T) {
		repos := testutil.NewMemRepos()
		repos.SeedBarcode("4006381333931", 7, nil)
		parser := NewParser(repos)

		parsed, err := parser.Parse(ctx, "4006381333931", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(7), parsed.ItemID)
		assert.Equal(t, int64(1), parsed.Qty)
		assert.Equal(t, "barcode", parsed.Source)
	})

	t.Run("Warehouse-bound mapping only resolves in its warehouse", func(t *testing.T) {
		repos := testutil.NewMemRepos()
		wh := int64(2)
		repos.SeedBarcode("LOCAL-1", 7, &wh)
		parser := NewParser(repos)

		parsed, err := parser.Parse(ctx, "LOCAL-1", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(7), parsed.ItemID)
		assert.Equal(t, int64(2), parsed.WarehouseID)

		_, err = parser.Parse(ctx, "LOCAL-1", 5)
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)
	})
}

func TestParserGS1(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewMemRepos()
	repos.SeedBarcode("04012345678904", 9, nil)
	parser := NewParser(repos)

	t.Run("Aimed form with GTIN, expiry, and batch", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "(01)04012345678904(17)261231(10)LOT42", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(9), parsed.ItemID)
		assert.Equal(t, "gs1", parsed.Source)
		require.NotNil(t, parsed.ExpiryDate)
		assert.Equal(t, date(2026, 12, 31), *parsed.ExpiryDate)
		require.NotNil(t, parsed.BatchCode)
		assert.Equal(t, "LOT42", *parsed.BatchCode)
	})

	t.Run("Compact form decodes the same way", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "01040123456789041726123110LOT42", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(9), parsed.ItemID)
		require.NotNil(t, parsed.ExpiryDate)
		assert.Equal(t, date(2026, 12, 31), *parsed.ExpiryDate)
		assert.Equal(t, "LOT42", *parsed.BatchCode)
	})

	t.Run("Day 00 means the end of the month", func(t *testing.T) {
		parsed, err := parser.Parse(ctx, "(01)04012345678904(17)260200", 1)
		require.NoError(t, err)
		require.NotNil(t, parsed.ExpiryDate)
		assert.Equal(t, date(2026, 2, 28), *parsed.ExpiryDate)
	})

	t.Run("GTIN without a table entry stays unknown", func(t *testing.T) {
		_, err := parser.Parse(ctx, "(01)99999999999999(10)LOT1", 1)
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)
	})

	t.Run("Garbage payload is unknown", func(t *testing.T) {
		_, err := parser.Parse(ctx, "not-a-barcode", 1)
		var unknown *inventory.UnknownBarcodeError
		require.ErrorAs(t, err, &unknown)

		_, err = parser.Parse(ctx, "   ", 1)
		require.ErrorAs(t, err, &unknown)
	})
}
