package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

type fakeBarcodeRepo struct {
	byCode map[string]*inventory.Barcode
}

func newFakeBarcodeRepo() *fakeBarcodeRepo {
	return &fakeBarcodeRepo{byCode: make(map[string]*inventory.Barcode)}
}

func (r *fakeBarcodeRepo) FindByCode(_ context.Context, code string) (*inventory.Barcode, error) {
	if b, ok := r.byCode[code]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBarcodeRepo) Save(_ context.Context, barcode *inventory.Barcode) error {
	r.byCode[barcode.Barcode] = barcode
	return nil
}

type recordingInvalidator struct {
	codes []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, code string) {
	i.codes = append(i.codes, code)
}

func barcodeTestRouter(repo inventory.BarcodeRepository, cache BarcodeCacheInvalidator) *gin.Engine {
	router := gin.New()
	NewBarcodeHandler(repo, cache).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestBarcodeHandler_Register(t *testing.T) {
	repo := newFakeBarcodeRepo()
	cache := &recordingInvalidator{}
	router := barcodeTestRouter(repo, cache)

	w := postJSON(t, router, "/api/v1/barcodes", RegisterBarcodeRequest{
		Barcode: "4006381333931",
		ItemID:  42,
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)

	saved, ok := repo.byCode["4006381333931"]
	require.True(t, ok)
	assert.Equal(t, int64(42), saved.ItemID)
	assert.Nil(t, saved.WarehouseID)

	// stale cached resolutions are dropped on registration
	assert.Equal(t, []string{"4006381333931"}, cache.codes)
}

func TestBarcodeHandler_RegisterWarehouseBound(t *testing.T) {
	repo := newFakeBarcodeRepo()
	router := barcodeTestRouter(repo, nil)

	warehouseID := int64(3)
	w := postJSON(t, router, "/api/v1/barcodes", RegisterBarcodeRequest{
		Barcode:     "PALLET-7",
		ItemID:      42,
		WarehouseID: &warehouseID,
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)

	saved := repo.byCode["PALLET-7"]
	require.NotNil(t, saved.WarehouseID)
	assert.Equal(t, int64(3), *saved.WarehouseID)
}

func TestBarcodeHandler_RegisterEmptyCode(t *testing.T) {
	router := barcodeTestRouter(newFakeBarcodeRepo(), nil)

	w := postJSON(t, router, "/api/v1/barcodes", RegisterBarcodeRequest{
		Barcode: "   ",
		ItemID:  42,
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_BARCODE", resp.Error.Code)
}

func TestBarcodeHandler_GetByCode(t *testing.T) {
	repo := newFakeBarcodeRepo()
	repo.byCode["4006381333931"] = &inventory.Barcode{Barcode: "4006381333931", ItemID: 42}
	router := barcodeTestRouter(repo, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/barcodes/4006381333931", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "4006381333931", data["barcode"])
	assert.Equal(t, float64(42), data["item_id"])
}

func TestBarcodeHandler_GetByCodeNotFound(t *testing.T) {
	router := barcodeTestRouter(newFakeBarcodeRepo(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/barcodes/unknown", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
