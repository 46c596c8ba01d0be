package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wms/backend/internal/domain/inventory"
)

// BarcodeCacheInvalidator drops a cached barcode resolution after the
// mapping changes
type BarcodeCacheInvalidator interface {
	Invalidate(ctx context.Context, code string)
}

// BarcodeHandler handles barcode mapping API endpoints
type BarcodeHandler struct {
	BaseHandler
	barcodes inventory.BarcodeRepository
	cache    BarcodeCacheInvalidator
}

// NewBarcodeHandler creates a new BarcodeHandler. cache may be nil when no
// read-through cache is configured.
func NewBarcodeHandler(barcodes inventory.BarcodeRepository, cache BarcodeCacheInvalidator) *BarcodeHandler {
	return &BarcodeHandler{barcodes: barcodes, cache: cache}
}

// RegisterRoutes registers barcode routes on the API group
func (h *BarcodeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	barcodes := rg.Group("/barcodes")
	{
		barcodes.POST("", h.Register)
		barcodes.GET("/:code", h.GetByCode)
	}
}

// RegisterBarcodeRequest represents a barcode mapping registration
// @Description Request body for registering a barcode mapping. Omit warehouse_id for a global mapping.
type RegisterBarcodeRequest struct {
	Barcode     string `json:"barcode" binding:"required" example:"4006381333931"`
	ItemID      int64  `json:"item_id" binding:"required,min=1" example:"42"`
	WarehouseID *int64 `json:"warehouse_id,omitempty" example:"1"`
}

// Register godoc
// @ID           registerBarcode
// @Summary      Register a barcode mapping
// @Description  Create or replace the mapping from a raw code to an item. A stale cached resolution is invalidated.
// @Tags         barcodes
// @Accept       json
// @Produce      json
// @Param        request body RegisterBarcodeRequest true "Barcode mapping"
// @Success      201 {object} APIResponse[inventory.Barcode]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /barcodes [post]
func (h *BarcodeHandler) Register(c *gin.Context) {
	var req RegisterBarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	barcode, err := inventory.NewBarcode(req.Barcode, req.ItemID, req.WarehouseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if err := h.barcodes.Save(c.Request.Context(), barcode); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), barcode.Barcode)
	}

	h.Created(c, barcode)
}

// GetByCode godoc
// @ID           getBarcode
// @Summary      Get a barcode mapping
// @Description  Retrieve the mapping for a raw code
// @Tags         barcodes
// @Produce      json
// @Param        code path string true "Raw barcode"
// @Success      200 {object} APIResponse[inventory.Barcode]
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /barcodes/{code} [get]
func (h *BarcodeHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")

	barcode, err := h.barcodes.FindByCode(c.Request.Context(), code)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, barcode)
}
