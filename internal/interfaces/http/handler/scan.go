package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wms/backend/internal/application/scan"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

// ScanService dispatches one scan submission to the matching workflow
type ScanService interface {
	Handle(ctx context.Context, cmd scan.Command) (*scan.Result, error)
}

// ScanHandler handles scan submissions from handheld devices
type ScanHandler struct {
	BaseHandler
	scans ScanService
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(scans ScanService) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// RegisterRoutes registers scan routes on the API group
func (h *ScanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/scan", h.Submit)
}

// ScanRequest represents one scan submission
// @Description Request body for submitting a scan
type ScanRequest struct {
	Scope       string `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	Mode        string `json:"mode" binding:"required" example:"receive"`
	Barcode     string `json:"barcode" binding:"required" example:"ITEM=42;QTY=5;BATCH=B101"`
	WarehouseID int64  `json:"warehouse_id" example:"1"`
	Probe       bool   `json:"probe" example:"false"`
	OccurredAt  string `json:"occurred_at" example:"2026-01-15T10:30:00Z"`
}

// Submit godoc
// @ID           submitScan
// @Summary      Submit a scan
// @Description  Parse a scanned payload and dispatch it to the receive, pick, or count workflow. Probe submissions report what would happen without moving stock.
// @Tags         scan
// @Accept       json
// @Produce      json
// @Param        X-Device-ID header string false "Device ID"
// @Param        request body ScanRequest true "Scan submission"
// @Success      200 {object} APIResponse[scan.Result]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /scan [post]
func (h *ScanHandler) Submit(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	scope := inventory.ScopeProd
	if req.Scope != "" {
		scope = inventory.Scope(req.Scope)
		if !scope.IsValid() {
			h.ErrorWithCode(c, "INVALID_SCOPE", "Unknown inventory scope: "+req.Scope)
			return
		}
	}

	cmd := scan.Command{
		Scope:       scope,
		Mode:        scan.Mode(req.Mode),
		Barcode:     req.Barcode,
		DeviceID:    c.GetString(middleware.DeviceIDContextKey),
		WarehouseID: req.WarehouseID,
		Probe:       req.Probe,
	}
	if req.OccurredAt != "" {
		occurredAt, err := parseDateTime(req.OccurredAt)
		if err != nil {
			h.BadRequest(c, "Invalid occurred_at format")
			return
		}
		cmd.OccurredAt = occurredAt
	}

	result, err := h.scans.Handle(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
