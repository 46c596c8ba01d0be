package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
)

// CountService records physical counts
type CountService interface {
	Count(ctx context.Context, cmd appinv.CountCommand) (*appinv.CountResult, error)
}

// CountHandler handles physical count API endpoints
type CountHandler struct {
	BaseHandler
	counts CountService
}

// NewCountHandler creates a new CountHandler
func NewCountHandler(counts CountService) *CountHandler {
	return &CountHandler{counts: counts}
}

// RegisterRoutes registers count routes on the API group
func (h *CountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/counts", h.Record)
}

// RecordCountRequest represents one physical count of a slot
// @Description Request body for recording a physical count
type RecordCountRequest struct {
	Scope          string     `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	WarehouseID    int64      `json:"warehouse_id" binding:"required,min=1" example:"1"`
	ItemID         int64      `json:"item_id" binding:"required,min=1" example:"42"`
	BatchCode      *string    `json:"batch_code,omitempty" example:"B-2026-001"`
	Actual         *int64     `json:"actual" binding:"required" example:"98"`
	Ref            string     `json:"ref" binding:"required" example:"CNT-20260115-0001"`
	RefLine        int64      `json:"ref_line,omitempty" example:"1"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	OccurredAt     *time.Time `json:"occurred_at,omitempty"`
}

// Record godoc
// @ID           recordCount
// @Summary      Record a physical count
// @Description  Record the counted quantity of one slot. The delta against the book quantity is booked as a tagged adjustment; a zero delta books nothing.
// @Tags         counts
// @Accept       json
// @Produce      json
// @Param        request body RecordCountRequest true "Physical count"
// @Success      200 {object} APIResponse[appinv.CountResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /counts [post]
func (h *CountHandler) Record(c *gin.Context) {
	var req RecordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := appinv.CountCommand{
		Scope:          defaultScope(req.Scope),
		WarehouseID:    req.WarehouseID,
		ItemID:         req.ItemID,
		BatchCode:      req.BatchCode,
		Actual:         *req.Actual,
		Ref:            req.Ref,
		RefLine:        req.RefLine,
		ProductionDate: req.ProductionDate,
		ExpiryDate:     req.ExpiryDate,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	result, err := h.counts.Count(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
