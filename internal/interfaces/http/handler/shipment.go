package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
)

// ShipmentService books outbound orders
type ShipmentService interface {
	Ship(ctx context.Context, cmd appinv.ShipCommand) (*appinv.WorkflowResult, error)
}

// ShipmentHandler handles outbound shipment API endpoints
type ShipmentHandler struct {
	BaseHandler
	outbound ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(outbound ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{outbound: outbound}
}

// RegisterRoutes registers shipment routes on the API group
func (h *ShipmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/shipments", h.Ship)
}

// ShipLineRequest represents one outbound line of an order
// @Description One line of an outbound order. Omit batch_code to let the allocator pick batches in first-expiry order.
type ShipLineRequest struct {
	LineNo    int64   `json:"line_no" binding:"required,min=1" example:"1"`
	ItemID    int64   `json:"item_id" binding:"required,min=1" example:"42"`
	Qty       int64   `json:"qty" binding:"required,min=1" example:"5"`
	BatchCode *string `json:"batch_code,omitempty" example:"B-2026-001"`
}

// ShipOrderRequest represents an outbound order to book
// @Description Request body for booking an outbound order
type ShipOrderRequest struct {
	Scope        string             `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	WarehouseID  int64              `json:"warehouse_id" binding:"required,min=1" example:"1"`
	OrderID      string             `json:"order_id" binding:"required" example:"SO-20260115-0001"`
	Lines        []ShipLineRequest `json:"lines" binding:"required,min=1,dive"`
	OccurredAt   *time.Time        `json:"occurred_at,omitempty"`
	AllowExpired bool               `json:"allow_expired,omitempty" example:"false"`
}

// Ship godoc
// @ID           shipOrder
// @Summary      Book an outbound order
// @Description  Book an outbound order. Lines without a batch code are allocated first-expired-first-out; partial replays ship only the residual quantity.
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Param        request body ShipOrderRequest true "Outbound order"
// @Success      200 {object} APIResponse[appinv.WorkflowResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /shipments [post]
func (h *ShipmentHandler) Ship(c *gin.Context) {
	var req ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := appinv.ShipCommand{
		Scope:        defaultScope(req.Scope),
		WarehouseID:  req.WarehouseID,
		OrderID:      req.OrderID,
		AllowExpired: req.AllowExpired,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, appinv.ShipLine{
			LineNo:    line.LineNo,
			ItemID:    line.ItemID,
			Qty:       line.Qty,
			BatchCode: line.BatchCode,
		})
	}

	result, err := h.outbound.Ship(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
