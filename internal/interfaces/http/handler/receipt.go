package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
)

// ReceiptService books confirmed receipt documents
type ReceiptService interface {
	Confirm(ctx context.Context, cmd appinv.ReceiptCommand) (*appinv.WorkflowResult, error)
}

// ReceiptHandler handles inbound receipt API endpoints
type ReceiptHandler struct {
	BaseHandler
	receipts ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// RegisterRoutes registers receipt routes on the API group
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/receipts", h.Confirm)
}

// ReceiptLineRequest represents one inbound line of a receipt
// @Description One line of a receipt document
type ReceiptLineRequest struct {
	LineNo         int64      `json:"line_no" binding:"required,min=1" example:"1"`
	ItemID         int64      `json:"item_id" binding:"required,min=1" example:"42"`
	Qty            int64      `json:"qty" binding:"required,min=1" example:"10"`
	BatchCode      *string    `json:"batch_code,omitempty" example:"B-2026-001"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	POLineNo       int        `json:"po_line_no,omitempty" example:"1"`
}

// ConfirmReceiptRequest represents a confirmed receipt document
// @Description Request body for booking a confirmed receipt
type ConfirmReceiptRequest struct {
	Scope       string               `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	WarehouseID int64                `json:"warehouse_id" binding:"required,min=1" example:"1"`
	ReceiptNo   string               `json:"receipt_no" binding:"required" example:"RCP-20260115-0001"`
	PONo        string               `json:"po_no,omitempty" example:"PO-1001"`
	Lines       []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
	OccurredAt  *time.Time           `json:"occurred_at,omitempty"`
}

// Confirm godoc
// @ID           confirmReceipt
// @Summary      Book a receipt
// @Description  Book a confirmed receipt document line by line. Replays of the same document are idempotent.
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        request body ConfirmReceiptRequest true "Receipt document"
// @Success      200 {object} APIResponse[appinv.WorkflowResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /receipts [post]
func (h *ReceiptHandler) Confirm(c *gin.Context) {
	var req ConfirmReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := appinv.ReceiptCommand{
		Scope:       defaultScope(req.Scope),
		WarehouseID: req.WarehouseID,
		ReceiptNo:   req.ReceiptNo,
		PONo:        req.PONo,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, appinv.ReceiptLine{
			LineNo:         line.LineNo,
			ItemID:         line.ItemID,
			Qty:            line.Qty,
			BatchCode:      line.BatchCode,
			ProductionDate: line.ProductionDate,
			ExpiryDate:     line.ExpiryDate,
			POLineNo:       line.POLineNo,
		})
	}

	result, err := h.receipts.Confirm(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// defaultScope maps an empty scope string to the production scope
func defaultScope(raw string) inventory.Scope {
	if raw == "" {
		return inventory.ScopeProd
	}
	return inventory.Scope(raw)
}
