package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
)

// IssueService books internal issue documents
type IssueService interface {
	Confirm(ctx context.Context, cmd appinv.InternalIssueCommand) (*appinv.WorkflowResult, error)
}

// IssueHandler handles internal issue API endpoints
type IssueHandler struct {
	BaseHandler
	issues IssueService
}

// NewIssueHandler creates a new IssueHandler
func NewIssueHandler(issues IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

// RegisterRoutes registers internal issue routes on the API group
func (h *IssueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/issues", h.Confirm)
}

// IssueLineRequest represents one outbound line of an internal issue
// @Description One line of an internal issue document
type IssueLineRequest struct {
	LineNo    int64   `json:"line_no" binding:"required,min=1" example:"1"`
	ItemID    int64   `json:"item_id" binding:"required,min=1" example:"42"`
	Qty       int64   `json:"qty" binding:"required,min=1" example:"3"`
	BatchCode *string `json:"batch_code,omitempty" example:"B-2026-001"`
}

// ConfirmIssueRequest represents an internal issue document
// @Description Request body for booking an internal issue
type ConfirmIssueRequest struct {
	Scope         string             `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	WarehouseID   int64              `json:"warehouse_id" binding:"required,min=1" example:"1"`
	DocNo         string             `json:"doc_no" binding:"required" example:"ISS-20260115-0001"`
	RecipientName string             `json:"recipient_name" binding:"required" example:"Maintenance crew"`
	Lines         []IssueLineRequest `json:"lines" binding:"required,min=1,dive"`
	OccurredAt    *time.Time         `json:"occurred_at,omitempty"`
}

// Confirm godoc
// @ID           confirmIssue
// @Summary      Book an internal issue
// @Description  Book goods handed out internally to a named recipient. Lines without a batch code are allocated first-expired-first-out.
// @Tags         issues
// @Accept       json
// @Produce      json
// @Param        request body ConfirmIssueRequest true "Internal issue document"
// @Success      200 {object} APIResponse[appinv.WorkflowResult]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /issues [post]
func (h *IssueHandler) Confirm(c *gin.Context) {
	var req ConfirmIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := appinv.InternalIssueCommand{
		Scope:         defaultScope(req.Scope),
		WarehouseID:   req.WarehouseID,
		DocNo:         req.DocNo,
		RecipientName: req.RecipientName,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, appinv.IssueLine{
			LineNo:    line.LineNo,
			ItemID:    line.ItemID,
			Qty:       line.Qty,
			BatchCode: line.BatchCode,
		})
	}

	result, err := h.issues.Confirm(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
