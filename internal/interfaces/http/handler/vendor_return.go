package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// VendorReturnService runs the return-to-vendor lifecycle
type VendorReturnService interface {
	CreateTask(ctx context.Context, cmd appinv.CreateVendorReturnCommand) (*inventory.VendorReturnTask, error)
	RecordPick(ctx context.Context, taskID, lineID, qty int64) (*inventory.VendorReturnTask, error)
	ClaimNextPick(ctx context.Context, taskID, qty int64) (*inventory.VendorReturnLine, error)
	Commit(ctx context.Context, taskID int64) (*appinv.WorkflowResult, error)
	Cancel(ctx context.Context, taskID int64) error
}

// VendorReturnHandler handles return-to-vendor API endpoints
type VendorReturnHandler struct {
	BaseHandler
	returns VendorReturnService
	tasks   inventory.VendorReturnRepository
}

// NewVendorReturnHandler creates a new VendorReturnHandler
func NewVendorReturnHandler(returns VendorReturnService, tasks inventory.VendorReturnRepository) *VendorReturnHandler {
	return &VendorReturnHandler{returns: returns, tasks: tasks}
}

// RegisterRoutes registers vendor return routes on the API group
func (h *VendorReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	returns := rg.Group("/vendor-returns")
	{
		returns.POST("", h.Create)
		returns.GET("", h.ListOpen)
		returns.GET("/:id", h.GetByID)
		returns.POST("/:id/picks", h.RecordPick)
		returns.POST("/:id/picks/claim", h.ClaimPick)
		returns.POST("/:id/commit", h.Commit)
		returns.POST("/:id/cancel", h.Cancel)
	}
}

// VendorReturnItemRequest selects one purchase order line for a return task
// @Description One purchase order line selection
type VendorReturnItemRequest struct {
	POLineNo  int     `json:"po_line_no" binding:"required,min=1" example:"1"`
	BatchCode *string `json:"batch_code,omitempty" example:"B-2026-001"`
}

// CreateVendorReturnRequest represents a request to open a return task
// @Description Request body for opening a return-to-vendor task. With no items, every returnable line of the order is included.
type CreateVendorReturnRequest struct {
	Scope       string                    `json:"scope" binding:"omitempty,oneof=PROD DRILL" example:"PROD"`
	WarehouseID int64                     `json:"warehouse_id" binding:"required,min=1" example:"1"`
	VendorCode  string                    `json:"vendor_code" binding:"required" example:"ACME"`
	PONo        string                    `json:"po_no" binding:"required" example:"PO-1001"`
	Items       []VendorReturnItemRequest `json:"items,omitempty"`
}

// RecordPickRequest represents picked quantity on one task line
// @Description Request body for recording a pick on a task line
type RecordPickRequest struct {
	LineID int64 `json:"line_id" binding:"required,min=1" example:"7"`
	Qty    int64 `json:"qty" binding:"required,min=1" example:"4"`
}

// ClaimPickRequest represents a worker asking for the next open line
// @Description Request body for claiming the next open line of a task. A zero or omitted qty picks the line's full remaining quantity.
type ClaimPickRequest struct {
	Qty int64 `json:"qty" example:"4"`
}

// Create godoc
// @ID           createVendorReturn
// @Summary      Open a vendor return task
// @Description  Open a return-to-vendor task against a purchase order. Each selected line expects the lesser of the received and the available quantity.
// @Tags         vendor-returns
// @Accept       json
// @Produce      json
// @Param        request body CreateVendorReturnRequest true "Return task request"
// @Success      201 {object} APIResponse[inventory.VendorReturnTask]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns [post]
func (h *VendorReturnHandler) Create(c *gin.Context) {
	var req CreateVendorReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := appinv.CreateVendorReturnCommand{
		Scope:       defaultScope(req.Scope),
		WarehouseID: req.WarehouseID,
		VendorCode:  req.VendorCode,
		PONo:        req.PONo,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, appinv.VendorReturnItemSpec{
			POLineNo:  item.POLineNo,
			BatchCode: item.BatchCode,
		})
	}

	task, err := h.returns.CreateTask(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, task)
}

// ListOpen godoc
// @ID           listOpenVendorReturns
// @Summary      List open vendor return tasks
// @Description  Retrieve a paginated list of open return tasks for a warehouse
// @Tags         vendor-returns
// @Produce      json
// @Param        warehouse_id query int true "Warehouse ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]inventory.VendorReturnTask]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns [get]
func (h *VendorReturnHandler) ListOpen(c *gin.Context) {
	warehouseID, err := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		h.BadRequest(c, "Invalid warehouse_id")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.tasks.ListOpenTasks(c.Request.Context(), warehouseID, toFilter(req))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getVendorReturn
// @Summary      Get a vendor return task
// @Description  Retrieve a return task with its lines
// @Tags         vendor-returns
// @Produce      json
// @Param        id path int true "Task ID"
// @Success      200 {object} APIResponse[inventory.VendorReturnTask]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns/{id} [get]
func (h *VendorReturnHandler) GetByID(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.FindTaskByID(c.Request.Context(), taskID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, task)
}

// RecordPick godoc
// @ID           recordVendorReturnPick
// @Summary      Record a pick on a task line
// @Description  Add picked quantity to one line of an open task. Picks are intent only; stock moves at commit.
// @Tags         vendor-returns
// @Accept       json
// @Produce      json
// @Param        id path int true "Task ID"
// @Param        request body RecordPickRequest true "Pick record"
// @Success      200 {object} APIResponse[inventory.VendorReturnTask]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns/{id}/picks [post]
func (h *VendorReturnHandler) RecordPick(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	var req RecordPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	task, err := h.returns.RecordPick(c.Request.Context(), taskID, req.LineID, req.Qty)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, task)
}

// ClaimPick godoc
// @ID           claimVendorReturnPick
// @Summary      Claim the next open line
// @Description  Hand one still-open line of the task to the calling worker and record the pick on it. Workers pulling from the same task never block each other.
// @Tags         vendor-returns
// @Accept       json
// @Produce      json
// @Param        id path int true "Task ID"
// @Param        request body ClaimPickRequest false "Claim request"
// @Success      200 {object} APIResponse[inventory.VendorReturnLine]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns/{id}/picks/claim [post]
func (h *VendorReturnHandler) ClaimPick(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	var req ClaimPickRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	line, err := h.returns.ClaimNextPick(c.Request.Context(), taskID, req.Qty)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, line)
}

// Commit godoc
// @ID           commitVendorReturn
// @Summary      Commit a vendor return task
// @Description  Book every picked quantity out of stock and debit the purchase order's received counters, then close the task.
// @Tags         vendor-returns
// @Produce      json
// @Param        id path int true "Task ID"
// @Success      200 {object} APIResponse[appinv.WorkflowResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns/{id}/commit [post]
func (h *VendorReturnHandler) Commit(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	result, err := h.returns.Commit(c.Request.Context(), taskID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel godoc
// @ID           cancelVendorReturn
// @Summary      Cancel a vendor return task
// @Description  Abandon an open task. Nothing has moved, so there is nothing to compensate.
// @Tags         vendor-returns
// @Produce      json
// @Param        id path int true "Task ID"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /vendor-returns/{id}/cancel [post]
func (h *VendorReturnHandler) Cancel(c *gin.Context) {
	taskID, ok := h.taskID(c)
	if !ok {
		return
	}

	if err := h.returns.Cancel(c.Request.Context(), taskID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// taskID parses the task ID path parameter, replying 400 on failure
func (h *VendorReturnHandler) taskID(c *gin.Context) (int64, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid task ID")
		return 0, false
	}
	return req.ID, true
}
