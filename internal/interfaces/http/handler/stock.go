package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// StockQueries serves the read side of the inventory
type StockQueries interface {
	ListStocks(ctx context.Context, scope inventory.Scope, warehouseID int64, filter shared.Filter) (*shared.Paginated[inventory.StockSlot], error)
	ItemStocks(ctx context.Context, scope inventory.Scope, warehouseID, itemID int64) ([]inventory.StockSlot, error)
	QueryLedger(ctx context.Context, q inventory.LedgerQuery) (*shared.Paginated[inventory.LedgerEntry], error)
	ThreeBooksSummary(ctx context.Context, day time.Time) (*inventory.ThreeBooksSummary, error)
	RebuildSnapshot(ctx context.Context, cut time.Time) ([]time.Time, error)
	ListSnapshot(ctx context.Context, day time.Time, filter shared.Filter) (*shared.Paginated[inventory.Snapshot], error)
}

// StockHandler handles stock, ledger, and snapshot read endpoints
type StockHandler struct {
	BaseHandler
	queries StockQueries
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(queries StockQueries) *StockHandler {
	return &StockHandler{queries: queries}
}

// RegisterRoutes registers stock query routes on the API group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stocks", h.ListStocks)
	rg.GET("/items/:id/stocks", h.ItemStocks)
	rg.GET("/ledger", h.QueryLedger)
	rg.GET("/three-books", h.ThreeBooksSummary)

	snapshots := rg.Group("/snapshots")
	{
		snapshots.GET("", h.ListSnapshot)
		snapshots.POST("/rebuild", h.RebuildSnapshot)
	}
}

// ListStocks godoc
// @ID           listStocks
// @Summary      List stock slots
// @Description  Retrieve a paginated list of stock slots in a warehouse
// @Tags         stocks
// @Produce      json
// @Param        scope query string false "Inventory scope" Enums(PROD, DRILL) default(PROD)
// @Param        warehouse_id query int true "Warehouse ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]inventory.StockSlot]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /stocks [get]
func (h *StockHandler) ListStocks(c *gin.Context) {
	scope, err := queryScope(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
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

	page, err := h.queries.ListStocks(c.Request.Context(), scope, warehouseID, toFilter(req))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ItemStocks godoc
// @ID           getItemStocks
// @Summary      Get stock slots of one item
// @Description  Retrieve every slot of one item in a warehouse
// @Tags         stocks
// @Produce      json
// @Param        id path int true "Item ID"
// @Param        scope query string false "Inventory scope" Enums(PROD, DRILL) default(PROD)
// @Param        warehouse_id query int true "Warehouse ID"
// @Success      200 {object} APIResponse[[]inventory.StockSlot]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /items/{id}/stocks [get]
func (h *StockHandler) ItemStocks(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid item ID")
		return
	}
	scope, err := queryScope(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	warehouseID, err := strconv.ParseInt(c.Query("warehouse_id"), 10, 64)
	if err != nil || warehouseID <= 0 {
		h.BadRequest(c, "Invalid warehouse_id")
		return
	}

	slots, err := h.queries.ItemStocks(c.Request.Context(), scope, warehouseID, idReq.ID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, slots)
}

// QueryLedger godoc
// @ID           queryLedger
// @Summary      Query the stock ledger
// @Description  Retrieve a paginated list of ledger entries, newest first
// @Tags         ledger
// @Produce      json
// @Param        scope query string false "Inventory scope" Enums(PROD, DRILL) default(PROD)
// @Param        warehouse_id query int false "Filter by warehouse ID"
// @Param        item_id query int false "Filter by item ID"
// @Param        reason query string false "Filter by movement reason"
// @Param        ref query string false "Filter by document reference"
// @Param        from query string false "Lower bound on occurred_at" format(date-time)
// @Param        to query string false "Upper bound on occurred_at" format(date-time)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]inventory.LedgerEntry]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /ledger [get]
func (h *StockHandler) QueryLedger(c *gin.Context) {
	scope, err := queryScope(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	q := inventory.LedgerQuery{
		Scope:  scope,
		Reason: c.Query("reason"),
		Ref:    c.Query("ref"),
		Filter: toFilter(req),
	}
	if raw := c.Query("warehouse_id"); raw != "" {
		q.WarehouseID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.BadRequest(c, "Invalid warehouse_id")
			return
		}
	}
	if raw := c.Query("item_id"); raw != "" {
		q.ItemID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.BadRequest(c, "Invalid item_id")
			return
		}
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "Invalid from format")
			return
		}
		q.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "Invalid to format")
			return
		}
		q.To = &to
	}

	page, err := h.queries.QueryLedger(c.Request.Context(), q)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ThreeBooksSummary godoc
// @ID           getThreeBooksSummary
// @Summary      Get the three-books summary
// @Description  Read the grand totals of stocks, ledger, and snapshot for one day and whether they agree
// @Tags         ledger
// @Produce      json
// @Param        day query string false "Day to summarise, defaults to today" format(date)
// @Success      200 {object} APIResponse[inventory.ThreeBooksSummary]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /three-books [get]
func (h *StockHandler) ThreeBooksSummary(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "Invalid day format")
			return
		}
		day = parsed
	}

	summary, err := h.queries.ThreeBooksSummary(c.Request.Context(), day)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// ListSnapshot godoc
// @ID           listSnapshot
// @Summary      List snapshot rows
// @Description  Retrieve the daily snapshot rows of one day
// @Tags         snapshots
// @Produce      json
// @Param        day query string false "Snapshot day, defaults to today" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]inventory.Snapshot]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /snapshots [get]
func (h *StockHandler) ListSnapshot(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "Invalid day format")
			return
		}
		day = parsed
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.queries.ListSnapshot(c.Request.Context(), day, toFilter(req))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// RebuildSnapshotRequest controls the snapshot rebuild
// @Description Request body for rebuilding the daily snapshot. An omitted cut rebuilds up to now.
type RebuildSnapshotRequest struct {
	Cut *time.Time `json:"cut,omitempty"`
}

// RebuildSnapshotResponse reports the days a rebuild touched
// @Description Days backfilled by the rebuild
type RebuildSnapshotResponse struct {
	BackfilledDays []time.Time `json:"backfilled_days"`
}

// RebuildSnapshot godoc
// @ID           rebuildSnapshot
// @Summary      Rebuild the daily snapshot
// @Description  Rebuild today's snapshot from live stocks and backfill any missed days up to the cut
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Param        request body RebuildSnapshotRequest false "Rebuild options"
// @Success      200 {object} APIResponse[RebuildSnapshotResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /snapshots/rebuild [post]
func (h *StockHandler) RebuildSnapshot(c *gin.Context) {
	var req RebuildSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	cut := time.Now().UTC()
	if req.Cut != nil {
		cut = *req.Cut
	}

	days, err := h.queries.RebuildSnapshot(c.Request.Context(), cut)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, RebuildSnapshotResponse{BackfilledDays: days})
}
