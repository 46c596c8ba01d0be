package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
)

// ReconcileService diagnoses and repairs drift between the books
type ReconcileService interface {
	DiffLedgerVsStocks(ctx context.Context, scope inventory.Scope) ([]inventory.ReconcileRow, error)
	OpeningBalanceBackfill(ctx context.Context, scope inventory.Scope) (*appinv.ReconcileReport, error)
}

// ReconcileHandler handles reconciliation API endpoints
type ReconcileHandler struct {
	BaseHandler
	reconcile ReconcileService
}

// NewReconcileHandler creates a new ReconcileHandler
func NewReconcileHandler(reconcile ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcile: reconcile}
}

// RegisterRoutes registers reconciliation routes on the API group
func (h *ReconcileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reconcile := rg.Group("/reconcile")
	{
		reconcile.GET("/diff", h.Diff)
		reconcile.POST("/opening-balance", h.OpeningBalance)
	}
}

// Diff godoc
// @ID           reconcileDiff
// @Summary      Diff ledger against stocks
// @Description  Return every key of the scope where the summed ledger disagrees with the live stock quantity
// @Tags         reconcile
// @Produce      json
// @Param        scope query string false "Inventory scope" Enums(PROD, DRILL) default(PROD)
// @Success      200 {object} APIResponse[[]inventory.ReconcileRow]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /reconcile/diff [get]
func (h *ReconcileHandler) Diff(c *gin.Context) {
	scope, err := queryScope(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	rows, err := h.reconcile.DiffLedgerVsStocks(c.Request.Context(), scope)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rows)
}

// OpeningBalance godoc
// @ID           reconcileOpeningBalance
// @Summary      Backfill opening balances
// @Description  Write one epoch-dated adjustment per drifting key so the summed ledger agrees with the live stocks. Intended for cutover; replays are idempotent.
// @Tags         reconcile
// @Produce      json
// @Param        scope query string false "Inventory scope" Enums(PROD, DRILL) default(PROD)
// @Success      200 {object} APIResponse[appinv.ReconcileReport]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /reconcile/opening-balance [post]
func (h *ReconcileHandler) OpeningBalance(c *gin.Context) {
	scope, err := queryScope(c)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	report, err := h.reconcile.OpeningBalanceBackfill(c.Request.Context(), scope)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
