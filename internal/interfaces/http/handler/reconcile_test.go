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

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

type stubReconcileService struct {
	lastScope inventory.Scope
	rows      []inventory.ReconcileRow
	report    *appinv.ReconcileReport
	err       error
}

func (s *stubReconcileService) DiffLedgerVsStocks(_ context.Context, scope inventory.Scope) ([]inventory.ReconcileRow, error) {
	s.lastScope = scope
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *stubReconcileService) OpeningBalanceBackfill(_ context.Context, scope inventory.Scope) (*appinv.ReconcileReport, error) {
	s.lastScope = scope
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func reconcileTestRouter(svc ReconcileService) *gin.Engine {
	router := gin.New()
	NewReconcileHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestReconcileHandler_Diff(t *testing.T) {
	svc := &stubReconcileService{rows: []inventory.ReconcileRow{
		{Scope: inventory.ScopeProd, WarehouseID: 1, ItemID: 42, LedgerQty: 9, StockQty: 10, Diff: -1},
	}}
	router := reconcileTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile/diff", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inventory.ScopeProd, svc.lastScope)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	rows := resp.Data.([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, float64(-1), row["diff"])
}

func TestReconcileHandler_DiffDrill(t *testing.T) {
	svc := &stubReconcileService{}
	router := reconcileTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile/diff?scope=DRILL", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inventory.ScopeDrill, svc.lastScope)
}

func TestReconcileHandler_DiffInvalidScope(t *testing.T) {
	router := reconcileTestRouter(&stubReconcileService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile/diff?scope=STAGING", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcileHandler_OpeningBalance(t *testing.T) {
	svc := &stubReconcileService{report: &appinv.ReconcileReport{Checked: 3, Written: 2}}
	router := reconcileTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile/opening-balance", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["checked"])
	assert.Equal(t, float64(2), data["written"])
}
