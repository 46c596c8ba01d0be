package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
)

// queryScope reads the scope query parameter, defaulting to PROD. Drill
// devices pass scope=DRILL explicitly.
func queryScope(c *gin.Context) (inventory.Scope, error) {
	raw := c.Query("scope")
	if raw == "" {
		return inventory.ScopeProd, nil
	}
	scope := inventory.Scope(raw)
	if !scope.IsValid() {
		return "", shared.NewDomainError("INVALID_SCOPE", "Unknown inventory scope: "+raw)
	}
	return scope, nil
}

// parseDateTime parses a date or timestamp string in common formats
func parseDateTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// toFilter converts list request parameters to a repository filter
func toFilter(req dto.ListRequest) shared.Filter {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	if req.Search != "" {
		filter.Filters["search"] = req.Search
	}
	return filter
}
