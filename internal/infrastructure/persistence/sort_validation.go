package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// ItemSortFields contains allowed sort fields for catalogue items
var ItemSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
}

// StockSortFields contains allowed sort fields for stock slots
var StockSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"item_id":        true,
	"batch_code_key": true,
	"qty":            true,
}

// LedgerSortFields contains allowed sort fields for ledger entries
var LedgerSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"occurred_at": true,
	"item_id":     true,
	"ref":         true,
	"reason":      true,
}
