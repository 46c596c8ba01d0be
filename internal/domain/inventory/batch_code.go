package inventory

import "strings"

// NullBatchKey is the reserved token that lets NULL batch codes participate
// in uniqueness constraints. It is the legitimate slot key for non-batched
// items, not a placeholder for "unknown".
const NullBatchKey = "__NULL_BATCH__"

// legacyPlaceholders are batch codes written by retired clients for items
// that never required batches. They are normalised to NULL on sight.
var legacyPlaceholders = map[string]struct{}{
	"NOEXP": {},
	"NEAR":  {},
	"FAR":   {},
}

// BatchCodeKey maps an optional batch code to its slot key form.
func BatchCodeKey(code *string) string {
	if code == nil || *code == "" {
		return NullBatchKey
	}
	return *code
}

// NormalizeBatchCode trims the code and resolves it against the item's batch
// requirement: blank codes become NULL, and for items that do not require
// batches the historical placeholder codes collapse to NULL as well.
func NormalizeBatchCode(code *string, requiresBatch bool) *string {
	if code == nil {
		return nil
	}
	c := strings.TrimSpace(*code)
	if c == "" {
		return nil
	}
	if !requiresBatch {
		if _, ok := legacyPlaceholders[strings.ToUpper(c)]; ok {
			return nil
		}
	}
	return &c
}

// BatchCodePtr is a convenience constructor for optional batch codes.
func BatchCodePtr(code string) *string {
	if code == "" {
		return nil
	}
	return &code
}
