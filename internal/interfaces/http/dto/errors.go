package dto

import (
	"net/http"
	"strings"
)

// Error codes surfaced by the HTTP API. Domain errors carry these codes
// verbatim, so the mapping below is the single place that decides which
// HTTP status a given failure produces.

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "CONFLICT"
	// ErrCodeIntegrity is used when a storage-level consistency check fails
	ErrCodeIntegrity = "INTEGRITY_ERROR"
)

// Access error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeFeatureDisabled is used when a request targets a disabled capability
	ErrCodeFeatureDisabled = "FEATURE_DISABLED"
)

// Inventory business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for the current document state
	ErrCodeInvalidState = "INVALID_STATE"
	// ErrCodeBatchRequired is used when a batch-tracked item is moved without a batch code
	ErrCodeBatchRequired = "BATCH_REQUIRED"
	// ErrCodeInsufficientStock is used when on-hand quantity cannot cover a demand
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	// ErrCodeDateConsistency is used when production/expiry dates contradict each other
	ErrCodeDateConsistency = "DATE_CONSISTENCY"
	// ErrCodeUnknownBarcode is used when a scanned code has no registered mapping
	ErrCodeUnknownBarcode = "UNKNOWN_BARCODE"
	// ErrCodeScanRejected is used when a scan cannot be applied
	ErrCodeScanRejected = "SCAN_REJECTED"
	// ErrCodeNothingReturnable is used when a vendor return finds no returnable receipt
	ErrCodeNothingReturnable = "NOTHING_RETURNABLE"
	// ErrCodeNothingPicked is used when a return task is committed without picks
	ErrCodeNothingPicked = "NOTHING_PICKED"
	// ErrCodeReturnIncomplete is used when a return task still has open lines
	ErrCodeReturnIncomplete = "RETURN_INCOMPLETE"
	// ErrCodePickExceedsExpected is used when a pick overshoots the planned quantity
	ErrCodePickExceedsExpected = "PICK_EXCEEDS_EXPECTED"
	// ErrCodeReturnExceedsReceived is used when a return exceeds the received quantity
	ErrCodeReturnExceedsReceived = "RETURN_EXCEEDS_RECEIVED"
	// ErrCodeThreeBooksViolation is used when ledger, stocks, and snapshot disagree
	ErrCodeThreeBooksViolation = "THREE_BOOKS_VIOLATION"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeIntegrity:     http.StatusConflict,

	// Access errors
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeFeatureDisabled: http.StatusForbidden,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeBatchRequired:         http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:     http.StatusUnprocessableEntity,
	ErrCodeDateConsistency:       http.StatusUnprocessableEntity,
	ErrCodeUnknownBarcode:        http.StatusUnprocessableEntity,
	ErrCodeScanRejected:          http.StatusUnprocessableEntity,
	ErrCodeNothingReturnable:     http.StatusUnprocessableEntity,
	ErrCodeNothingPicked:         http.StatusUnprocessableEntity,
	ErrCodeReturnIncomplete:      http.StatusUnprocessableEntity,
	ErrCodePickExceedsExpected:   http.StatusUnprocessableEntity,
	ErrCodeReturnExceedsReceived: http.StatusUnprocessableEntity,

	// A three-books mismatch means the server's own books are wrong
	ErrCodeThreeBooksViolation: http.StatusInternalServerError,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes of the INVALID_<FIELD> family map to 400 Bad Request without
// needing an entry per field; INVALID_STATE is the one exception and is
// listed explicitly above. Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
