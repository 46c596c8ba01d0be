package shared

// DomainError carries a stable machine-readable code alongside the
// message, so HTTP handlers can map domain failures to API error codes
// without string matching.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinels shared across the domain packages
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists   = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrIntegrity       = NewDomainError("INTEGRITY_ERROR", "Database integrity constraint violated")
	ErrFeatureDisabled = NewDomainError("FEATURE_DISABLED", "Feature is disabled")
)
