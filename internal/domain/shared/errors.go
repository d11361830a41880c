package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
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

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Payment registration error codes. These validation failures are pure
// functions of the registration input and are always raised before any
// ledger mutation takes place.
const (
	ErrCodeEmptySelection          = "EMPTY_SELECTION"
	ErrCodeDiscountNotAuthorized   = "DISCOUNT_NOT_AUTHORIZED"
	ErrCodeCannotGroupPartners     = "CANNOT_GROUP_DIFFERENT_PARTNERS"
	ErrCodeMultiCurrency           = "MULTI_CURRENCY_UNSUPPORTED"
	ErrCodeCrossCompany            = "CROSS_COMPANY_NOT_ALLOWED"
	ErrCodeMixedDirection          = "MIXED_DIRECTION_NOT_ALLOWED"
	ErrCodeMixedDestinationAccount = "MIXED_DESTINATION_ACCOUNT"
	ErrCodeLedgerInconsistency     = "LEDGER_INCONSISTENCY"
)

// IsValidationFailure reports whether the error carries one of the
// pre-posting validation codes.
func IsValidationFailure(err error) bool {
	de, ok := err.(*DomainError)
	if !ok {
		return false
	}
	switch de.Code {
	case ErrCodeEmptySelection, ErrCodeDiscountNotAuthorized,
		ErrCodeCannotGroupPartners, ErrCodeMultiCurrency,
		ErrCodeCrossCompany, ErrCodeMixedDirection,
		ErrCodeMixedDestinationAccount:
		return true
	}
	return false
}
