package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError carrying the same code, so that
// errors.Is(err, ErrInvalidArgument) matches any invalid-argument error.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across bounded contexts
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeUnexpectedValue  = "UNEXPECTED_VALUE"
	CodePrecondition     = "PRECONDITION_FAILED"
	CodeInvalidState     = "INVALID_STATE"
	CodeCurrencyMismatch = "CURRENCY_MISMATCH"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidArgument     = NewDomainError(CodeInvalidArgument, "Invalid argument")
	ErrUnexpectedValue     = NewDomainError(CodeUnexpectedValue, "Unexpected value")
	ErrPrecondition        = NewDomainError(CodePrecondition, "Precondition failed")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrCurrencyMismatch    = NewDomainError(CodeCurrencyMismatch, "Currencies do not match")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// InvalidArgument builds an invalid-argument error with a specific message
func InvalidArgument(message string) *DomainError {
	return NewDomainError(CodeInvalidArgument, message)
}

// UnexpectedValue builds an unexpected-value error with a specific message
func UnexpectedValue(message string) *DomainError {
	return NewDomainError(CodeUnexpectedValue, message)
}

// PreconditionFailed builds a precondition error with a specific message
func PreconditionFailed(message string) *DomainError {
	return NewDomainError(CodePrecondition, message)
}
