package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeInvalidProductID     = "INVALID_PRODUCT_ID"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeCatalogParse         = "CATALOG_PARSE_ERROR"
	ErrCodeCatalogTransport     = "CATALOG_TRANSPORT_ERROR"
	ErrCodeInvalidUpdateRequest = "INVALID_UPDATE_REQUEST"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a classified failure. Two domain errors match under
// errors.Is when their codes are equal, so the sentinels below can be used
// to test the kind of any wrapped error.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps err as its cause.
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error kinds, for use with errors.Is.
var (
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "product not found")
	ErrCatalogParse         = NewDomainError(ErrCodeCatalogParse, "unable to parse catalog response")
	ErrCatalogTransport     = NewDomainError(ErrCodeCatalogTransport, "unable to complete catalog request")
	ErrInvalidUpdateRequest = NewDomainError(ErrCodeInvalidUpdateRequest, "invalid update request")
	ErrStoreUnavailable     = NewDomainError(ErrCodeStoreUnavailable, "price store unavailable")
)

// CodeOf returns the code of the first DomainError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
