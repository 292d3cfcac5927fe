package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeUnauthorized  ErrorType = "unauthorized"
	ErrorTypeForbidden     ErrorType = "forbidden"
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"
	ErrorTypeAIDisabled    ErrorType = "ai_disabled"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeInternal      ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrDecisionNotFound     = NewDomainError(ErrorTypeNotFound, "decision not found", nil)
	ErrQuotaCounterNotFound = NewDomainError(ErrorTypeNotFound, "quota counter not found", nil)
	ErrOrganizationNotFound = NewDomainError(ErrorTypeNotFound, "organization not found", nil)

	// Validation Errors
	ErrInvalidInput           = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidOrganization    = NewDomainError(ErrorTypeValidation, "organization id must be positive", nil)
	ErrInvalidQuotaType       = NewDomainError(ErrorTypeValidation, "invalid quota type", nil)
	ErrInvalidQuotaAmount     = NewDomainError(ErrorTypeValidation, "quota amount must be at least 1", nil)
	ErrInvalidAgentType       = NewDomainError(ErrorTypeValidation, "invalid agent type", nil)
	ErrEmptyDecisionType      = NewDomainError(ErrorTypeValidation, "decision type is required", nil)
	ErrInvalidConfidence      = NewDomainError(ErrorTypeValidation, "confidence score must be between 0 and 1", nil)
	ErrApprovalNotRequired    = NewDomainError(ErrorTypeValidation, "approval not required for this decision", nil)
	ErrDecisionResolved       = NewDomainError(ErrorTypeValidation, "decision already resolved", nil)
	ErrRejectionReasonMissing = NewDomainError(ErrorTypeValidation, "rejection reason is required", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)

	// Permission Errors
	ErrForbidden   = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrOrgMismatch = NewDomainError(ErrorTypeForbidden, "organization mismatch", nil)

	// Quota Errors
	ErrQuotaExceeded = NewDomainError(ErrorTypeQuotaExceeded, "quota exceeded", nil)

	// Tenant AI switch
	ErrAIDisabled = NewDomainError(ErrorTypeAIDisabled, "AI features are disabled for this organization", nil)

	// Conflict Errors
	ErrConcurrentUpdate = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)

	// Internal Errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// NewQuotaExceededError builds the admission-rejection error with the
// counter state the client needs to surface "try again after reset".
func NewQuotaExceededError(quotaType string, currentUsage, maxLimit int64) *DomainError {
	return NewDomainError(ErrorTypeQuotaExceeded,
		fmt.Sprintf("quota exceeded for %s: %d of %d used", quotaType, currentUsage, maxLimit), nil).
		WithDetail("quota_type", quotaType).
		WithDetail("current_usage", currentUsage).
		WithDetail("max_limit", maxLimit)
}

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnauthorized
	}
	return false
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsQuotaExceededError checks if an error is a quota admission rejection
func IsQuotaExceededError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeQuotaExceeded
	}
	return false
}

// IsAIDisabledError checks if an error is the tenant-level AI switch
func IsAIDisabledError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeAIDisabled
	}
	return false
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConflict
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
