package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeState indicates an illegal state transition; no mutation occurred
	ErrorTypeState ErrorType = "STATE"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from an external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Machine-readable business codes surfaced alongside the human message.
// Conflict codes tell the caller to re-query availability and retry with a
// different slot instead of treating the failure as terminal.
const (
	CodeBookingTooFarAdvance = "BOOKING_TOO_FAR_ADVANCE"
	CodeBookingTooSoon       = "BOOKING_TOO_SOON"
	CodeDoctorNotWorking     = "DOCTOR_NOT_WORKING"
	CodeExceedsWorkingHours  = "APPOINTMENT_EXCEEDS_WORKING_HOURS"
	CodeSlotNotAvailable     = "SLOT_NOT_AVAILABLE"
	CodeSlotConflict         = "SLOT_CONFLICT"
	CodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	CodePaymentNotProcessed  = "PAYMENT_NOT_PROCESSED"
	CodePaymentNotCompleted  = "PAYMENT_NOT_COMPLETED"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCode attaches a machine-readable business code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewStateError creates a new illegal-state error
func NewStateError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeState,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// AsAppError unwraps err into an *AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}

// CodeOf returns the business code of err, or empty when it has none
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}
