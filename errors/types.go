package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Repository query errors
	ErrCodeQueryFailed    ErrorCode = "QUERY_FAILED"
	ErrCodeRemoteNotFound ErrorCode = "REMOTE_NOT_FOUND"

	// Pipeline errors
	ErrCodeStepFailed    ErrorCode = "PIPELINE_STEP_FAILED"
	ErrCodeCleanupFailed ErrorCode = "CLEANUP_FAILED"

	// Observer protocol errors
	ErrCodeUnknownAction ErrorCode = "UNKNOWN_ACTION"
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// Command execution errors
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	// General errors
	ErrCodeInstanceRunning ErrorCode = "INSTANCE_RUNNING"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// GcpdError represents a structured error with context
type GcpdError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *GcpdError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *GcpdError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *GcpdError) WithDetail(key string, value interface{}) *GcpdError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *GcpdError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new GcpdError
func New(code ErrorCode, message string) *GcpdError {
	return &GcpdError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a GcpdError
func Wrap(err error, code ErrorCode, message string) *GcpdError {
	return &GcpdError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific GcpdError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	gcpdErr, ok := err.(*GcpdError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if gcpdErr.Code == code {
		return true
	}
	return Is(gcpdErr.Cause, code)
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	gcpdErr, ok := err.(*GcpdError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return gcpdErr.Code
}
