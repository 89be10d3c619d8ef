package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Inventory data errors
	ErrCodeInventoryNotFound ErrorCode = "INVENTORY_NOT_FOUND"
	ErrCodeItemNotFound      ErrorCode = "ITEM_NOT_FOUND"

	// Session and access errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeAuthFailed   ErrorCode = "AUTH_FAILED"

	// Storage errors
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// Daemon errors
	ErrCodeDaemonNotRunning ErrorCode = "DAEMON_NOT_RUNNING"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// PantryError represents a structured error with context
type PantryError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PantryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PantryError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *PantryError) WithDetail(key string, value interface{}) *PantryError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *PantryError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new PantryError
func New(code ErrorCode, message string) *PantryError {
	return &PantryError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a PantryError
func Wrap(err error, code ErrorCode, message string) *PantryError {
	return &PantryError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific PantryError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, searching the wrap chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	pantryErr, ok := err.(*PantryError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return pantryErr.Code
}

// As returns the first PantryError in err's chain.
func As(err error) (*PantryError, bool) {
	for err != nil {
		if pantryErr, ok := err.(*PantryError); ok {
			return pantryErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
