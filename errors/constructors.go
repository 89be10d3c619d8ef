package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *PantryError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PantryError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InventoryNotFound creates an unknown inventory error
func InventoryNotFound(inventoryID string) *PantryError {
	return New(ErrCodeInventoryNotFound, fmt.Sprintf("inventory '%s' not found", inventoryID)).
		WithDetail("inventory", inventoryID)
}

// ItemNotFound creates an unknown item error
func ItemNotFound(inventoryID, itemID string) *PantryError {
	return New(ErrCodeItemNotFound, fmt.Sprintf("item '%s' not found in inventory '%s'", itemID, inventoryID)).
		WithDetail("inventory", inventoryID).
		WithDetail("item", itemID)
}

// Unauthorized creates an error for a mutation attempted without a session
func Unauthorized(operation string) *PantryError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("%s requires a logged in session", operation)).
		WithDetail("operation", operation)
}

// Forbidden creates an error for a mutation outside the caller's access tier
func Forbidden(operation, user string) *PantryError {
	return New(ErrCodeForbidden, fmt.Sprintf("user '%s' may not %s", user, operation)).
		WithDetail("operation", operation).
		WithDetail("user", user)
}

// InvalidInput creates an input validation error
func InvalidInput(reason string) *PantryError {
	return New(ErrCodeInvalidInput, reason)
}

// PersistenceFailed wraps a storage read or write failure
func PersistenceFailed(op string, err error) *PantryError {
	return Wrap(err, ErrCodePersistenceFailed, fmt.Sprintf("snapshot %s failed", op)).
		WithDetail("op", op)
}

// AuthFailed wraps a failed call to the authentication service
func AuthFailed(endpoint string, err error) *PantryError {
	return Wrap(err, ErrCodeAuthFailed, fmt.Sprintf("authentication request to %s failed", endpoint)).
		WithDetail("endpoint", endpoint)
}

// DaemonNotRunning creates an error for operations that need the daemon
func DaemonNotRunning(socket string) *PantryError {
	return New(ErrCodeDaemonNotRunning, "pantry daemon is not running").
		WithDetail("socket", socket)
}
