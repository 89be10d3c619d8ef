package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/pantry/errors"
)

// ErrorHandler turns coded errors into user-facing messages.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler writes to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose, Out: os.Stderr}
}

// Handle prints a message for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	pe, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "✗ Configuration not found: %v\n", detail(pe, "path"))
		fmt.Fprintln(out, "Pass --config or create pantry.yml in this directory.")

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(out, "✗ %s\n", pe.Message)
		fmt.Fprintln(out, "Check it with 'pantry config validate'.")

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(out, "✗ The pantry daemon is not running (socket %v)\n", detail(pe, "socket"))
		fmt.Fprintln(out, "Start it with 'pantry daemon start'.")

	case errors.ErrCodeUnauthorized:
		fmt.Fprintf(out, "✗ Not logged in: %s\n", pe.Message)
		fmt.Fprintln(out, "Log in with 'pantry auth login'.")

	case errors.ErrCodeForbidden:
		fmt.Fprintf(out, "✗ Permission denied: %s\n", pe.Message)

	case errors.ErrCodeInventoryNotFound, errors.ErrCodeItemNotFound:
		fmt.Fprintf(out, "✗ %s\n", pe.Message)
		fmt.Fprintln(out, "List inventories with 'pantry inventory list'.")

	case errors.ErrCodeAuthFailed:
		fmt.Fprintf(out, "✗ Authentication failed: %s\n", pe.Message)
		if endpoint, ok := pe.Details["endpoint"]; ok {
			fmt.Fprintf(out, "Service endpoint: %v\n", endpoint)
		}

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(out, "✗ Invalid input: %s\n", pe.Message)

	default:
		fmt.Fprintf(out, "✗ Error: %v\n", err)
	}

	if h.Verbose && pe != nil {
		fmt.Fprintf(out, "\nError details:\n%s\n", pe.ToJSON())
	}
	return err
}

func detail(pe *errors.PantryError, key string) interface{} {
	if pe == nil || pe.Details[key] == nil {
		return "?"
	}
	return pe.Details[key]
}
