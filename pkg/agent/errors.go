package agent

import (
	"fmt"
	"strings"
)

// ExecutionError reports a failed agent run. The status code is carried so
// HTTP surfaces can forward it.
type ExecutionError struct {
	Detail     string
	StatusCode int
}

// NewExecutionError creates an ExecutionError with status 500.
func NewExecutionError(format string, args ...any) *ExecutionError {
	return &ExecutionError{
		Detail:     fmt.Sprintf(format, args...),
		StatusCode: 500,
	}
}

func (e *ExecutionError) Error() string {
	return e.Detail
}

// ConnectionError reports a tool-server connection failure that a
// reconnect may resolve. The retry loop in Invoke matches it with
// errors.As.
type ConnectionError struct {
	ExecutionError

	// Err is the original error, when one exists.
	Err error
}

// NewConnectionError creates a ConnectionError with status 500.
func NewConnectionError(detail string, original error) *ConnectionError {
	return &ConnectionError{
		ExecutionError: ExecutionError{Detail: detail, StatusCode: 500},
		Err:            original,
	}
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// connectionErrorIndicators mark a failure as a connection problem rather
// than a tool problem. Matched case-insensitively against error text and
// tool results.
var connectionErrorIndicators = []string{
	"connection closed",
	"connection refused",
	"peer closed connection",
	"incomplete chunked read",
	"client session is not running",
	"unable to connect",
	"all connection attempts failed",
	"connecterror",
	"client initialization failed",
	"mcp error",
	"mcpconnectionerror",
	"mcperror",
	"remote protocol error",
	"connection to the mcp server was closed",
}

// IsConnectionErrorText reports whether the text carries one of the known
// connection failure indicators.
func IsConnectionErrorText(text string) bool {
	lowered := strings.ToLower(text)
	for _, indicator := range connectionErrorIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}
