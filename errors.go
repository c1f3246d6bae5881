// errors.go - Error taxonomy for operation execution

package mongoexec

import (
	"context"
	"errors"
	"strconv"
)

// ErrNotFound is returned when a requested document is not present. Helper
// methods rely on comparing against this sentinel value.
var ErrNotFound = errors.New("not found")

// ArgumentError reports a missing or invalid construction argument. It is
// raised when an operation is built, never at execution time, and is never
// retried.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Reason != "" {
		return "invalid argument " + e.Name + ": " + e.Reason
	}
	return "argument " + e.Name + " must not be nil"
}

// UnsupportedError reports a request that cannot be expressed against the
// selected server or code path, such as a filter shape that has no legacy
// translation. It is surfaced immediately and never retried.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Reason
}

// ServerSelectionError wraps a binding failure to produce a channel. It is a
// transient class: eligible for one retry when the operation requested it.
type ServerSelectionError struct {
	Err error
}

func (e *ServerSelectionError) Error() string {
	return "server selection failed: " + e.Err.Error()
}

func (e *ServerSelectionError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure on an established channel. Like
// server selection failures it is a transient class.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed server document, such as a catalog entry
// whose name field is not a string. Never retried, never silently skipped.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Message
}

// QueryError mirrors a server-side error reply, providing code and message.
type QueryError struct {
	Code      int
	Message   string
	Assertion bool
}

func (e *QueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != 0 {
		return e.Message + " (code " + strconv.Itoa(e.Code) + ")"
	}
	return e.Message
}

// Server error codes that indicate the selected server stopped being a valid
// read target mid-operation. A fresh server selection may succeed.
const (
	codeInterruptedAtShutdown    = 11600
	codeInterruptedDueToStepDown = 11602
	codeNotWritablePrimary       = 10107
	codeNotPrimaryNoSecondaryOk  = 13435
	codeNotPrimaryOrSecondary    = 13436
	codePrimarySteppedDown       = 189
	codeShutdownInProgress       = 91
)

func (e *QueryError) retryable() bool {
	switch e.Code {
	case codeInterruptedAtShutdown, codeInterruptedDueToStepDown,
		codeNotWritablePrimary, codeNotPrimaryNoSecondaryOk,
		codeNotPrimaryOrSecondary, codePrimarySteppedDown,
		codeShutdownInProgress:
		return true
	}
	return false
}

// IsRetryableRead reports whether err belongs to the transient class that a
// read operation may retry exactly once: network failures, server selection
// failures, and not-writable-primary style server errors. Cancellation is
// never retryable.
func IsRetryableRead(err error) bool {
	if err == nil || isCancellation(err) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var selErr *ServerSelectionError
	if errors.As(err, &selErr) {
		return true
	}
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return qErr.retryable()
	}
	return false
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
