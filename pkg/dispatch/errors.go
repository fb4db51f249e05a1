package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no reply arrives within Options.Timeout.
	ErrTimeout = errors.New("dispatch: timed out waiting for reply")
	// ErrClosed is returned by calls on a closed Client, or on one whose
	// connection was lost while retries are disabled.
	ErrClosed = errors.New("dispatch: client closed")
)

// ConnError is a failure of the underlying connection. The request may or
// may not have reached the worker.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string { return fmt.Sprintf("dispatch: %s: %v", e.Op, e.Err) }
func (e *ConnError) Unwrap() error { return e.Err }

// IsRetryable reports whether resending the same request may succeed:
// timeouts and connection failures are, protocol errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnError
	return errors.Is(err, ErrTimeout) || errors.As(err, &ce)
}
