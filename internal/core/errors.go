package core

import (
	"errors"

	"github.com/corehost/taskrun/internal/sentinel"
)

// Sentinel errors for error inspection with errors.Is. These use the
// sentinel.Error const pattern instead of errors.New vars: sentinel.Error is
// a string type implementing error, allowing errors to be declared as const,
// while remaining compatible with errors.Is through Go's default ==
// comparison on comparable types.
const (
	// ErrInvalidArgument marks null/empty/range violations detected at a
	// boundary; raised synchronously.
	ErrInvalidArgument = sentinel.Error("taskrun: invalid argument")

	// ErrIllegalState marks submission after shutdown, reset while not
	// shutdown, or latch mutation with no group.
	ErrIllegalState = sentinel.Error("taskrun: illegal state")

	// ErrTimeoutExceeded marks a deadline exceeded in the timeout controller
	// or a thread-group wait.
	ErrTimeoutExceeded = sentinel.Error("taskrun: timeout exceeded")

	// ErrShuttingDown is the cause wrapped by every ShutdownError.
	ErrShuttingDown = sentinel.Error("taskrun: shutdown in progress")
)

// ThreadFrameworkError wraps any failure surfaced out of a thread-managed
// task. Op names the operation that produced the failure (for example
// "await thread group" or "execute in thread"); Err is the original cause.
type ThreadFrameworkError struct {
	Op  string
	Err error
}

func (e *ThreadFrameworkError) Error() string {
	if e.Op == "" {
		return "taskrun: " + e.Err.Error()
	}
	return "taskrun: " + e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the original cause to errors.Is/errors.As.
func (e *ThreadFrameworkError) Unwrap() error {
	return e.Err
}

// WrapThreadError wraps err into a *ThreadFrameworkError, unless err is
// already one (or nil), in which case it is returned unchanged. This avoids
// double-wrapping as an error crosses multiple layers of the framework.
func WrapThreadError(op string, err error) error {
	if err == nil {
		return nil
	}
	var tfe *ThreadFrameworkError
	if errors.As(err, &tfe) {
		return err
	}
	var se *ShutdownError
	if errors.As(err, &se) {
		return err
	}
	return &ThreadFrameworkError{Op: op, Err: err}
}

// ShutdownError is a distinguished subtype of ThreadFrameworkError raised by
// the cooperative shutdown check. The group latch re-raises it unmodified
// instead of wrapping it again in a generic ThreadFrameworkError.
type ShutdownError struct {
	*ThreadFrameworkError
}

// NewShutdownError builds a ShutdownError for the named check-point.
func NewShutdownError(op string) *ShutdownError {
	return &ShutdownError{&ThreadFrameworkError{Op: op, Err: ErrShuttingDown}}
}

// IsShutdownCause reports whether err is, or wraps, a ShutdownError.
func IsShutdownCause(err error) bool {
	var se *ShutdownError
	return errors.As(err, &se)
}
