package taskrun

import "github.com/corehost/taskrun/internal/core"

// Sentinel errors for error inspection with errors.Is.
//
// These use the sentinel.Error const pattern instead of errors.New vars.
// sentinel.Error is a string type implementing error, allowing errors to be
// declared as const. This prevents accidental reassignment and enables
// compile-time immutability, while remaining compatible with errors.Is
// through Go's default == comparison on comparable types.
const (
	// ErrInvalidArgument marks a null/empty/range violation detected at a
	// boundary (e.g. a negative period or delay, a non-positive TTL).
	ErrInvalidArgument = core.ErrInvalidArgument

	// ErrIllegalState marks submission after shutdown, Reset while not shut
	// down, or a thread-group operation with no active group.
	ErrIllegalState = core.ErrIllegalState

	// ErrTimeoutExceeded marks a deadline exceeded by the timeout controller
	// or a thread-group wait.
	ErrTimeoutExceeded = core.ErrTimeoutExceeded

	// ErrShuttingDown is the cause wrapped by every ShutdownError.
	ErrShuttingDown = core.ErrShuttingDown
)

// ThreadFrameworkError wraps any failure surfaced out of a thread-managed
// task or an await on one (a failed task, a thread-group wait that timed
// out, an await cut short by its context).
type ThreadFrameworkError = core.ThreadFrameworkError

// ShutdownError is the distinguished subtype of ThreadFrameworkError raised
// by a cooperative-shutdown checkpoint. Use IsShutdownCause to test for it
// through an arbitrary wrap chain.
type ShutdownError = core.ShutdownError

// IsShutdownCause reports whether err is, or wraps, a ShutdownError.
func IsShutdownCause(err error) bool {
	return core.IsShutdownCause(err)
}
