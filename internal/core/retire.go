package core

import (
	"time"

	"github.com/corehost/taskrun/internal/lifecycle"
)

// RetirePool stops, closes, and nils *p in a single step, using the same
// generic stop/close/nil helper this codebase uses for every managed
// long-lived resource. Callers that hold a *Pool outside of a Machine (for
// example, a pool built directly via NewPool for a bespoke teardown
// sequence) can use this instead of hand-rolling
// Shutdown+AwaitTermination+ShutdownNow.
func RetirePool(p **Pool, timeout time.Duration) error {
	return lifecycle.StopCloseAndNil(p, timeout)
}
