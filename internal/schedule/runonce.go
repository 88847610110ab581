// Package schedule implements the run-once, periodic-timer, and timeout
// controllers layered on top of the core machine and the instance-attribute
// registry.
package schedule

import (
	"github.com/corehost/taskrun/internal/registry"
)

// runOnceAttr is the registry attribute key under which a method's
// completion marker is recorded: one key per methodID, built from the
// caller-supplied methodID alone. Its distinct type keeps run-once markers
// apart from other entry types stored in the same registry.
type runOnceAttr struct{ methodID any }

// RunOnceController guarantees a callable runs at most once per (instance,
// methodID) pair, across the lifetime of instance. It is backed by the
// registry's atomic CheckAndAdd, so concurrent callers racing to execute the
// same pair never both run it.
type RunOnceController struct {
	reg *registry.Registry
}

// NewRunOnceController returns a controller backed by reg. Multiple
// controllers may share the same registry; they then share run-once markers,
// so an (instance, methodID) pair executed through one controller is
// reported as already run by the others.
func NewRunOnceController(reg *registry.Registry) *RunOnceController {
	return &RunOnceController{reg: reg}
}

// ExecuteAndCatalog runs callable if (inst, methodID) has not already been
// recorded as executed, recording it atomically before returning. It
// reports whether callable ran. inst must be a pointer, since the registry
// keys entries by pointer identity.
func (c *RunOnceController) ExecuteAndCatalog(inst any, methodID any, callable func()) (bool, error) {
	added, err := c.reg.CheckAndAdd(inst, runOnceAttr{methodID: methodID}, struct{}{})
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}
	callable()
	return true, nil
}

// HasRun reports whether (inst, methodID) has already executed.
func (c *RunOnceController) HasRun(inst any, methodID any) (bool, error) {
	return c.reg.Contains(inst, runOnceAttr{methodID: methodID})
}
