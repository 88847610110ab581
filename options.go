package taskrun

import (
	"fmt"
	"time"

	"github.com/corehost/taskrun/internal/core"
)

// requirePositive panics if v <= 0 with a descriptive message.
// It intentionally rejects zero; do not use for values where zero has
// special meaning.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("taskrun: %s must be greater than 0, got %v", name, v))
	}
}

// MachineOption configures the package-level machine during construction.
// Each With* function returns a MachineOption that sets a specific field.
//
// Several With* functions panic on invalid input (non-positive durations,
// negative sizes). These panics are intentional: option values are
// typically compile-time constants or package-level variables, so an
// invalid value indicates a programmer error rather than a runtime
// condition. The pattern mirrors [regexp.MustCompile]: fail fast during
// initialization instead of returning errors that would be universally
// fatal anyway.
type MachineOption func(*core.MachineConfig)

// WithPoolCore sets the core worker count for every bounded pool the
// machine creates on demand.
//
// Default: DefaultCoreWorkers().
//
// Panics if n < 0.
func WithPoolCore(n int) MachineOption {
	if n < 0 {
		panic(fmt.Sprintf("taskrun: pool core must not be negative, got %d", n))
	}
	return func(c *core.MachineConfig) {
		c.PoolCore = n
	}
}

// WithPoolMax sets the max worker count for every bounded pool the machine
// creates on demand.
//
// Default: DefaultMaxWorkers().
//
// Panics if n <= 0.
func WithPoolMax(n int) MachineOption {
	requirePositive("pool max", n)
	return func(c *core.MachineConfig) {
		c.PoolMax = n
	}
}

// WithPoolIdleTTL sets how long an idle worker waits for new work before
// exiting.
//
// Default: DefaultPoolIdleTTL.
//
// Panics if d <= 0.
func WithPoolIdleTTL(d time.Duration) MachineOption {
	requirePositive("pool idle TTL", d)
	return func(c *core.MachineConfig) {
		c.PoolIdleTTL = d
	}
}

// WithPoolQueueCapacity sets the bounded queue capacity for every named
// pool the machine creates on demand.
//
// Default: DefaultPoolQueueCapacity.
//
// Panics if n < 0.
func WithPoolQueueCapacity(n int) MachineOption {
	if n < 0 {
		panic(fmt.Sprintf("taskrun: pool queue capacity must not be negative, got %d", n))
	}
	return func(c *core.MachineConfig) {
		c.PoolQueueCapacity = n
	}
}

// WithShutdownHookTimeout sets the wait budget passed to Shutdown by the
// process-exit hook installed at construction.
//
// Default: DefaultShutdownHookTimeout.
//
// Panics if d <= 0.
func WithShutdownHookTimeout(d time.Duration) MachineOption {
	requirePositive("shutdown hook timeout", d)
	return func(c *core.MachineConfig) {
		c.ShutdownHookTimeout = d
	}
}

// WithoutShutdownHook disables the automatic SIGINT/SIGTERM shutdown hook.
// Useful for embedding taskrun in a host process that manages its own
// signal handling and lifecycle.
func WithoutShutdownHook() MachineOption {
	return func(c *core.MachineConfig) {
		c.DisableShutdownHook = true
	}
}

// WithEventListener sets the thread-event listener wrapped around every
// task dispatched from construction onward.
//
// Default: a listener that permits every run and re-surfaces every error.
func WithEventListener(l ThreadEventListener) MachineOption {
	return func(c *core.MachineConfig) {
		c.EventListener = l
	}
}

// WithMachineEventListener sets the pool-lifecycle observer notified when a
// named pool is created versus reused.
//
// Default: an observer that ignores every event.
func WithMachineEventListener(l MachineEventListener) MachineOption {
	return func(c *core.MachineConfig) {
		c.MachineEventListener = l
	}
}

// PoolOption overrides one sizing field of an individual named pool,
// applied on top of the machine-wide defaults set by MachineOption. Use
// with ConfigurePool before the named pool's first dispatch; a pool
// already created by an earlier ThreadRunnable call is unaffected.
type PoolOption = core.PoolOption

// WithCore overrides the core worker count for one named pool.
//
// Panics if n < 0.
func WithCore(n int) PoolOption {
	if n < 0 {
		panic(fmt.Sprintf("taskrun: pool core must not be negative, got %d", n))
	}
	return func(c *core.PoolConfig) {
		c.Core = n
	}
}

// WithMax overrides the max worker count for one named pool.
//
// Panics if n <= 0.
func WithMax(n int) PoolOption {
	requirePositive("pool max", n)
	return func(c *core.PoolConfig) {
		c.Max = n
	}
}

// WithIdleTTL overrides how long an idle worker in one named pool waits for
// new work before exiting.
//
// Panics if d <= 0.
func WithIdleTTL(d time.Duration) PoolOption {
	requirePositive("pool idle TTL", d)
	return func(c *core.PoolConfig) {
		c.IdleTTL = d
	}
}

// WithQueueCapacity overrides the bounded queue capacity for one named
// pool.
//
// Panics if n < 0.
func WithQueueCapacity(n int) PoolOption {
	if n < 0 {
		panic(fmt.Sprintf("taskrun: pool queue capacity must not be negative, got %d", n))
	}
	return func(c *core.PoolConfig) {
		c.QueueCapacity = n
	}
}
