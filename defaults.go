package taskrun

import (
	"runtime"
	"time"
)

// Default configuration values for the package-level machine and the
// functional options in options.go.
// These constants are exported so callers can reference the defaults when
// building custom configurations relative to them (e.g.,
// 2 * DefaultGroupWaitTimeout).
const (
	// DefaultPoolInit caps the default core worker count, and DefaultPoolInit+1
	// is the floor of the default max worker count, mirroring a conservative
	// initial thread-pool size.
	DefaultPoolInit = 5

	// DefaultPoolIdleTTL is how long an idle worker (core or overflow) waits
	// for work before exiting. Workers are never pinned forever, so process
	// teardown is never blocked on a pool nobody is draining.
	DefaultPoolIdleTTL = 60 * time.Second

	// DefaultPoolQueueCapacity is the bounded queue capacity for a named
	// pool created through Machine.getOrCreatePool.
	DefaultPoolQueueCapacity = 100

	// DefaultPeriodicInterval is the periodic-timer period RunOnTimer uses
	// when a caller passes a zero period.
	DefaultPeriodicInterval = time.Second

	// DefaultPeriodicDelay is the default initial delay before a periodic
	// timer's first tick.
	DefaultPeriodicDelay = time.Duration(0)

	// DefaultGroupWaitTimeout is the per-handle timeout EndThreadGroup uses
	// when a caller passes a zero timeout.
	DefaultGroupWaitTimeout = 5 * time.Minute

	// DefaultShutdownHookTimeout is the wait budget passed to Shutdown by
	// the process-exit hook installed at construction.
	DefaultShutdownHookTimeout = 10 * time.Second
)

// DefaultCoreWorkers returns the default core worker count for a bounded
// pool: min(DefaultPoolInit, runtime.NumCPU()).
func DefaultCoreWorkers() int {
	n := runtime.NumCPU()
	if n < DefaultPoolInit {
		return n
	}
	return DefaultPoolInit
}

// DefaultMaxWorkers returns the default max worker count for a bounded
// pool: runtime.NumCPU()+1, floored at DefaultPoolInit+1.
func DefaultMaxWorkers() int {
	n := runtime.NumCPU() + 1
	if n < DefaultPoolInit+1 {
		return DefaultPoolInit + 1
	}
	return n
}
