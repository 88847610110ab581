package taskrun

import (
	"context"
	"sync"
	"time"

	"github.com/corehost/taskrun/internal/core"
	"github.com/corehost/taskrun/internal/registry"
	"github.com/corehost/taskrun/internal/schedule"
)

// machine is the process-wide thread-machine controller backing every
// package-level function below. It is built lazily on first use so that
// package import alone never starts a signal-handling goroutine.
var (
	machineOnce sync.Once
	machineVal  *core.Machine

	attrReg        *registry.Registry
	runOnceCtl     *schedule.RunOnceController
	periodicCtl    *schedule.PeriodicTimerController
	controllerOnce sync.Once

	configuredOptions []MachineOption
	configureMu       sync.Mutex
)

// Configure records machine options to apply the first time the
// package-level machine is constructed. It has no effect once any
// package-level function has already triggered construction; call it before
// the first call of any function that uses the machine (ThreadRunnable,
// ThreadRunnableUnbounded, ConfigurePool, BeginThreadGroup, WithTimeout,
// Shutdown and the like), typically from an init function or at the top of
// main. RunOnce, RunOnTimer and CancelTimer do not construct the machine.
func Configure(opts ...MachineOption) {
	configureMu.Lock()
	defer configureMu.Unlock()
	configuredOptions = append(configuredOptions, opts...)
}

func getMachine() *core.Machine {
	machineOnce.Do(func() {
		configureMu.Lock()
		opts := configuredOptions
		configureMu.Unlock()

		cfg := core.MachineConfig{
			PoolCore:            DefaultCoreWorkers(),
			PoolMax:             DefaultMaxWorkers(),
			PoolIdleTTL:         DefaultPoolIdleTTL,
			PoolQueueCapacity:   DefaultPoolQueueCapacity,
			ShutdownHookTimeout: DefaultShutdownHookTimeout,
		}
		for _, opt := range opts {
			opt(&cfg)
		}
		machineVal = core.NewMachine(cfg)
	})
	return machineVal
}

// ConfigurePool records sizing overrides for an individual named pool,
// applied the first time that pool is created by ThreadRunnable. It has no
// effect on a pool that has already been created; call it before the named
// pool's first dispatch, typically alongside Configure at program start.
func ConfigurePool(name string, opts ...PoolOption) {
	getMachine().ConfigurePool(name, opts...)
}

func getControllers() (*schedule.RunOnceController, *schedule.PeriodicTimerController) {
	controllerOnce.Do(func() {
		attrReg = registry.New()
		runOnceCtl = schedule.NewRunOnceController(attrReg)
		periodicCtl = schedule.NewPeriodicTimerController(attrReg, nil)
	})
	return runOnceCtl, periodicCtl
}

// DispatchOption adjusts a single ThreadRunnable/ThreadRunnableUnbounded
// call away from its default behavior.
type DispatchOption func(*dispatchConfig)

type dispatchConfig struct {
	groupable bool
}

// WithoutGrouping opts a single dispatch out of thread-group registration:
// the resulting handle is not added to the calling goroutine's current
// thread group even if one is open. Use this for fire-and-forget work that
// a surrounding EndThreadGroup should not wait on.
func WithoutGrouping() DispatchOption {
	return func(c *dispatchConfig) {
		c.groupable = false
	}
}

func resolveDispatchConfig(opts []DispatchOption) dispatchConfig {
	cfg := dispatchConfig{groupable: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ThreadRunnable dispatches callable to the named pool (created lazily on
// first use) and returns a handle to await its result. If the current
// goroutine has an open thread group (see BeginThreadGroup), the handle is
// also registered with it unless WithoutGrouping is passed.
func ThreadRunnable(ctx context.Context, poolName string, callable func(ctx context.Context) error, opts ...DispatchOption) (*core.TaskHandle, error) {
	cfg := resolveDispatchConfig(opts)
	return getMachine().ExecuteInThread(ctx, true, poolName, cfg.groupable, callable)
}

// ThreadRunnableUnbounded dispatches callable to the cached unbounded pool
// instead of a named bounded pool. Use this for short-lived, high-fan-out
// work that should never be subject to caller-runs backpressure.
func ThreadRunnableUnbounded(ctx context.Context, callable func(ctx context.Context) error, opts ...DispatchOption) (*core.TaskHandle, error) {
	cfg := resolveDispatchConfig(opts)
	return getMachine().ExecuteInThread(ctx, false, "", cfg.groupable, callable)
}

// BeginThreadGroup pushes a new empty thread group onto the calling
// goroutine's stack. Every groupable dispatch performed afterward, from the
// same goroutine, is registered with it until EndThreadGroup pops it.
func BeginThreadGroup() {
	getMachine().CreateThreadGroup()
}

// EndThreadGroup pops the calling goroutine's top thread group and awaits
// every handle registered with it, in insertion order, each bounded by
// perHandleTimeout. A zero timeout uses DefaultGroupWaitTimeout.
func EndThreadGroup(ctx context.Context, perHandleTimeout time.Duration) (int, error) {
	if perHandleTimeout <= 0 {
		perHandleTimeout = DefaultGroupWaitTimeout
	}
	return getMachine().AwaitCurrentThreadGroup(ctx, perHandleTimeout)
}

// RunOnce executes callable at most once per (inst, methodID) pair, for the
// lifetime of inst, reporting whether this call performed the execution.
// inst must be a pointer: the guarantee is backed by a weak-reference
// registry keyed on pointer identity.
func RunOnce(inst any, methodID any, callable func()) (bool, error) {
	ctl, _ := getControllers()
	return ctl.ExecuteAndCatalog(inst, methodID, callable)
}

// RunOnTimer binds callable to run every period, first firing after delay,
// for as long as inst remains reachable. If (inst, attribute) is already
// bound, callable instead runs once inline and RunOnTimer returns false. A
// zero delay fires the first tick immediately. A zero period uses
// DefaultPeriodicInterval.
func RunOnTimer(inst any, attribute any, delay, period time.Duration, callable func()) (bool, error) {
	if period == 0 {
		period = DefaultPeriodicInterval
	}
	_, ctl := getControllers()
	return ctl.Add(inst, attribute, delay, period, callable)
}

// CancelTimer stops the timer bound to (inst, attribute), if any.
func CancelTimer(inst any, attribute any) (bool, error) {
	_, ctl := getControllers()
	return ctl.Cancel(inst, attribute)
}

// WithTimeout runs callable on the cached unbounded pool and blocks until it
// completes or timeout elapses, whichever comes first. On timeout, the
// worker's context is canceled and ErrTimeoutExceeded is returned.
func WithTimeout(ctx context.Context, timeout time.Duration, callable func(ctx context.Context) (any, error)) (any, error) {
	ctl := schedule.NewTimeoutController(getMachine().UnboundedPool())
	return ctl.Run(ctx, timeout, callable)
}

// CheckShutdown is the cooperative-shutdown checkpoint: it returns a
// *ShutdownError if Shutdown has been called and Reset has not reversed it,
// nil otherwise. Long-running callables should call this periodically at
// well-known checkpoints and return promptly on a non-nil result.
func CheckShutdown(checkpoint string) error {
	return getMachine().CheckShutdown(checkpoint)
}

// IsShutdown reports whether Shutdown has been called and Reset has not yet
// reversed it.
func IsShutdown() bool {
	return getMachine().IsShutdown()
}

// Shutdown stops every pool, waiting up to wait (divided across pools) for
// each to drain gracefully before forcing termination on any pool that
// exceeds its share, then releases the calling goroutine's pending thread
// groups (groups opened on other goroutines are left in place). It is
// idempotent: subsequent calls are no-ops until Reset.
func Shutdown(wait time.Duration) error {
	return getMachine().Shutdown(wait)
}

// Reset reverses a prior Shutdown, re-initializing the cached unbounded
// pool and clearing the named-pool map. Legal only while shut down.
func Reset() error {
	return getMachine().Reset()
}

// Stats returns the activity counters for the named pool, reporting false
// if no pool by that name has been created yet (ThreadRunnable creates pools
// lazily on first dispatch).
func Stats(poolName string) (PoolStats, bool) {
	return getMachine().PoolStatsFor(poolName)
}
