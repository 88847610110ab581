package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corehost/taskrun/internal/rollid"
)

// PoolOption overrides one field of a named pool's sizing, applied on top
// of the machine-wide defaults the first time that pool is created.
type PoolOption func(*PoolConfig)

// MachineConfig configures a Machine at construction.
type MachineConfig struct {
	PoolCore             int
	PoolMax              int
	PoolIdleTTL          time.Duration
	PoolQueueCapacity    int
	ShutdownHookTimeout  time.Duration
	DisableShutdownHook  bool
	EventListener        ThreadEventListener
	MachineEventListener MachineEventListener
}

type listenerBox struct{ l ThreadEventListener }
type machineListenerBox struct{ l MachineEventListener }

// Machine is the thread-machine controller: the central entry point that
// owns named pools, delegates to a GroupLatch, installs a shutdown hook, and
// enforces cooperative-shutdown checks.
type Machine struct {
	cfg MachineConfig

	poolIDs *rollid.Generator
	latch   *GroupLatch

	mu            sync.Mutex
	pools         map[string]*Pool
	unboundedPool *Pool
	poolOverrides map[string][]PoolOption

	shutdown atomic.Bool

	listenerVal        atomic.Pointer[listenerBox]
	machineListenerVal atomic.Pointer[machineListenerBox]

	hookOnce sync.Once
}

// NewMachine constructs a Machine with the given configuration, starts its
// cached unbounded pool eagerly, and, unless cfg.DisableShutdownHook is set,
// registers a process-exit hook that calls Shutdown on SIGINT/SIGTERM.
func NewMachine(cfg MachineConfig) *Machine {
	m := &Machine{
		cfg:     cfg,
		poolIDs: rollid.New(),
		latch:   NewGroupLatch(),
		pools:   make(map[string]*Pool),
	}
	listener := cfg.EventListener
	if listener == nil {
		listener = DefaultThreadEventListener{}
	}
	m.listenerVal.Store(&listenerBox{l: listener})

	mlistener := cfg.MachineEventListener
	if mlistener == nil {
		mlistener = NoopMachineEventListener{}
	}
	m.machineListenerVal.Store(&machineListenerBox{l: mlistener})

	m.unboundedPool = NewUnboundedPool(m.poolIDs.Next(), "cached", m.listener())

	if !cfg.DisableShutdownHook {
		m.installShutdownHook()
	}
	return m
}

func (m *Machine) listener() ThreadEventListener        { return m.listenerVal.Load().l }
func (m *Machine) machineListener() MachineEventListener { return m.machineListenerVal.Load().l }

// SetEventListener replaces the listener handed to every pool created from
// this point forward (a named pool on its first dispatch, the cached pool on
// Reset). Safe to call concurrently. A pool that already exists keeps the
// listener it was created with, so tasks dispatched to it afterwards still
// run under the previous listener.
func (m *Machine) SetEventListener(l ThreadEventListener) {
	if l == nil {
		l = DefaultThreadEventListener{}
	}
	m.listenerVal.Store(&listenerBox{l: l})
}

// SetMachineEventListener replaces the pool-lifecycle observer.
func (m *Machine) SetMachineEventListener(l MachineEventListener) {
	if l == nil {
		l = NoopMachineEventListener{}
	}
	m.machineListenerVal.Store(&machineListenerBox{l: l})
}

func (m *Machine) installShutdownHook() {
	m.hookOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			timeout := m.cfg.ShutdownHookTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			if err := m.Shutdown(timeout); err != nil {
				Logger().Warn("shutdown hook: shutdown failed", "error", err)
			}
		}()
	})
}

// ConfigurePool records sizing overrides for the named pool, applied on top
// of the machine-wide defaults the first time that pool is created by
// getOrCreatePool. Has no effect on a pool that already exists; call before
// the pool's first dispatch.
func (m *Machine) ConfigurePool(name string, opts ...PoolOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poolOverrides == nil {
		m.poolOverrides = make(map[string][]PoolOption)
	}
	m.poolOverrides[name] = append(m.poolOverrides[name], opts...)
}

// getOrCreatePool resolves the named pool, creating it lazily under the pool
// map lock.
func (m *Machine) getOrCreatePool(name string) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[name]; ok {
		m.machineListener().OnPoolReused(name)
		return p
	}
	cfg := PoolConfig{
		Core:          m.cfg.PoolCore,
		Max:           m.cfg.PoolMax,
		IdleTTL:       m.cfg.PoolIdleTTL,
		QueueCapacity: m.cfg.PoolQueueCapacity,
	}
	for _, opt := range m.poolOverrides[name] {
		opt(&cfg)
	}
	p := NewPool(m.poolIDs.Next(), name, cfg, m.listener())
	m.pools[name] = p
	m.machineListener().OnPoolCreated(name)
	return p
}

// ExecuteInThread is the central dispatch operation. If shutdown, it fails
// with illegal-state. Otherwise it resolves the pool (named pool when
// poolable, else the cached unbounded pool), submits callable wrapped with
// the event-listener adapter, and, when groupable and the caller's context
// has at least one active group, registers the resulting handle with it.
func (m *Machine) ExecuteInThread(ctx context.Context, poolable bool, poolName string, groupable bool, callable func(ctx context.Context) error) (*TaskHandle, error) {
	if m.shutdown.Load() {
		return nil, fmt.Errorf("execute in thread: %w", ErrIllegalState)
	}

	var pool *Pool
	if poolable {
		pool = m.getOrCreatePool(poolName)
	} else {
		pool = m.unboundedPool
	}

	handle, err := pool.Submit(ctx, func(taskCtx context.Context) (any, error) {
		return nil, callable(taskCtx)
	})
	if err != nil {
		return nil, err
	}

	if groupable && m.latch.NumberOfThreadGroups() > 0 {
		_ = m.latch.AddThreadToGroup(handle)
	}
	return handle, nil
}

// CreateThreadGroup pushes a new empty group onto the caller's group stack.
func (m *Machine) CreateThreadGroup() {
	m.latch.CreateThreadGroup()
}

// AwaitCurrentThreadGroup pops the caller's top group and awaits every
// handle in insertion order, each bounded by perHandleTimeout. A timeout on
// any handle is translated into a ThreadFrameworkError carrying the timeout
// value.
func (m *Machine) AwaitCurrentThreadGroup(ctx context.Context, perHandleTimeout time.Duration) (int, error) {
	completed, err := m.latch.WaitForThreadsToFinish(ctx, perHandleTimeout)
	if err == nil {
		return completed, nil
	}
	if IsShutdownCause(err) {
		return completed, err
	}
	if errors.Is(err, ErrTimeoutExceeded) {
		return completed, &ThreadFrameworkError{Op: fmt.Sprintf("await thread group (timeout %s per handle)", perHandleTimeout), Err: err}
	}
	return completed, err
}

// Shutdown is idempotent. On the first call it marks the machine shut down,
// divides wait across every pool (named pools plus the cached unbounded
// pool), and retires each through RetirePool: a graceful stop bounded by its
// share of wait, forced on any pool that fails to drain in time. It finally
// releases the calling goroutine's pending thread groups via
// GroupLatch.ReleaseAll; groups opened on other goroutines are left in place.
func (m *Machine) Shutdown(wait time.Duration) error {
	if !m.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools)+1)
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	pools = append(pools, m.unboundedPool)
	m.mu.Unlock()

	if len(pools) > 0 {
		perPool := wait / time.Duration(len(pools))
		if perPool <= 0 {
			perPool = wait
		}
		var eg errgroup.Group
		for _, p := range pools {
			name := p.Name()
			eg.Go(func() error {
				if err := RetirePool(&p, perPool); err != nil {
					Logger().Warn("pool failed to drain within its shutdown budget; forced shutdown",
						"pool", name, "error", err)
				}
				return nil
			})
		}
		_ = eg.Wait()
	}

	m.latch.ReleaseAll()
	return nil
}

// Reset re-initializes the pool map with a fresh cached unbounded pool.
// Legal only when the machine is shut down.
func (m *Machine) Reset() error {
	if !m.shutdown.Load() {
		return ErrIllegalState
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = make(map[string]*Pool)
	m.unboundedPool = NewUnboundedPool(m.poolIDs.Next(), "cached", m.listener())
	m.shutdown.Store(false)
	return nil
}

// CheckShutdown is the cooperative-shutdown check: it returns a
// *ShutdownError if the machine has been shut down, nil otherwise. The
// weaver injects calls to this at program points inside thread-managed
// bodies.
func (m *Machine) CheckShutdown(checkpoint string) error {
	if m.shutdown.Load() {
		return NewShutdownError(checkpoint)
	}
	return nil
}

// IsShutdown reports whether Shutdown has been called and Reset has not yet
// reversed it.
func (m *Machine) IsShutdown() bool {
	return m.shutdown.Load()
}

// Latch exposes the underlying GroupLatch for direct use by callers that
// need ReleaseAll or the observer methods outside the ExecuteInThread path.
func (m *Machine) Latch() *GroupLatch {
	return m.latch
}

// UnboundedPool exposes the cached pool, used by controllers (e.g. the
// timeout controller) that need a background executor without a named pool.
func (m *Machine) UnboundedPool() *Pool {
	return m.unboundedPool
}

// PoolStatsFor returns the activity counters for the named pool, without
// creating it if it does not yet exist.
func (m *Machine) PoolStatsFor(name string) (PoolStats, bool) {
	m.mu.Lock()
	p, ok := m.pools[name]
	m.mu.Unlock()
	if !ok {
		return PoolStats{}, false
	}
	return p.Stats(), true
}
