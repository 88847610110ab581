package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/corehost/taskrun/internal/lifecycle"
	"github.com/corehost/taskrun/internal/rollid"
)

// ErrPoolClosed is returned when Submit is called on a pool that has been
// shut down.
const ErrPoolClosed = ErrIllegalState

// PoolConfig sizes a bounded pool. Core workers are started eagerly and,
// like every worker in the pool, exit after IdleTTL with no work so process
// teardown is never blocked on a pool that nobody is draining. The pool
// expands past Core up to Max only once the bounded queue (capacity
// QueueCapacity) is full; once Max workers are all busy and the queue is
// still full, Submit runs the task on the calling goroutine instead of
// blocking (the caller-runs saturation policy).
//
// An unbounded pool (NewUnboundedPool) is the same engine configured with
// Core == 0 and an effectively unlimited Max, so there is never a caller-runs
// fallback: a worker is always created on demand.
type PoolConfig struct {
	Core          int
	Max           int
	IdleTTL       time.Duration
	QueueCapacity int
}

// PoolStats is a point-in-time snapshot of a pool's activity counters.
type PoolStats struct {
	Submitted  int64
	Completed  int64
	Failed     int64
	CallerRuns int64
	Live       int
}

type queuedTask struct {
	handle *TaskHandle
	ctx    context.Context
	fn     Callable
}

// Pool is a named worker pool bound to a Machine. It is safe for concurrent
// use by multiple goroutines.
type Pool struct {
	id       int64
	name     string
	cfg      PoolConfig
	listener ThreadEventListener

	queue     chan queuedTask
	threadIDs *rollid.Generator
	workerCap *semaphore.Weighted // weight cfg.Max; held by every live worker

	mu        sync.Mutex
	live      int
	closed    bool
	drain     chan struct{}
	drainOnce sync.Once

	submitted  atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	callerRuns atomic.Int64
}

// NewPool creates a bounded pool named name, identified by id (typically
// produced by a process-wide rollid.Generator), and starts cfg.Core workers
// eagerly. Panics if cfg.Max < cfg.Core or cfg.QueueCapacity < 0.
func NewPool(id int64, name string, cfg PoolConfig, listener ThreadEventListener) *Pool {
	if cfg.Max < cfg.Core {
		panic(fmt.Sprintf("taskrun: pool %q: max (%d) must be >= core (%d)", name, cfg.Max, cfg.Core))
	}
	if cfg.QueueCapacity < 0 {
		panic(fmt.Sprintf("taskrun: pool %q: queue capacity must not be negative", name))
	}
	if listener == nil {
		listener = DefaultThreadEventListener{}
	}
	p := &Pool{
		id:        id,
		name:      name,
		cfg:       cfg,
		listener:  listener,
		queue:     make(chan queuedTask, cfg.QueueCapacity),
		threadIDs: rollid.New(),
		workerCap: semaphore.NewWeighted(int64(cfg.Max)),
		drain:     make(chan struct{}),
	}
	for range cfg.Core {
		_ = p.workerCap.Acquire(context.Background(), 1)
		p.spawnWorkerLocked()
	}
	return p
}

// NewUnboundedPool creates a cached pool: every submission either reuses an
// idle worker or spawns a fresh one on demand, with no caller-runs fallback
// and no fixed core count.
func NewUnboundedPool(id int64, name string, listener ThreadEventListener) *Pool {
	return NewPool(id, name, PoolConfig{Core: 0, Max: 1 << 30, IdleTTL: 60 * time.Second, QueueCapacity: 0}, listener)
}

// Name returns the pool's configured name.
func (p *Pool) Name() string { return p.name }

// ID returns the pool's process-wide identifier.
func (p *Pool) ID() int64 { return p.id }

// Stats returns a snapshot of the pool's activity counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	live := p.live
	p.mu.Unlock()
	return PoolStats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		CallerRuns: p.callerRuns.Load(),
		Live:       live,
	}
}

// spawnWorkerLocked increments the live count and starts a worker goroutine.
// Callers must hold p.mu, except during NewPool's eager core-worker startup
// where no other goroutine can yet observe p.
func (p *Pool) spawnWorkerLocked() {
	p.live++
	go p.worker()
}

// trySpawnWorker spawns a worker if a slot is free under the pool's weighted
// worker-count semaphore (core vs. max), returning whether it did.
func (p *Pool) trySpawnWorker() bool {
	if !p.workerCap.TryAcquire(1) {
		return false
	}
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.spawnWorkerLocked()
	}
	p.mu.Unlock()
	if closed {
		p.workerCap.Release(1)
		return false
	}
	return true
}

// Submit enqueues fn for execution and returns a handle to await its result.
// If the bounded queue is full and the pool is already at Max workers, fn
// runs synchronously on the calling goroutine (caller-runs saturation
// policy), and the returned handle is already complete.
func (p *Pool) Submit(ctx context.Context, fn Callable) (*TaskHandle, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("submit to pool %q: %w", p.name, ErrPoolClosed)
	}

	p.submitted.Add(1)
	taskCtx, cancel := context.WithCancel(ctx)
	name := fmt.Sprintf("pool%d-%s-thread%d", p.id, p.name, p.threadIDs.Next())
	handle := newTaskHandle(name, cancel)
	qt := queuedTask{handle: handle, ctx: taskCtx, fn: fn}

	select {
	case p.queue <- qt:
		return handle, nil
	default:
	}

	if p.trySpawnWorker() {
		select {
		case p.queue <- qt:
			return handle, nil
		case <-ctx.Done():
			cancel()
			return nil, fmt.Errorf("submit to pool %q: %w", p.name, ctx.Err())
		}
	}

	p.callerRuns.Add(1)
	p.run(qt)
	return handle, nil
}

func (p *Pool) worker() {
	defer func() {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		p.workerCap.Release(1)
	}()
	idle := time.NewTimer(p.idleTTL())
	defer idle.Stop()
	for {
		select {
		case qt, ok := <-p.queue:
			if !ok {
				return
			}
			if !idle.Stop() {
				<-idle.C
			}
			p.run(qt)
			idle.Reset(p.idleTTL())
		case <-idle.C:
			return
		case <-p.drain:
			return
		}
	}
}

func (p *Pool) idleTTL() time.Duration {
	if p.cfg.IdleTTL <= 0 {
		return 60 * time.Second
	}
	return p.cfg.IdleTTL
}

func (p *Pool) run(qt queuedTask) {
	name := qt.handle.Name()
	if !p.listener.BeforeThread(qt.ctx, name) {
		qt.handle.finish(nil, nil)
		return
	}
	result, err := qt.fn(qt.ctx)
	if err != nil {
		if handled := p.listener.OnException(qt.ctx, name, err); handled != nil {
			p.failed.Add(1)
			qt.handle.finish(nil, WrapThreadError("execute in thread", handled))
			return
		}
		qt.handle.finish(nil, nil)
		return
	}
	p.listener.AfterThread(qt.ctx, name)
	p.completed.Add(1)
	qt.handle.finish(result, nil)
}

// Shutdown stops accepting new work. In-flight and already-queued tasks
// still run; callers should follow Shutdown with AwaitTermination. Shutdown
// does not wake idle workers: each one exits only once its idle TTL elapses
// with no work, or when ShutdownNow is called.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
}

// ShutdownNow is Shutdown followed by forcefully waking every worker still
// blocked on the queue, abandoning any tasks still queued.
func (p *Pool) ShutdownNow() {
	p.Shutdown()
	p.drainOnce.Do(func() { close(p.drain) })
}

// AwaitTermination blocks until every worker goroutine has exited or ctx is
// done, whichever comes first. The deadline, if any, comes entirely from
// ctx; AwaitTermination imposes no timeout of its own.
func (p *Pool) AwaitTermination(ctx context.Context) error {
	return lifecycle.Await(ctx, lifecycle.AwaitConfig{
		Interval: 10 * time.Millisecond,
		Name:     fmt.Sprintf("termination of pool %q", p.name),
	}, func(context.Context, int) (bool, error) {
		p.mu.Lock()
		live := p.live
		p.mu.Unlock()
		return live == 0, nil
	})
}

// Stop shuts the pool down gracefully and blocks up to timeout for every
// worker to drain, satisfying lifecycle.Stoppable so a *Pool can be retired
// through lifecycle.StopCloseAndNil alongside other managed resources.
func (p *Pool) Stop(timeout time.Duration) error {
	p.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.AwaitTermination(ctx)
}

// Close forcefully terminates the pool, abandoning any still-queued tasks.
// It satisfies lifecycle.Stoppable alongside Stop.
func (p *Pool) Close() {
	p.ShutdownNow()
}
