package core

import (
	"context"
	"sync"
	"time"
)

// Callable is a unit of work submitted to a Pool. The context is canceled
// when the handle's Await deadline expires or Cancel is called explicitly;
// well-behaved callables check ctx.Err() periodically.
type Callable func(ctx context.Context) (any, error)

// TaskHandle is a cancellable, awaitable reference to a submitted task. It
// carries the task's success or failure once it completes.
type TaskHandle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result any
	err    error
}

func newTaskHandle(name string, cancel context.CancelFunc) *TaskHandle {
	return &TaskHandle{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Name returns the handle's worker/task name, assigned by the Pool that
// created it (see Pool.Submit).
func (h *TaskHandle) Name() string {
	return h.name
}

func (h *TaskHandle) finish(result any, err error) {
	h.mu.Lock()
	h.result, h.err = result, err
	h.mu.Unlock()
	close(h.done)
}

// Cancel requests interruption of the executing worker. The worker must
// cooperatively observe context cancellation; TaskHandle does not forcibly
// kill it.
func (h *TaskHandle) Cancel() {
	h.cancel()
}

// Done reports whether the task has finished, successfully or not.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the task completes, the per-call timeout elapses, or
// ctx is canceled. A zero timeout means wait indefinitely (bounded only by
// ctx). On timeout, Await cancels the underlying task before returning
// ErrTimeoutExceeded.
func (h *TaskHandle) Await(ctx context.Context, timeout time.Duration) (any, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, h.err
	case <-timeoutCh:
		h.cancel()
		return nil, ErrTimeoutExceeded
	case <-ctx.Done():
		return nil, WrapThreadError("await task", ctx.Err())
	}
}
