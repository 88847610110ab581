package schedule

import (
	"context"
	"time"

	"github.com/corehost/taskrun/internal/core"
)

// TimeoutController runs a callable on a pool and enforces a hard wall-clock
// deadline, canceling the worker and raising a timeout error if it is
// exceeded. The mechanics are provided entirely by Pool.Submit and
// TaskHandle.Await; this controller exists so callers outside internal/core
// get a narrow, single-purpose entry point without reaching for the full
// Machine dispatch API.
type TimeoutController struct {
	pool *core.Pool
}

// NewTimeoutController returns a controller that submits work to pool.
func NewTimeoutController(pool *core.Pool) *TimeoutController {
	return &TimeoutController{pool: pool}
}

// Run executes fn on the controller's pool and blocks until it completes or
// timeout elapses, whichever comes first. On timeout, the worker's context
// is canceled and ErrTimeoutExceeded is returned; well-behaved callables
// should observe ctx.Err() to stop promptly.
func (c *TimeoutController) Run(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	handle, err := c.pool.Submit(ctx, fn)
	if err != nil {
		return nil, err
	}
	return handle.Await(ctx, timeout)
}
