package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/corehost/taskrun/internal/core"
	"github.com/corehost/taskrun/internal/registry"
)

// periodicAttr namespaces a PeriodicTimerController's registry entries by
// the caller-supplied attribute, so distinct attributes on the same instance
// never collide, and timer bindings never collide with other entry types
// stored in the same registry. Controllers sharing one registry share their
// bindings for the same (instance, attribute).
type periodicAttr struct{ attribute any }

// PeriodicTimerController binds a repeating callable to an (instance,
// attribute) pair. The timer runs on its own goroutine via
// wait.PollUntilContextCancel and is canceled automatically when the bound
// instance becomes unreachable, via the registry's OnCollect hook.
type PeriodicTimerController struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// NewPeriodicTimerController returns a controller backed by reg. If logger
// is nil, core.Logger() is used to report panics recovered from callables.
func NewPeriodicTimerController(reg *registry.Registry, logger *slog.Logger) *PeriodicTimerController {
	if logger == nil {
		logger = core.Logger()
	}
	return &PeriodicTimerController{reg: reg, logger: logger}
}

// Add binds callable to run every period, first firing after delay, for as
// long as inst remains reachable. If (inst, attribute) is already bound,
// Add instead runs callable once, synchronously, and returns false: the
// existing timer is left untouched. period must be >= 1 and delay >= 0.
func (c *PeriodicTimerController) Add(inst any, attribute any, delay, period time.Duration, callable func()) (bool, error) {
	if period < time.Nanosecond {
		return false, fmt.Errorf("periodic timer: %w", core.ErrInvalidArgument)
	}
	if delay < 0 {
		return false, fmt.Errorf("periodic timer: %w", core.ErrInvalidArgument)
	}

	ctx, cancel := context.WithCancel(context.Background())
	added, err := c.reg.CheckAndAdd(inst, periodicAttr{attribute: attribute}, cancel)
	if err != nil {
		cancel()
		return false, err
	}
	if !added {
		cancel()
		c.runProtected(callable)
		return false, nil
	}

	if err := c.reg.OnCollect(inst, cancel); err != nil {
		cancel()
		return false, err
	}

	go c.loop(ctx, delay, period, callable)
	return true, nil
}

// Cancel stops the timer bound to (inst, attribute), if any, and removes
// its registry entry. It reports whether a timer was found and canceled.
func (c *PeriodicTimerController) Cancel(inst any, attribute any) (bool, error) {
	v, err := c.reg.Remove(inst, periodicAttr{attribute: attribute})
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	cancel, ok := v.(context.CancelFunc)
	if !ok {
		return false, nil
	}
	cancel()
	return true, nil
}

func (c *PeriodicTimerController) loop(ctx context.Context, delay, period time.Duration, callable func()) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	_ = wait.PollUntilContextCancel(ctx, period, true, func(context.Context) (bool, error) {
		c.runProtected(callable)
		return false, nil
	})
}

// runProtected recovers from a panicking callable and logs it, since a
// periodic timer must never let one failing tick kill the goroutine running
// every future tick.
func (c *PeriodicTimerController) runProtected(callable func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("periodic timer callback panicked", "recovered", r)
		}
	}()
	callable()
}
