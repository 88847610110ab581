// Package lifecycle provides small, reusable building blocks for stopping
// and waiting on long-lived resources: a generic stop/close/nil helper for
// anything satisfying Stoppable, and a polling helper for waiting on an
// arbitrary readiness condition.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Sentinel errors returned by Await for invalid configuration and for an
// early abort via AwaitConfig.Aborted. Callers can match these with
// errors.Is through wrapped error chains.
var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrAborted indicates AwaitConfig.Aborted closed before the condition
	// became true.
	ErrAborted = errors.New("aborted before condition became true")
)

// ConditionFunc is a condition polled repeatedly by Await. The context is
// canceled when the polling loop's governing context is done, so a check
// that issues its own I/O can exit promptly. attempt is 1-based. It returns
// true when the condition holds, false to keep polling, or a non-nil error
// to abort polling immediately.
type ConditionFunc func(ctx context.Context, attempt int) (ready bool, err error)

// AwaitConfig configures Await.
type AwaitConfig struct {
	Interval time.Duration   // Poll interval
	Name     string          // For logging context
	Logger   *slog.Logger    // Optional logger (defaults to slog.Default())
	Aborted  <-chan struct{} // If non-nil, abort immediately when closed
}

// Await polls check until it reports ready, ctx is done, or cfg.Aborted
// closes, whichever comes first. A deadline on ctx (via context.WithTimeout
// or context.WithDeadline) is how callers bound the overall wait; Await
// itself imposes none.
func Await(ctx context.Context, cfg AwaitConfig, check ConditionFunc) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("await %s: %w", cfg.Name, ErrIntervalNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// attempt is safe to increment without synchronization because
	// PollUntilContextCancel invokes the condition function sequentially:
	// each call completes before the next is scheduled.
	attempt := 0
	if err := wait.PollUntilContextCancel(ctx, cfg.Interval, true,
		func(pollCtx context.Context) (bool, error) {
			if cfg.Aborted != nil {
				select {
				case <-cfg.Aborted:
					return false, fmt.Errorf("await %s: %w", cfg.Name, ErrAborted)
				default:
				}
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("await condition satisfied", "name", cfg.Name, "attempt", attempt)
			}
			return ready, nil
		}); err != nil {
		return fmt.Errorf("await %s: %w", cfg.Name, err)
	}
	return nil
}
