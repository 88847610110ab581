// Package taskrun provides a process-wide concurrency framework: named
// worker pools, a cached unbounded pool, a thread-group latch for
// fork/join-style fan-out, run-once and periodic-timer controllers keyed by
// instance identity, a timeout controller, cooperative shutdown checks, and
// self-expiring TTL collections.
//
// # Basic Usage
//
//	import "github.com/corehost/taskrun"
//
//	handle, err := taskrun.ThreadRunnable(ctx, "workers", func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := handle.Await(ctx, 30*time.Second); err != nil {
//	    log.Fatal(err)
//	}
//
// # Fan-out / fan-in
//
// BeginThreadGroup and EndThreadGroup bracket a batch of related tasks
// dispatched from the same goroutine:
//
//	taskrun.BeginThreadGroup()
//	for _, item := range items {
//	    _, _ = taskrun.ThreadRunnable(ctx, "workers", func(ctx context.Context) error {
//	        return process(item)
//	    })
//	}
//	completed, err := taskrun.EndThreadGroup(ctx, 0)
//
// # Shutdown
//
// The package installs a SIGINT/SIGTERM hook at first use that calls
// Shutdown with DefaultShutdownHookTimeout. Call Shutdown explicitly during
// an orderly program exit to drain pools deterministically instead of
// relying on the signal hook.
package taskrun
