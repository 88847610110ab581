package core

import "context"

// ThreadEventListener hooks around every task executed through a Machine.
// beforeThread returning false cancels the run: the task does not execute
// and afterThread is not invoked. onException returning nil swallows the
// error; returning non-nil surfaces it (wrapped if necessary) to the pool's
// default failure pathway.
type ThreadEventListener interface {
	BeforeThread(ctx context.Context, taskName string) bool
	AfterThread(ctx context.Context, taskName string)
	OnException(ctx context.Context, taskName string, err error) error
}

// DefaultThreadEventListener permits every run, is a no-op on completion, and
// re-surfaces every error unchanged.
type DefaultThreadEventListener struct{}

func (DefaultThreadEventListener) BeforeThread(context.Context, string) bool { return true }
func (DefaultThreadEventListener) AfterThread(context.Context, string)       {}
func (DefaultThreadEventListener) OnException(_ context.Context, _ string, err error) error {
	return err
}

// ThreadEventListenerDecorator forwards every call to Target. Embed it and
// override individual methods to customize a subset of the hooks.
type ThreadEventListenerDecorator struct {
	Target ThreadEventListener
}

func (d ThreadEventListenerDecorator) BeforeThread(ctx context.Context, name string) bool {
	return d.Target.BeforeThread(ctx, name)
}

func (d ThreadEventListenerDecorator) AfterThread(ctx context.Context, name string) {
	d.Target.AfterThread(ctx, name)
}

func (d ThreadEventListenerDecorator) OnException(ctx context.Context, name string, err error) error {
	return d.Target.OnException(ctx, name, err)
}

// MachineEventListener observes pool lifecycle events at the Machine level:
// whether executeInThread resolved a pool by creating it or by reusing an
// existing one.
type MachineEventListener interface {
	OnPoolCreated(poolName string)
	OnPoolReused(poolName string)
}

// NoopMachineEventListener observes nothing.
type NoopMachineEventListener struct{}

func (NoopMachineEventListener) OnPoolCreated(string) {}
func (NoopMachineEventListener) OnPoolReused(string)  {}
