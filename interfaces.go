package taskrun

import "github.com/corehost/taskrun/internal/core"

// ThreadEventListener hooks around every task dispatched through the
// package-level machine. See [WithEventListener].
type ThreadEventListener = core.ThreadEventListener

// DefaultThreadEventListener permits every run, is a no-op on completion, and
// re-surfaces every error unchanged. It is the default when no listener is
// configured.
type DefaultThreadEventListener = core.DefaultThreadEventListener

// ThreadEventListenerDecorator forwards every call to Target, letting a
// caller override a subset of the three hooks by embedding it.
type ThreadEventListenerDecorator = core.ThreadEventListenerDecorator

// MachineEventListener observes pool lifecycle events: whether a dispatch
// resolved a named pool by creating it or by reusing an existing one. See
// [WithMachineEventListener].
type MachineEventListener = core.MachineEventListener

// NoopMachineEventListener observes nothing. It is the default when no
// machine-event listener is configured.
type NoopMachineEventListener = core.NoopMachineEventListener
