package core

import (
	"context"
	"sync"
	"time"
)

// ThreadGroup is an ordered list of pending task handles, created by
// GroupLatch.CreateThreadGroup and drained by WaitForThreadsToFinish.
type ThreadGroup struct {
	handles []*TaskHandle
}

// groupStack is the per-caller-context LIFO stack of ThreadGroups.
type groupStack struct {
	mu     sync.Mutex
	groups []*ThreadGroup
}

// GroupLatch is the thread-group latch: a per-caller-context stack of
// groups, each group an ordered list of pending task handles. Caller
// context is approximated with the current goroutine's id (see
// getGoroutineID), since Go exposes no native goroutine-local storage.
type GroupLatch struct {
	stacks sync.Map // uint64 goroutine id -> *groupStack
}

// NewGroupLatch returns an empty GroupLatch.
func NewGroupLatch() *GroupLatch {
	return &GroupLatch{}
}

func (l *GroupLatch) stackFor(goid uint64) *groupStack {
	v, _ := l.stacks.LoadOrStore(goid, &groupStack{})
	return v.(*groupStack) //nolint:forcetypeassert // only this type is ever stored under this key
}

// CreateThreadGroup pushes a new empty group onto the calling goroutine's
// stack.
func (l *GroupLatch) CreateThreadGroup() {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	s.groups = append(s.groups, &ThreadGroup{})
	s.mu.Unlock()
}

// AddThreadToGroup appends handle to the calling goroutine's top group.
// Fails with ErrIllegalState if no group exists.
func (l *GroupLatch) AddThreadToGroup(handle *TaskHandle) error {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.groups) == 0 {
		return ErrIllegalState
	}
	top := s.groups[len(s.groups)-1]
	top.handles = append(top.handles, handle)
	return nil
}

// WaitForThreadsToFinish pops the calling goroutine's top group, then awaits
// each of its handles in insertion order with the given per-handle timeout.
// It returns the count that completed before any single handle exceeded its
// wait. If a handle finished with a ShutdownError cause, that error is
// re-raised unwrapped; any other failure is wrapped into a
// ThreadFrameworkError. Fails with ErrIllegalState if no group exists.
func (l *GroupLatch) WaitForThreadsToFinish(ctx context.Context, perHandleTimeout time.Duration) (int, error) {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	n := len(s.groups)
	if n == 0 {
		s.mu.Unlock()
		return 0, ErrIllegalState
	}
	group := s.groups[n-1]
	s.groups = s.groups[:n-1]
	s.mu.Unlock()

	completed := 0
	for _, h := range group.handles {
		_, err := h.Await(ctx, perHandleTimeout)
		if err != nil {
			if IsShutdownCause(err) {
				return completed, err
			}
			return completed, WrapThreadError("wait for thread group", err)
		}
		completed++
	}
	return completed, nil
}

// ReleaseAll discards the calling goroutine's entire stack and returns the
// total number of handles released. It does not cancel them.
func (l *GroupLatch) ReleaseAll() int {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, g := range s.groups {
		total += len(g.handles)
	}
	s.groups = nil
	return total
}

// NumberOfThreadGroups returns the depth of the calling goroutine's stack.
func (l *GroupLatch) NumberOfThreadGroups() int {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// NumberOfThreads returns the total handle count across every group on the
// calling goroutine's stack.
func (l *GroupLatch) NumberOfThreads() int {
	s := l.stackFor(getGoroutineID())
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, g := range s.groups {
		total += len(g.handles)
	}
	return total
}
