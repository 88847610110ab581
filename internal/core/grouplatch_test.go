package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newDoneHandle(name string, result any, err error) *TaskHandle {
	h := newTaskHandle(name, func() {})
	h.finish(result, err)
	return h
}

func TestGroupLatchBasicFlow(t *testing.T) {
	l := NewGroupLatch()
	l.CreateThreadGroup()
	if n := l.NumberOfThreadGroups(); n != 1 {
		t.Fatalf("NumberOfThreadGroups = %d, want 1", n)
	}

	h1 := newDoneHandle("a", 1, nil)
	h2 := newDoneHandle("b", 2, nil)
	if err := l.AddThreadToGroup(h1); err != nil {
		t.Fatalf("AddThreadToGroup h1: %v", err)
	}
	if err := l.AddThreadToGroup(h2); err != nil {
		t.Fatalf("AddThreadToGroup h2: %v", err)
	}
	if n := l.NumberOfThreads(); n != 2 {
		t.Fatalf("NumberOfThreads = %d, want 2", n)
	}

	completed, err := l.WaitForThreadsToFinish(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("WaitForThreadsToFinish: %v", err)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
	if n := l.NumberOfThreadGroups(); n != 0 {
		t.Fatalf("NumberOfThreadGroups after wait = %d, want 0", n)
	}
}

func TestGroupLatchAddWithoutGroupFails(t *testing.T) {
	l := NewGroupLatch()
	h := newDoneHandle("a", nil, nil)
	err := l.AddThreadToGroup(h)
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("err = %v, want ErrIllegalState", err)
	}
}

func TestGroupLatchWaitWithoutGroupFails(t *testing.T) {
	l := NewGroupLatch()
	_, err := l.WaitForThreadsToFinish(context.Background(), time.Second)
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("err = %v, want ErrIllegalState", err)
	}
}

func TestGroupLatchNestedGroups(t *testing.T) {
	l := NewGroupLatch()
	l.CreateThreadGroup()
	_ = l.AddThreadToGroup(newDoneHandle("outer", nil, nil))
	l.CreateThreadGroup()
	_ = l.AddThreadToGroup(newDoneHandle("inner-1", nil, nil))
	_ = l.AddThreadToGroup(newDoneHandle("inner-2", nil, nil))

	if n := l.NumberOfThreadGroups(); n != 2 {
		t.Fatalf("NumberOfThreadGroups = %d, want 2", n)
	}

	completed, err := l.WaitForThreadsToFinish(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("inner wait: %v", err)
	}
	if completed != 2 {
		t.Fatalf("inner completed = %d, want 2", completed)
	}
	if n := l.NumberOfThreadGroups(); n != 1 {
		t.Fatalf("NumberOfThreadGroups after inner wait = %d, want 1", n)
	}

	completed, err = l.WaitForThreadsToFinish(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("outer wait: %v", err)
	}
	if completed != 1 {
		t.Fatalf("outer completed = %d, want 1", completed)
	}
}

func TestGroupLatchWaitPropagatesFailure(t *testing.T) {
	l := NewGroupLatch()
	l.CreateThreadGroup()
	boom := errors.New("boom")
	_ = l.AddThreadToGroup(newDoneHandle("fails", nil, boom))

	_, err := l.WaitForThreadsToFinish(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *ThreadFrameworkError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *ThreadFrameworkError", err)
	}
}

func TestGroupLatchWaitPropagatesShutdownUnwrapped(t *testing.T) {
	l := NewGroupLatch()
	l.CreateThreadGroup()
	shutdownErr := NewShutdownError("worker")
	_ = l.AddThreadToGroup(newDoneHandle("shutting-down", nil, shutdownErr))

	_, err := l.WaitForThreadsToFinish(context.Background(), time.Second)
	if !IsShutdownCause(err) {
		t.Fatalf("err = %v, want shutdown cause", err)
	}
}

func TestGroupLatchReleaseAll(t *testing.T) {
	l := NewGroupLatch()
	l.CreateThreadGroup()
	_ = l.AddThreadToGroup(newDoneHandle("a", nil, nil))
	l.CreateThreadGroup()
	_ = l.AddThreadToGroup(newDoneHandle("b", nil, nil))
	_ = l.AddThreadToGroup(newDoneHandle("c", nil, nil))

	released := l.ReleaseAll()
	if released != 3 {
		t.Fatalf("released = %d, want 3", released)
	}
	if n := l.NumberOfThreadGroups(); n != 0 {
		t.Fatalf("NumberOfThreadGroups after ReleaseAll = %d, want 0", n)
	}
}

func TestGroupLatchIsolatedPerGoroutine(t *testing.T) {
	l := NewGroupLatch()
	done := make(chan int, 1)
	go func() {
		l.CreateThreadGroup()
		done <- l.NumberOfThreadGroups()
	}()
	if got := <-done; got != 1 {
		t.Fatalf("goroutine saw %d groups, want 1", got)
	}
	if n := l.NumberOfThreadGroups(); n != 0 {
		t.Fatalf("calling goroutine saw %d groups, want 0 (stacks must be isolated)", n)
	}
}
