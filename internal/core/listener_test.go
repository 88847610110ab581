package core

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultThreadEventListener(t *testing.T) {
	l := DefaultThreadEventListener{}
	if !l.BeforeThread(context.Background(), "t") {
		t.Fatal("BeforeThread = false, want true")
	}
	l.AfterThread(context.Background(), "t") // no-op, must not panic

	boom := errors.New("boom")
	if got := l.OnException(context.Background(), "t", boom); got != boom {
		t.Fatalf("OnException = %v, want boom unchanged", got)
	}
}

type recordingListener struct {
	before, after, exception int
}

func (r *recordingListener) BeforeThread(context.Context, string) bool { r.before++; return true }
func (r *recordingListener) AfterThread(context.Context, string)       { r.after++ }
func (r *recordingListener) OnException(_ context.Context, _ string, err error) error {
	r.exception++
	return err
}

func TestThreadEventListenerDecoratorForwards(t *testing.T) {
	target := &recordingListener{}
	d := ThreadEventListenerDecorator{Target: target}

	if !d.BeforeThread(context.Background(), "t") {
		t.Fatal("BeforeThread = false, want true")
	}
	d.AfterThread(context.Background(), "t")
	_ = d.OnException(context.Background(), "t", errors.New("x"))

	if target.before != 1 || target.after != 1 || target.exception != 1 {
		t.Fatalf("target = %+v, want all counts 1", target)
	}
}

func TestNoopMachineEventListener(t *testing.T) {
	l := NoopMachineEventListener{}
	l.OnPoolCreated("p")
	l.OnPoolReused("p")
}
