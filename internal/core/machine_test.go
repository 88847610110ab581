package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMachine() *Machine {
	return NewMachine(MachineConfig{
		PoolCore:            1,
		PoolMax:             2,
		PoolIdleTTL:         50 * time.Millisecond,
		PoolQueueCapacity:   4,
		DisableShutdownHook: true,
	})
}

func TestMachineExecuteInThreadRunsOnNamedPool(t *testing.T) {
	m := newTestMachine()
	var ran bool
	h, err := m.ExecuteInThread(context.Background(), true, "worker-pool", false, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteInThread: %v", err)
	}
	if _, err := h.Await(context.Background(), time.Second); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !ran {
		t.Fatal("callable did not run")
	}
}

func TestMachineExecuteInThreadReusesNamedPool(t *testing.T) {
	m := newTestMachine()
	var created, reused int
	m.SetMachineEventListener(countingMachineListener{created: &created, reused: &reused})

	h1, err := m.ExecuteInThread(context.Background(), true, "shared", false, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("ExecuteInThread 1: %v", err)
	}
	h2, err := m.ExecuteInThread(context.Background(), true, "shared", false, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("ExecuteInThread 2: %v", err)
	}
	_, _ = h1.Await(context.Background(), time.Second)
	_, _ = h2.Await(context.Background(), time.Second)

	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if reused != 1 {
		t.Fatalf("reused = %d, want 1", reused)
	}
}

type countingMachineListener struct {
	created, reused *int
}

func (c countingMachineListener) OnPoolCreated(string) { *c.created++ }
func (c countingMachineListener) OnPoolReused(string)  { *c.reused++ }

func TestMachineExecuteInThreadRejectedAfterShutdown(t *testing.T) {
	m := newTestMachine()
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	_, err := m.ExecuteInThread(context.Background(), false, "", false, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("err = %v, want ErrIllegalState", err)
	}
}

func TestMachineGroupableRegistersWithActiveGroup(t *testing.T) {
	m := newTestMachine()
	m.CreateThreadGroup()
	_, err := m.ExecuteInThread(context.Background(), false, "", true, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("ExecuteInThread: %v", err)
	}
	if n := m.Latch().NumberOfThreads(); n != 1 {
		t.Fatalf("NumberOfThreads = %d, want 1", n)
	}
	completed, err := m.AwaitCurrentThreadGroup(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("AwaitCurrentThreadGroup: %v", err)
	}
	if completed != 1 {
		t.Fatalf("completed = %d, want 1", completed)
	}
}

func TestMachineCheckShutdown(t *testing.T) {
	m := newTestMachine()
	if err := m.CheckShutdown("checkpoint"); err != nil {
		t.Fatalf("CheckShutdown before shutdown: %v", err)
	}
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	err := m.CheckShutdown("checkpoint")
	if !IsShutdownCause(err) {
		t.Fatalf("CheckShutdown after shutdown = %v, want shutdown cause", err)
	}
}

func TestMachineShutdownIsIdempotent(t *testing.T) {
	m := newTestMachine()
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown 1: %v", err)
	}
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown 2: %v", err)
	}
}

func TestMachineResetAfterShutdown(t *testing.T) {
	m := newTestMachine()
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := m.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if m.IsShutdown() {
		t.Fatal("IsShutdown after Reset = true, want false")
	}
	_, err := m.ExecuteInThread(context.Background(), false, "", false, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("ExecuteInThread after Reset: %v", err)
	}
}

func TestMachineResetWhileRunningFails(t *testing.T) {
	m := newTestMachine()
	if err := m.Reset(); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Reset while running err = %v, want ErrIllegalState", err)
	}
}
