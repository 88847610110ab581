package schedule

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/corehost/taskrun/internal/registry"
)

type target struct{ n int }

func TestRunOnceExecutesOnlyOnce(t *testing.T) {
	c := NewRunOnceController(registry.New())
	obj := &target{}
	var calls int32

	for range 5 {
		ran, err := c.ExecuteAndCatalog(obj, "init", func() { atomic.AddInt32(&calls, 1) })
		if err != nil {
			t.Fatalf("ExecuteAndCatalog: %v", err)
		}
		_ = ran
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRunOnceReportsWhichCallRan(t *testing.T) {
	c := NewRunOnceController(registry.New())
	obj := &target{}

	ran, err := c.ExecuteAndCatalog(obj, "init", func() {})
	if err != nil {
		t.Fatalf("ExecuteAndCatalog 1: %v", err)
	}
	if !ran {
		t.Fatal("first call ran = false, want true")
	}

	ran, err = c.ExecuteAndCatalog(obj, "init", func() {})
	if err != nil {
		t.Fatalf("ExecuteAndCatalog 2: %v", err)
	}
	if ran {
		t.Fatal("second call ran = true, want false")
	}
}

func TestRunOnceIsolatesByMethodID(t *testing.T) {
	c := NewRunOnceController(registry.New())
	obj := &target{}

	if _, err := c.ExecuteAndCatalog(obj, "a", func() {}); err != nil {
		t.Fatalf("ExecuteAndCatalog a: %v", err)
	}
	ran, err := c.ExecuteAndCatalog(obj, "b", func() {})
	if err != nil {
		t.Fatalf("ExecuteAndCatalog b: %v", err)
	}
	if !ran {
		t.Fatal("distinct methodID on same instance should run independently")
	}
}

func TestRunOnceIsolatesByInstance(t *testing.T) {
	c := NewRunOnceController(registry.New())
	a, b := &target{}, &target{}

	if _, err := c.ExecuteAndCatalog(a, "init", func() {}); err != nil {
		t.Fatalf("ExecuteAndCatalog a: %v", err)
	}
	ran, err := c.ExecuteAndCatalog(b, "init", func() {})
	if err != nil {
		t.Fatalf("ExecuteAndCatalog b: %v", err)
	}
	if !ran {
		t.Fatal("distinct instances should run independently")
	}
}

func TestRunOnceConcurrentCallersRunExactlyOnce(t *testing.T) {
	c := NewRunOnceController(registry.New())
	obj := &target{}
	var calls int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.ExecuteAndCatalog(obj, "init", func() { atomic.AddInt32(&calls, 1) })
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRunOnceHasRun(t *testing.T) {
	c := NewRunOnceController(registry.New())
	obj := &target{}

	has, err := c.HasRun(obj, "init")
	if err != nil {
		t.Fatalf("HasRun before: %v", err)
	}
	if has {
		t.Fatal("HasRun before execution = true, want false")
	}

	_, _ = c.ExecuteAndCatalog(obj, "init", func() {})

	has, err = c.HasRun(obj, "init")
	if err != nil {
		t.Fatalf("HasRun after: %v", err)
	}
	if !has {
		t.Fatal("HasRun after execution = false, want true")
	}
}
