package rollid

import (
	"sync"
	"testing"
)

func TestNextFetchAndIncrement(t *testing.T) {
	g := New()
	if v := g.Next(); v != 0 {
		t.Fatalf("first Next = %d, want 0", v)
	}
	if v := g.Next(); v != 1 {
		t.Fatalf("second Next = %d, want 1", v)
	}
}

func TestNextWrapsAtMax(t *testing.T) {
	g := New()
	g.counter.Store(Max)
	if v := g.Next(); v != Max {
		t.Fatalf("Next at Max = %d, want %d", v, Max)
	}
	if v := g.Next(); v != Min {
		t.Fatalf("Next after wrap = %d, want %d", v, Min)
	}
}

func TestNextConcurrentNoDuplicates(t *testing.T) {
	g := New()
	const callers = 8
	const perCaller = 500

	seen := make([][]int64, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			vals := make([]int64, perCaller)
			for j := range perCaller {
				vals[j] = g.Next()
			}
			seen[idx] = vals
		}(i)
	}
	wg.Wait()

	all := make(map[int64]struct{}, callers*perCaller)
	for _, vals := range seen {
		for _, v := range vals {
			if _, dup := all[v]; dup {
				t.Fatalf("duplicate value %d returned", v)
			}
			all[v] = struct{}{}
		}
	}
	if len(all) != callers*perCaller {
		t.Fatalf("got %d distinct values, want %d", len(all), callers*perCaller)
	}
}
