package taskrun

import (
	"github.com/corehost/taskrun/internal/core"
	"github.com/corehost/taskrun/internal/rollid"
)

// PoolStats is a point-in-time snapshot of a pool's activity counters,
// exposed for callers that want to observe saturation (CallerRuns > 0)
// without instrumenting their own callables.
type PoolStats = core.PoolStats

// RollingIDGenerator is a process-wide-safe atomic 64-bit counter that
// wraps from its maximum back to its minimum instead of overflowing,
// exposed for callers building their own naming scheme alongside taskrun's
// pools (which use an internal generator of the same kind for pool-id and
// thread-id assignment).
type RollingIDGenerator struct {
	gen *rollid.Generator
}

// NewRollingIDGenerator returns a generator starting at rollid.Min.
func NewRollingIDGenerator() *RollingIDGenerator {
	return &RollingIDGenerator{gen: rollid.New()}
}

// Next returns the next id in sequence: fetch-and-increment, except at the
// maximum value, where it atomically wraps back to the minimum and returns
// the maximum. It never repeats a value within a single wrap cycle.
func (g *RollingIDGenerator) Next() int64 {
	return g.gen.Next()
}
