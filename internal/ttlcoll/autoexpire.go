package ttlcoll

import (
	"fmt"
	"time"

	"github.com/corehost/taskrun/internal/core"
	"github.com/corehost/taskrun/internal/schedule"
)

// timerAttr is the periodic-timer attribute key every AutoExpiring
// collection registers under; distinct AutoExpiring instances never collide
// since the registry namespaces entries per instance.
type timerAttr struct{}

// AutoExpiring wraps a Collection and registers itself with a
// PeriodicTimerController at construction: the timer, firing every ttl,
// calls DrainExpired so the collection shrinks without requiring reader
// activity. The timer is bound to the AutoExpiring value's lifetime through
// the controller's registry and stops once it is unreachable.
type AutoExpiring struct {
	*Collection
}

// NewAutoExpiring constructs an AutoExpiring collection with the given ttl
// and onExpire hook, and binds it to timers so it self-drains every ttl.
func NewAutoExpiring(ttl time.Duration, onExpire ExpirationFunc, timers *schedule.PeriodicTimerController) (*AutoExpiring, error) {
	coll, err := New(ttl, onExpire)
	if err != nil {
		return nil, err
	}
	ae := &AutoExpiring{Collection: coll}

	if timers == nil {
		return nil, fmt.Errorf("auto-expiring collection: %w", core.ErrInvalidArgument)
	}
	// The timer closure holds the inner Collection, not ae, so the timer
	// goroutine never keeps ae reachable.
	if _, err := timers.Add(ae, timerAttr{}, ttl, ttl, func() {
		coll.DrainExpired()
	}); err != nil {
		return nil, err
	}
	return ae, nil
}
