// Package ttlcoll implements a time-to-live collection (every element
// carries an absolute deadline computed at insertion) and an auto-expiring
// variant that drains itself on a periodic timer instead of relying on
// reader activity.
package ttlcoll

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/corehost/taskrun/internal/core"
)

// ExpirationFunc is invoked once per payload as it is drained for having
// exceeded its deadline.
type ExpirationFunc func(payload any)

type entry struct {
	payload  any
	deadline time.Time
}

// Collection is a semantic container of payloads each tagged with an
// absolute deadline of now+ttl at insertion time. Every public operation
// except Clear first drains expired entries, in deadline order, invoking
// onExpire for each. Because ttl is fixed and entries are appended in
// arrival order, insertion order coincides with deadline order, so draining
// and iteration both simply walk the slice from the front.
//
// Equality for Contains/Remove defers to the payload's own equality
// (reflect.DeepEqual), not wrapper identity.
type Collection struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  []entry
	onExpire ExpirationFunc
}

// New constructs a Collection with the given ttl. onExpire may be nil, in
// which case expirations are silently discarded. Rejects a non-positive
// ttl.
func New(ttl time.Duration, onExpire ExpirationFunc) (*Collection, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl collection: %w", core.ErrInvalidArgument)
	}
	if onExpire == nil {
		onExpire = func(any) {}
	}
	return &Collection{ttl: ttl, onExpire: onExpire}, nil
}

// drainExpiredLocked must be called with c.mu held. It pops every entry
// whose deadline has passed, invoking onExpire for each, and returns the
// drained payloads in deadline order.
func (c *Collection) drainExpiredLocked() []any {
	now := time.Now()
	i := 0
	for i < len(c.entries) && !c.entries[i].deadline.After(now) {
		i++
	}
	if i == 0 {
		return nil
	}
	drained := make([]any, i)
	for j := range i {
		drained[j] = c.entries[j].payload
	}
	c.entries = c.entries[i:]
	for _, payload := range drained {
		c.onExpire(payload)
	}
	return drained
}

// Add inserts payload with a deadline of now+ttl. Rejects a nil payload.
func (c *Collection) Add(payload any) error {
	if payload == nil {
		return fmt.Errorf("ttl collection add: %w", core.ErrInvalidArgument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainExpiredLocked()
	c.entries = append(c.entries, entry{payload: payload, deadline: time.Now().Add(c.ttl)})
	return nil
}

// Remove deletes the first entry whose payload equals payload (via
// reflect.DeepEqual), reporting whether one was found.
func (c *Collection) Remove(payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainExpiredLocked()
	for i, e := range c.entries {
		if reflect.DeepEqual(e.payload, payload) {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether payload is currently present.
func (c *Collection) Contains(payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainExpiredLocked()
	for _, e := range c.entries {
		if reflect.DeepEqual(e.payload, payload) {
			return true
		}
	}
	return false
}

// Size returns the number of unexpired entries.
func (c *Collection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainExpiredLocked()
	return len(c.entries)
}

// Iterate returns a snapshot of every unexpired payload, in deadline order.
func (c *Collection) Iterate() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainExpiredLocked()
	out := make([]any, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.payload
	}
	return out
}

// Clear discards every entry, expired or not, without invoking onExpire. It
// is the one operation that does not drain first.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// DrainExpired forces an immediate drain and returns the payloads removed,
// in deadline order. Normally draining happens implicitly as a side effect
// of other operations; DrainExpired is for callers (such as the
// auto-expiring collection) that want to shrink the collection without
// performing a read.
func (c *Collection) DrainExpired() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainExpiredLocked()
}
