// Package registry implements an instance-attribute registry: a way to
// associate arbitrary values with a live object without extending its type
// and without keeping it reachable through the registry itself.
//
// Entries are keyed by the instance's pointer identity, not by the instance
// value, so the registry never holds a strong reference to the instance.
// runtime.SetFinalizer is armed on first registration for each instance and
// clears the entry (invoking any OnCollect hooks) once the instance becomes
// unreachable and is garbage collected.
package registry

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/corehost/taskrun/internal/sentinel"
)

// ErrNotReferenceType marks an instance that cannot carry a weak identity key
// (anything that isn't a pointer).
const ErrNotReferenceType = sentinel.Error("registry: instance must be a pointer")

// ErrInvalidAttr marks an (inst, attr) pair that cannot be used as a registry
// key: a nil attr, or attr aliasing inst by reference.
const ErrInvalidAttr = sentinel.Error("registry: attr must be non-nil and distinct from inst")

type innerEntry struct {
	mu        sync.Mutex
	attrs     map[any]any
	onCollect []func()
}

// Registry is a weak instance-attribute map. The zero value is not usable;
// construct with New.
type Registry struct {
	mu    sync.Mutex
	outer map[uintptr]*innerEntry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{outer: make(map[uintptr]*innerEntry)}
}

// keyOf derives a non-owning identity key for inst. Only pointers are
// accepted: runtime.SetFinalizer, which armFinalizer relies on, accepts no
// other kind.
func keyOf(inst any) (uintptr, error) {
	if inst == nil {
		return 0, fmt.Errorf("registry key: %w", ErrNotReferenceType)
	}
	v := reflect.ValueOf(inst)
	switch v.Kind() {
	case reflect.Ptr:
		return v.Pointer(), nil
	default:
		return 0, fmt.Errorf("registry key: %w", ErrNotReferenceType)
	}
}

// validateAttr rejects a nil attr and an attr that aliases inst by reference
// (same pointer, channel, map, or function value), per the registry's
// invariant that an instance cannot be registered as its own attribute key.
func validateAttr(inst, attr any) error {
	if attr == nil {
		return fmt.Errorf("registry key: %w", ErrInvalidAttr)
	}
	iv := reflect.ValueOf(inst)
	av := reflect.ValueOf(attr)
	switch iv.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Chan, reflect.Map, reflect.Func:
		if av.Kind() == iv.Kind() && av.Pointer() == iv.Pointer() {
			return fmt.Errorf("registry key: %w", ErrInvalidAttr)
		}
	}
	return nil
}

// entryFor returns the inner entry for inst, creating and arming its
// finalizer on first use.
func (r *Registry) entryFor(inst any) (*innerEntry, uintptr, error) {
	key, err := keyOf(inst)
	if err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.outer[key]
	if !ok {
		e = &innerEntry{attrs: make(map[any]any)}
		r.outer[key] = e
		r.armFinalizer(inst, key)
	}
	return e, key, nil
}

// armFinalizer registers a finalizer on inst that removes its entry from the
// registry and invokes every OnCollect hook registered against it. The
// finalizer closes over key, not inst, so it never keeps inst reachable.
//
// runtime.SetFinalizer (rather than Go 1.24's generic weak.Pointer[T] plus
// runtime.AddCleanup) is used deliberately: inst arrives here as an any with
// a dynamic concrete type, and the generic cleanup API requires a static
// type parameter at the call site, which this registry cannot provide.
func (r *Registry) armFinalizer(inst any, key uintptr) {
	runtime.SetFinalizer(inst, func(any) {
		r.mu.Lock()
		e, ok := r.outer[key]
		delete(r.outer, key)
		r.mu.Unlock()
		if !ok {
			return
		}
		e.mu.Lock()
		hooks := e.onCollect
		e.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	})
}

// Contains reports whether attr is registered against inst.
func (r *Registry) Contains(inst, attr any) (bool, error) {
	key, err := keyOf(inst)
	if err != nil {
		return false, err
	}
	if err := validateAttr(inst, attr); err != nil {
		return false, err
	}
	r.mu.Lock()
	e, ok := r.outer[key]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok = e.attrs[attr]
	return ok, nil
}

// Add registers value under (inst, attr), overwriting any prior value, and
// returns the value that was previously registered, if any.
func (r *Registry) Add(inst, attr, value any) (any, error) {
	if err := validateAttr(inst, attr); err != nil {
		return nil, err
	}
	e, _, err := r.entryFor(inst)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.attrs[attr]
	e.attrs[attr] = value
	return old, nil
}

// CheckAndAdd atomically registers value under (inst, attr) only if no value
// is already registered there, returning true if it performed the
// registration and false if an entry already existed.
func (r *Registry) CheckAndAdd(inst, attr, value any) (bool, error) {
	if err := validateAttr(inst, attr); err != nil {
		return false, err
	}
	e, _, err := r.entryFor(inst)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.attrs[attr]; exists {
		return false, nil
	}
	e.attrs[attr] = value
	return true, nil
}

// Remove deletes attr from inst's entry, returning the value that was
// registered, if any.
func (r *Registry) Remove(inst, attr any) (any, error) {
	key, err := keyOf(inst)
	if err != nil {
		return nil, err
	}
	if err := validateAttr(inst, attr); err != nil {
		return nil, err
	}
	r.mu.Lock()
	e, ok := r.outer[key]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	old, existed := e.attrs[attr]
	if existed {
		delete(e.attrs, attr)
	}
	return old, nil
}

// OnCollect registers fn to run when inst becomes unreachable and is
// collected. Multiple hooks may be registered against the same instance;
// they run in registration order. fn must not retain inst.
func (r *Registry) OnCollect(inst any, fn func()) error {
	e, _, err := r.entryFor(inst)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.onCollect = append(e.onCollect, fn)
	e.mu.Unlock()
	return nil
}

// Size returns the number of live instances currently tracked.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outer)
}
