package registry

import (
	"sync"

	"github.com/gogpu/rendergraph/types"
)

type entry[T any] struct {
	resource   T
	present    bool
	generation uint32
	named      bool
}

// Registry is a slot table of resources of type T, addressed by stable
// types.ResourceIdentifier keys. A named identifier always interns to the
// same slot for the registry's lifetime; RegisterOrUpdate bumps that slot's
// generation on every write so handles made against a prior occupant go
// stale rather than silently resolving to the replacement.
//
// Thread-safe for concurrent use, mirroring the teacher's core.Registry.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []entry[T]
	byID  map[uint64]uint32
	free  []uint32
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{byID: make(map[uint64]uint32, 64)}
}

// InternKey returns the stable slot index for id, allocating a fresh empty
// slot the first time id is seen.
func (r *Registry[T]) InternKey(id types.ResourceIdentifier) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.internLocked(id)
}

func (r *Registry[T]) internLocked(id types.ResourceIdentifier) uint32 {
	if slot, ok := r.byID[id.Hash()]; ok {
		return slot
	}
	slot := r.allocSlotLocked()
	r.slots[slot].named = true
	r.byID[id.Hash()] = slot
	return slot
}

func (r *Registry[T]) allocSlotLocked() uint32 {
	if n := len(r.free); n > 0 {
		slot := r.free[n-1]
		r.free = r.free[:n-1]
		return slot
	}
	r.slots = append(r.slots, entry[T]{})
	//nolint:gosec // G115: slot count never approaches 2^32 in practice
	return uint32(len(r.slots) - 1)
}

// RegisterOrUpdate stores resource at id's slot and bumps the slot's
// generation, invalidating any handle resolved against the slot's previous
// occupant. globalResourceID/numMips/arraySize are stamped onto the returned
// handle so Resolve callers don't need a second lookup for them.
func (r *Registry[T]) RegisterOrUpdate(id types.ResourceIdentifier, resource T, globalResourceID uint64, numMips, arraySize uint32) Handle[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.internLocked(id)
	r.slots[slot].resource = resource
	r.slots[slot].present = true
	r.slots[slot].generation++

	return Handle[T]{
		slot:             slot,
		generation:       r.slots[slot].generation,
		globalResourceID: globalResourceID,
		numMips:          numMips,
		arraySize:        arraySize,
	}
}

// RegisterAnonymous creates a slot with no stable identifier, for resources
// that are used but never named (§4.2 "Anonymous registration"). The slot is
// returned to the free list by ReleaseAnonymous, unlike named slots.
func (r *Registry[T]) RegisterAnonymous(resource T, globalResourceID uint64, numMips, arraySize uint32) Handle[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.allocSlotLocked()
	r.slots[slot].resource = resource
	r.slots[slot].present = true
	r.slots[slot].generation = 1

	return Handle[T]{
		slot:             slot,
		generation:       1,
		globalResourceID: globalResourceID,
		numMips:          numMips,
		arraySize:        arraySize,
	}
}

// MakeHandle returns the handle for id's slot if a resource currently lives
// there, or an invalid (generation 0) handle if id has never been
// registered or currently holds no live resource.
func (r *Registry[T]) MakeHandle(id types.ResourceIdentifier, numMips, arraySize uint32) Handle[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.byID[id.Hash()]
	if !ok || !r.slots[slot].present {
		return Handle[T]{}
	}
	return Handle[T]{
		slot:       slot,
		generation: r.slots[slot].generation,
		numMips:    numMips,
		arraySize:  arraySize,
	}
}

// Resolve dereferences a handle. A stale handle — one whose generation no
// longer matches its slot's current generation, or whose slot was released —
// resolves to the zero value and false.
func (r *Registry[T]) Resolve(h Handle[T]) (T, bool) {
	if h.IsEphemeral() {
		if h.ephemeral == nil {
			var zero T
			return zero, false
		}
		return *h.ephemeral, true
	}
	if !h.IsValid() {
		var zero T
		return zero, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(h.slot) >= len(r.slots) {
		var zero T
		return zero, false
	}
	e := &r.slots[h.slot]
	if !e.present || e.generation != h.generation {
		var zero T
		return zero, false
	}
	return e.resource, true
}

// Contains reports whether h currently resolves to a live resource.
func (r *Registry[T]) Contains(h Handle[T]) bool {
	_, ok := r.Resolve(h)
	return ok
}

// Release clears id's slot without returning it to the free list — the
// identifier remains interned to the same slot index for the registry's
// lifetime so a later RegisterOrUpdate for the same id reuses it.
func (r *Registry[T]) Release(id types.ResourceIdentifier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.byID[id.Hash()]
	if !ok {
		return
	}
	var zero T
	r.slots[slot].resource = zero
	r.slots[slot].present = false
}

// ReleaseAnonymous clears and frees an anonymous handle's slot for reuse.
// Calling it on a named or ephemeral handle is a no-op.
func (r *Registry[T]) ReleaseAnonymous(h Handle[T]) {
	if h.IsEphemeral() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(h.slot) >= len(r.slots) {
		return
	}
	e := &r.slots[h.slot]
	if e.named || e.generation != h.generation {
		return
	}
	var zero T
	e.resource = zero
	e.present = false
	e.generation = 0
	r.free = append(r.free, h.slot)
}

// Len returns the number of slots currently holding a live resource.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for i := range r.slots {
		if r.slots[i].present {
			count++
		}
	}
	return count
}
