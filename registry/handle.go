// Package registry implements the resource registry (§4.2): a generation-
// stamped slot table that gives every registered resource a handle able to
// survive replacement while reliably detecting staleness.
//
// The design generalizes the teacher's core.Registry[T, M] (core/registry.go,
// core/identity.go, core/storage.go) — an epoch-checked, index-addressed slot
// table keyed by a numeric ID — to a table keyed by a dotted
// types.ResourceIdentifier, since render graph resources are named by path
// rather than allocated fresh each time.
package registry

// ephemeralSlot marks a Handle that bypasses the registry's slot table
// entirely and carries its resource directly — used for resources whose
// lifetime is pinned elsewhere, such as an upload staging buffer discarded
// after a single copy.
const ephemeralSlot = ^uint32(0)

// Handle is a generation-stamped reference to a resource of type T. Resolving
// a handle whose generation no longer matches its slot's current generation
// yields (zero value, false): the resource behind the handle was replaced or
// removed since the handle was made.
type Handle[T any] struct {
	slot       uint32
	generation uint32
	ephemeral  *T

	globalResourceID uint64
	numMips          uint32
	arraySize        uint32
}

// IsEphemeral reports whether h bypasses the registry's slot table.
func (h Handle[T]) IsEphemeral() bool { return h.slot == ephemeralSlot }

// IsValid reports whether h could possibly resolve to something — a zero
// Handle (generation 0, no ephemeral pointer) is always invalid, the
// §4.2 "MakeHandle(unknown id)" result.
func (h Handle[T]) IsValid() bool { return h.generation != 0 || h.ephemeral != nil }

// GlobalResourceID returns the process-wide resource id the handle was
// stamped with at creation time.
func (h Handle[T]) GlobalResourceID() uint64 { return h.globalResourceID }

// NumMips returns the mip count stamped onto the handle at creation time.
func (h Handle[T]) NumMips() uint32 { return h.numMips }

// ArraySize returns the array-slice count stamped onto the handle at
// creation time.
func (h Handle[T]) ArraySize() uint32 { return h.arraySize }

// NewEphemeralHandle builds a handle that carries resource directly,
// bypassing the registry on Resolve.
func NewEphemeralHandle[T any](resource *T, globalResourceID uint64, numMips, arraySize uint32) Handle[T] {
	return Handle[T]{
		slot:             ephemeralSlot,
		generation:       1,
		ephemeral:        resource,
		globalResourceID: globalResourceID,
		numMips:          numMips,
		arraySize:        arraySize,
	}
}
