// Package resource implements the graph-tracked resource abstraction (§3
// "Resource"): textures, buffers, and dynamic wrappers that forward to a
// swappable inner resource.
//
// Grounded on the teacher's resource types (core/device.go's Buffer/Texture
// fields before the WebGPU-specific portions were stripped) generalized to
// the scheduler's own concerns — mip/array shape, an aliasing allowance
// flag, and a per-resource state tracker — rather than WebGPU pipeline
// state.
package resource

import (
	"sync/atomic"

	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

var nextGlobalID uint64

// allocGlobalID hands out the process-wide unique resource id (§3: "globally
// unique 64-bit id, process-wide atomic counter").
func allocGlobalID() uint64 {
	return atomic.AddUint64(&nextGlobalID, 1)
}

// Kind identifies which concrete variant a Resource holds.
type Kind uint8

const (
	KindTexture Kind = iota
	KindBuffer
	KindDynamicWrapper
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindBuffer:
		return "buffer"
	case KindDynamicWrapper:
		return "dynamic-wrapper"
	default:
		return "unknown"
	}
}

// HeapType is the memory heap a buffer resource is allocated from.
type HeapType uint8

const (
	HeapDefault HeapType = iota
	HeapUpload
	HeapReadback
)

// PoolHint names a manually-assigned aliasing pool, overriding the
// aliasing subsystem's auto-assignment (§4.6 "manualPoolAssigned").
type PoolHint string

// TextureSpec carries the texture-specific fields of a Resource.
type TextureSpec struct {
	MipLevels  uint32
	ArraySize  uint32
	Cubemap    bool
	ClearValue [4]float32
	AllowAlias bool
	PoolHint   PoolHint
}

// BufferSpec carries the buffer-specific fields of a Resource.
type BufferSpec struct {
	ByteSize   uint64
	Heap       HeapType
	UAV        bool
	AllowAlias bool
}

// Resource is one graph-tracked GPU resource. A dynamic-wrapper resource
// forwards every query — id, mip/array shape, tracker, alias allowance — to
// a swappable inner resource, so rebinding the wrapper changes what every
// existing handle to it observes (§3 "dynamic-wrapper").
type Resource struct {
	id          uint64
	displayName string
	kind        Kind

	texture *TextureSpec
	buffer  *BufferSpec
	inner   *Resource

	materialized bool
	tracker      *track.SymbolicTracker
}

// NewTexture creates a texture resource. Its state tracker is not created
// until Materialize is called — per §3, a texture's tracker "exists only
// when materialized", since its mip/array shape may still change up to
// that point via the aliasing subsystem's placement.
func NewTexture(displayName string, spec TextureSpec) *Resource {
	specCopy := spec
	return &Resource{
		id:          allocGlobalID(),
		displayName: displayName,
		kind:        KindTexture,
		texture:     &specCopy,
	}
}

// NewBuffer creates a buffer resource. Its state tracker is created
// immediately — per §3, a non-texture's tracker is "always present" because
// a buffer has no subresources and so nothing about its tracked state can
// change before first use.
func NewBuffer(displayName string, spec BufferSpec) *Resource {
	specCopy := spec
	r := &Resource{
		id:          allocGlobalID(),
		displayName: displayName,
		kind:        KindBuffer,
		buffer:      &specCopy,
	}
	r.tracker = track.NewSymbolicTracker(1, 1, types.CommonState())
	return r
}

// NewDynamicWrapper creates a wrapper resource forwarding to inner.
func NewDynamicWrapper(displayName string, inner *Resource) *Resource {
	return &Resource{
		displayName: displayName,
		kind:        KindDynamicWrapper,
		inner:       inner,
	}
}

// Rebind swaps a dynamic wrapper's inner resource. Every subsequent query
// through the wrapper — including ID — observes the new inner resource.
// Calling Rebind on a non-wrapper resource panics; that is a programming
// error, not a recoverable condition.
func (r *Resource) Rebind(inner *Resource) {
	if r.kind != KindDynamicWrapper {
		panic("resource: Rebind called on a non-dynamic-wrapper resource")
	}
	r.inner = inner
}

// ID returns the resource's global id, forwarding through any dynamic
// wrapper to the current inner resource's id.
func (r *Resource) ID() uint64 {
	if r.kind == KindDynamicWrapper {
		return r.inner.ID()
	}
	return r.id
}

// DisplayName returns the resource's human-readable name, as given at
// construction (not forwarded through a wrapper — the wrapper's own name is
// for debugging the forwarding relationship itself).
func (r *Resource) DisplayName() string { return r.displayName }

// Kind reports which concrete variant this resource is.
func (r *Resource) Kind() Kind { return r.kind }

// MipCount returns the resource's mip level count (1 for buffers).
func (r *Resource) MipCount() uint32 {
	switch r.kind {
	case KindTexture:
		return r.texture.MipLevels
	case KindDynamicWrapper:
		return r.inner.MipCount()
	default:
		return 1
	}
}

// ArraySize returns the resource's array-slice count (1 for buffers).
func (r *Resource) ArraySize() uint32 {
	switch r.kind {
	case KindTexture:
		return r.texture.ArraySize
	case KindDynamicWrapper:
		return r.inner.ArraySize()
	default:
		return 1
	}
}

// AllowAlias reports whether this resource may be considered by the
// aliasing subsystem.
func (r *Resource) AllowAlias() bool {
	switch r.kind {
	case KindTexture:
		return r.texture.AllowAlias
	case KindBuffer:
		return r.buffer.AllowAlias
	case KindDynamicWrapper:
		return r.inner.AllowAlias()
	default:
		return false
	}
}

// PoolHint returns the manually-assigned pool name, if any, for a texture
// resource. Returns "" for resources with no hint or non-texture kinds.
func (r *Resource) PoolHint() PoolHint {
	switch r.kind {
	case KindTexture:
		return r.texture.PoolHint
	case KindDynamicWrapper:
		return r.inner.PoolHint()
	default:
		return ""
	}
}

// Texture returns the texture-specific fields and true, or (nil, false) if
// this resource (after following any wrapper) is not a texture.
func (r *Resource) Texture() (*TextureSpec, bool) {
	switch r.kind {
	case KindTexture:
		return r.texture, true
	case KindDynamicWrapper:
		return r.inner.Texture()
	default:
		return nil, false
	}
}

// Buffer returns the buffer-specific fields and true, or (nil, false) if
// this resource (after following any wrapper) is not a buffer.
func (r *Resource) Buffer() (*BufferSpec, bool) {
	switch r.kind {
	case KindBuffer:
		return r.buffer, true
	case KindDynamicWrapper:
		return r.inner.Buffer()
	default:
		return nil, false
	}
}

// Materialize allocates this texture's state tracker against its current
// mip/array shape. A no-op for buffers (always materialized) and for an
// already-materialized texture.
func (r *Resource) Materialize() {
	switch r.kind {
	case KindTexture:
		if r.materialized {
			return
		}
		r.tracker = track.NewSymbolicTracker(r.texture.MipLevels, r.texture.ArraySize, types.CommonState())
		r.materialized = true
	case KindDynamicWrapper:
		r.inner.Materialize()
	}
}

// Dematerialize discards this texture's state tracker, per the aliasing
// subsystem's idle-dematerialization policy (§4.6). A no-op for buffers.
func (r *Resource) Dematerialize() {
	switch r.kind {
	case KindTexture:
		r.tracker = nil
		r.materialized = false
	case KindDynamicWrapper:
		r.inner.Dematerialize()
	}
}

// IsMaterialized reports whether this resource currently has a live state
// tracker. Always true for buffers and dynamic wrappers over a materialized
// inner resource.
func (r *Resource) IsMaterialized() bool {
	switch r.kind {
	case KindTexture:
		return r.materialized
	case KindDynamicWrapper:
		return r.inner.IsMaterialized()
	default:
		return true
	}
}

// Tracker returns the resource's state tracker and true, or (nil, false) if
// the resource (a texture) is not currently materialized.
func (r *Resource) Tracker() (*track.SymbolicTracker, bool) {
	if r.kind == KindDynamicWrapper {
		return r.inner.Tracker()
	}
	return r.tracker, r.tracker != nil
}
