package noop

import "github.com/gogpu/rendergraph/hal"

// Allocation is the noop backend's concrete hal.Allocation. It carries
// enough bookkeeping to make aliasing visible in tests: an aliased
// resource records the backing allocation and byte offset it was placed
// at, so assertions can walk Backing chains back to the owning pool block.
type Allocation struct {
	Desc      hal.ResourceDescriptor
	SizeBytes uint64
	Offset    uint64
	Backing   *Allocation
}

// View is the noop backend's concrete hal.View.
type View struct {
	kind hal.ViewKind
}

func (v *View) Kind() hal.ViewKind { return v.kind }

// DescriptorHeap is the noop backend's concrete hal.DescriptorHeap.
type DescriptorHeap struct {
	kind     hal.DescriptorHeapKind
	capacity uint32
}

func (h *DescriptorHeap) Kind() hal.DescriptorHeapKind { return h.kind }
func (h *DescriptorHeap) Capacity() uint32             { return h.capacity }
