package rendergraph

import (
	"github.com/gogpu/rendergraph/alias"
	"github.com/gogpu/rendergraph/hal"
)

// poolAllocator adapts a hal.Allocator's AllocateMemory call to the
// alias.Allocator interface the pool Manager drives (§4.6 "Pool
// lifecycle"). The aliasing subsystem never allocates a resource view
// itself; it only reserves the raw backing block a pool's placements are
// later carved out of via hal.Allocator.CreateAliasingResource.
type poolAllocator struct {
	alloc hal.Allocator
}

func (p *poolAllocator) Allocate(sizeBytes, alignment uint64) alias.Allocation {
	a, err := p.alloc.AllocateMemory(
		hal.MemoryDescriptor{SizeBytes: sizeBytes, Alignment: alignment},
		hal.AllocationInfo{SizeBytes: sizeBytes, Alignment: alignment},
	)
	if err != nil {
		return nil
	}
	return a
}

// Free is a no-op: the narrow §6 hal.Allocator contract exposes no
// destroy/free primitive for a raw memory block, matching hal/noop's own
// allocator, which never reclaims. A real backend would release a's bytes
// here; the Manager still tracks pending frees via DrainPendingFrees so a
// backend that does support release has somewhere to hook in.
func (p *poolAllocator) Free(a alias.Allocation) {}
