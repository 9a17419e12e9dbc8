package hal

import (
	"github.com/gogpu/rendergraph/alias"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// AllocationInfo is the device-reported size/alignment for a resource
// descriptor. It is the same shape the aliasing subsystem's candidate
// collector queries per candidate (§4.6), reused here rather than
// redefined so a Device's QueryAllocationInfo result can be handed
// straight to alias.CollectCandidates without conversion.
type AllocationInfo = alias.AllocationInfo

// Allocation is an opaque handle to a placed allocation: a standalone
// resource, a slice of a larger memory block (AllocateMemory), or a
// resource aliased onto another allocation's bytes (CreateAliasingResource).
// Concrete backends define their own underlying type; the core only ever
// passes Allocation values back into the HAL that produced them.
type Allocation = alias.Allocation

// ResourceDescriptor names a device-level resource to create. Exactly one
// of Texture or Buffer is set, mirroring resource.Resource's own
// texture-or-buffer split (§3).
type ResourceDescriptor struct {
	Name    string
	Texture *resource.TextureSpec
	Buffer  *resource.BufferSpec

	// CastableFormats lists formats the resource may be viewed as in
	// addition to its declared format, for backends that require
	// typeless/relaxed-casting resources to enumerate the cast set up
	// front (§6 "castable-format lists").
	CastableFormats []string
}

// MemoryDescriptor requests a single backing allocation sized for a pool
// of aliased resources (§4.6 "pool lifecycle").
type MemoryDescriptor struct {
	SizeBytes uint64
	Alignment uint64
}

// ShaderStage selects which pipeline stage a PushConstants call targets.
type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStagePixel
	ShaderStageCompute
)

// CopyRegion describes the origins and extent of a texture-to-texture or
// buffer-to-texture copy, in texel units.
type CopyRegion struct {
	SrcOrigin [3]uint32
	DstOrigin [3]uint32
	Extent    [3]uint32
}

// Barrier is one subresource transition a CommandList.Barriers call
// applies, built directly from a graph.Transition at execute time.
type Barrier struct {
	Target Allocation
	Range  types.SubresourceRange
	From   types.ResourceState
	To     types.ResourceState
}

// ViewKind selects which descriptor a Device.CreateView call produces.
type ViewKind uint8

const (
	ViewShaderResource ViewKind = iota
	ViewRenderTarget
	ViewDepthStencil
	ViewUnorderedAccess
	ViewConstantBuffer
)

// ViewDescriptor names the subresource range and kind of view to create
// over an Allocation.
type ViewDescriptor struct {
	Kind  ViewKind
	Range types.SubresourceRange
}

// View is an opaque created view handle, passed to the CommandList clear
// operations and to a pass body for binding.
type View interface {
	Kind() ViewKind
}

// DescriptorHeapKind identifies which descriptor table a heap backs.
type DescriptorHeapKind uint8

const (
	DescriptorHeapCBVSRVUAV DescriptorHeapKind = iota
	DescriptorHeapSampler
	DescriptorHeapRTV
	DescriptorHeapDSV
)

// DescriptorHeapDescriptor requests a fixed-capacity descriptor heap.
type DescriptorHeapDescriptor struct {
	Kind          DescriptorHeapKind
	Capacity      uint32
	ShaderVisible bool
}

// DescriptorHeap is an opaque created descriptor heap.
type DescriptorHeap interface {
	Kind() DescriptorHeapKind
	Capacity() uint32
}

// CommandAllocator backs the command lists the executor records into for
// one queue's frame. A thread owns at most one open allocator per queue at
// a time (§5 "thread-local per-queue context").
type CommandAllocator interface {
	// Reset recycles the allocator's storage once every CommandList it
	// produced has finished executing on the GPU.
	Reset() error
}

// Timeline is a monotonically-increasing GPU fence. The batcher's
// Signal/Wait fence values (graph.Signal, graph.Wait) are Timeline values.
type Timeline interface {
	// GetCompletedValue returns the highest value the GPU has signaled so
	// far; it never blocks.
	GetCompletedValue() uint64
}

// Queue submits recorded command lists and signals or waits on a Timeline,
// the only cross-queue ordering primitive the scheduler assumes (§5
// "ordering is given solely by explicit waits on timeline fences").
type Queue interface {
	Submit(lists []CommandList) error
	Signal(tl Timeline, value uint64) error
	Wait(tl Timeline, value uint64) error
}

// CommandList records one queue's portion of a frame. It is single-use:
// once submitted via Queue.Submit, it must not be recorded into again
// until its allocator has been Reset.
type CommandList interface {
	Begin() error
	End() error

	// Barriers applies one batch phase's transitions atomically relative
	// to this queue's command stream (§5 "per-resource state transitions
	// ... are serial").
	Barriers(batch []Barrier)

	CopyBufferRegion(dst, src Allocation, dstOffset, srcOffset, sizeBytes uint64)
	CopyTextureRegion(dst, src Allocation, dstSub, srcSub types.SubresourceRange, region CopyRegion)

	ClearRenderTargetView(view View, color [4]float32)
	ClearDepthStencilView(view View, depth float32, stencil uint8)
	ClearUavFloat(view View, values [4]float32)
	ClearUavUint(view View, values [4]uint32)

	PushConstants(stage ShaderStage, space, slot uint32, offset, count uint32, src []byte)
}

// Allocator places resources in device memory and serves AllocateMemory
// requests for a whole aliasing pool's backing block (§4.6). It satisfies
// alias.Allocator once wrapped: a pool's single AllocateMemory call backs
// every CreateAliasingResource placement within it.
type Allocator interface {
	// CreateResource allocates a standalone, non-aliased resource.
	CreateResource(desc ResourceDescriptor) (Allocation, error)

	// CreateAliasingResource places desc at offsetBytes within backing's
	// memory, without allocating new device memory.
	CreateAliasingResource(backing Allocation, offsetBytes uint64, desc ResourceDescriptor) (Allocation, error)

	// AllocateMemory reserves a raw block sized per info, with no resource
	// view over it yet — the backing allocation for an aliasing pool.
	AllocateMemory(desc MemoryDescriptor, info AllocationInfo) (Allocation, error)

	// BuildStatsString renders a human-readable allocator state dump for
	// debug logging.
	BuildStatsString() string
}

// Device creates the per-queue recording objects, descriptor heaps, and
// allocator the executor and aliasing subsystem need, and answers
// allocation-info queries (§6 "Device").
type Device interface {
	CreateCommandAllocator(queue types.QueueKind) (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator) (CommandList, error)
	CreateQueue(kind types.QueueKind) (Queue, error)
	CreateTimeline() (Timeline, error)
	CreateDescriptorHeap(desc DescriptorHeapDescriptor) (DescriptorHeap, error)

	QueryAllocationInfo(desc ResourceDescriptor) AllocationInfo
	CreateView(alloc Allocation, desc ViewDescriptor) (View, error)
	CreateAllocator() (Allocator, error)
}
