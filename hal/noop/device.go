package noop

import (
	"fmt"
	"sync"

	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/types"
)

// texelGranularity and its alignment stand in for a real device's reported
// per-subresource footprint; this package tracks no pixel formats or
// texture dimensions (§3's Resource doesn't either), so a fixed per-mip,
// per-array-slice size is the best a noop device can report.
const (
	texelGranularity = 64 * 1024
	textureAlignment = 64 * 1024
	bufferAlignment  = 256
)

func alignUp(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// Device is the reference no-op implementation of hal.Device.
type Device struct{}

func NewDevice() *Device { return &Device{} }

func (d *Device) CreateCommandAllocator(types.QueueKind) (hal.CommandAllocator, error) {
	return &CommandAllocator{}, nil
}

func (d *Device) CreateCommandList(hal.CommandAllocator) (hal.CommandList, error) {
	return &CommandList{}, nil
}

func (d *Device) CreateQueue(kind types.QueueKind) (hal.Queue, error) {
	return &Queue{Kind: kind}, nil
}

func (d *Device) CreateTimeline() (hal.Timeline, error) {
	return &Timeline{}, nil
}

func (d *Device) CreateDescriptorHeap(desc hal.DescriptorHeapDescriptor) (hal.DescriptorHeap, error) {
	return &DescriptorHeap{kind: desc.Kind, capacity: desc.Capacity}, nil
}

func (d *Device) QueryAllocationInfo(desc hal.ResourceDescriptor) hal.AllocationInfo {
	switch {
	case desc.Buffer != nil:
		return hal.AllocationInfo{
			SizeBytes: alignUp(desc.Buffer.ByteSize, bufferAlignment),
			Alignment: bufferAlignment,
		}
	case desc.Texture != nil:
		subresources := uint64(desc.Texture.MipLevels) * uint64(desc.Texture.ArraySize)
		if subresources == 0 {
			subresources = 1
		}
		return hal.AllocationInfo{
			SizeBytes: alignUp(subresources*texelGranularity, textureAlignment),
			Alignment: textureAlignment,
		}
	default:
		return hal.AllocationInfo{}
	}
}

func (d *Device) CreateView(alloc hal.Allocation, desc hal.ViewDescriptor) (hal.View, error) {
	return &View{kind: desc.Kind}, nil
}

func (d *Device) CreateAllocator() (hal.Allocator, error) {
	return &Allocator{device: d}, nil
}

// Allocator is the reference no-op implementation of hal.Allocator. It
// never touches real memory; it just hands out Allocation values sized by
// the Device's allocation-info query, and validates that aliased
// placements fit within their backing allocation.
type Allocator struct {
	device *Device

	mu            sync.Mutex
	resourceCount int
	totalBytes    uint64
}

func (a *Allocator) CreateResource(desc hal.ResourceDescriptor) (hal.Allocation, error) {
	info := a.device.QueryAllocationInfo(desc)
	a.mu.Lock()
	a.resourceCount++
	a.totalBytes += info.SizeBytes
	a.mu.Unlock()
	return &Allocation{Desc: desc, SizeBytes: info.SizeBytes}, nil
}

func (a *Allocator) CreateAliasingResource(backing hal.Allocation, offsetBytes uint64, desc hal.ResourceDescriptor) (hal.Allocation, error) {
	back, ok := backing.(*Allocation)
	if !ok {
		return nil, fmt.Errorf("noop: backing allocation of unexpected type %T", backing)
	}
	info := a.device.QueryAllocationInfo(desc)
	if offsetBytes+info.SizeBytes > back.SizeBytes {
		return nil, hal.ErrDeviceOutOfMemory
	}
	a.mu.Lock()
	a.resourceCount++
	a.mu.Unlock()
	return &Allocation{Desc: desc, SizeBytes: info.SizeBytes, Offset: offsetBytes, Backing: back}, nil
}

func (a *Allocator) AllocateMemory(desc hal.MemoryDescriptor, info hal.AllocationInfo) (hal.Allocation, error) {
	size := desc.SizeBytes
	if info.SizeBytes > size {
		size = info.SizeBytes
	}
	a.mu.Lock()
	a.totalBytes += size
	a.mu.Unlock()
	return &Allocation{SizeBytes: size}, nil
}

func (a *Allocator) BuildStatsString() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("noop allocator: %d resources, %d bytes allocated", a.resourceCount, a.totalBytes)
}
