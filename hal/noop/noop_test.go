package noop_test

import (
	"testing"

	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/hal/noop"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

func TestDevice_QueryAllocationInfo_Buffer(t *testing.T) {
	d := noop.NewDevice()
	info := d.QueryAllocationInfo(hal.ResourceDescriptor{
		Buffer: &resource.BufferSpec{ByteSize: 100},
	})
	if info.SizeBytes < 100 {
		t.Fatalf("SizeBytes = %d, want >= 100", info.SizeBytes)
	}
	if info.SizeBytes%info.Alignment != 0 {
		t.Fatalf("SizeBytes %d not a multiple of alignment %d", info.SizeBytes, info.Alignment)
	}
}

func TestDevice_QueryAllocationInfo_TextureScalesWithSubresources(t *testing.T) {
	d := noop.NewDevice()
	one := d.QueryAllocationInfo(hal.ResourceDescriptor{
		Texture: &resource.TextureSpec{MipLevels: 1, ArraySize: 1},
	})
	many := d.QueryAllocationInfo(hal.ResourceDescriptor{
		Texture: &resource.TextureSpec{MipLevels: 4, ArraySize: 2},
	})
	if many.SizeBytes <= one.SizeBytes {
		t.Fatalf("expected more mips/slices to report a larger size: %d vs %d", many.SizeBytes, one.SizeBytes)
	}
}

func TestAllocator_CreateAliasingResource_RejectsOverflow(t *testing.T) {
	d := noop.NewDevice()
	allocator, err := d.CreateAllocator()
	if err != nil {
		t.Fatalf("CreateAllocator: %v", err)
	}
	backing, err := allocator.AllocateMemory(hal.MemoryDescriptor{SizeBytes: 256}, hal.AllocationInfo{})
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	_, err = allocator.CreateAliasingResource(backing, 0, hal.ResourceDescriptor{
		Buffer: &resource.BufferSpec{ByteSize: 4096},
	})
	if err == nil {
		t.Fatalf("expected an error placing a resource larger than its backing allocation")
	}
}

func TestAllocator_CreateAliasingResource_FitsWithinBacking(t *testing.T) {
	d := noop.NewDevice()
	allocator, _ := d.CreateAllocator()
	backing, _ := allocator.AllocateMemory(hal.MemoryDescriptor{SizeBytes: 1 << 20}, hal.AllocationInfo{})
	placed, err := allocator.CreateAliasingResource(backing, 4096, hal.ResourceDescriptor{
		Buffer: &resource.BufferSpec{ByteSize: 1024},
	})
	if err != nil {
		t.Fatalf("CreateAliasingResource: %v", err)
	}
	alloc, ok := placed.(*noop.Allocation)
	if !ok {
		t.Fatalf("placed allocation has unexpected type %T", placed)
	}
	if alloc.Offset != 4096 || alloc.Backing == nil {
		t.Fatalf("got offset=%d backing=%v, want offset=4096 and a non-nil backing", alloc.Offset, alloc.Backing)
	}
}

func TestQueue_SignalAdvancesTimelineMonotonically(t *testing.T) {
	d := noop.NewDevice()
	q, _ := d.CreateQueue(types.QueueGraphics)
	tl, _ := d.CreateTimeline()

	if err := q.Signal(tl, 5); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if got := tl.GetCompletedValue(); got != 5 {
		t.Fatalf("GetCompletedValue() = %d, want 5", got)
	}
	if err := q.Signal(tl, 3); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if got := tl.GetCompletedValue(); got != 5 {
		t.Fatalf("a lower Signal value should not move the timeline backwards, got %d", got)
	}
}

func TestCommandList_RecordsBarrierBatches(t *testing.T) {
	d := noop.NewDevice()
	alloc, _ := d.CreateCommandAllocator(types.QueueGraphics)
	list, _ := d.CreateCommandList(alloc)

	if err := list.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	batch := []hal.Barrier{{From: types.CommonState(), To: types.ResourceState{Access: types.AccessShaderResource}}}
	list.Barriers(batch)
	if err := list.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	cl, ok := list.(*noop.CommandList)
	if !ok {
		t.Fatalf("list has unexpected type %T", list)
	}
	if len(cl.BarrierBatches) != 1 || len(cl.BarrierBatches[0]) != 1 {
		t.Fatalf("expected one recorded barrier batch of one transition, got %+v", cl.BarrierBatches)
	}
	want := []string{"Begin", "Barriers", "End"}
	if len(cl.Recorded) != len(want) {
		t.Fatalf("Recorded = %v, want %v", cl.Recorded, want)
	}
	for i := range want {
		if cl.Recorded[i] != want[i] {
			t.Fatalf("Recorded[%d] = %q, want %q", i, cl.Recorded[i], want[i])
		}
	}
}
