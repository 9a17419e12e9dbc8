package recorder_test

import (
	"errors"
	"testing"

	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
)

func handleFor(r *resource.Resource) registry.Handle[*resource.Resource] {
	reg := registry.NewRegistry[*resource.Resource]()
	return reg.RegisterAnonymous(r, r.ID(), r.MipCount(), r.ArraySize())
}

func TestRecorder_CopyBufferRegion_ProducesRequirements(t *testing.T) {
	src := resource.NewBuffer("Staging", resource.BufferSpec{ByteSize: 256})
	dst := resource.NewBuffer("Dest", resource.BufferSpec{ByteSize: 256})

	rec := recorder.New()
	if err := rec.CopyBufferRegion(handleFor(src), handleFor(dst), 0, 0, 256); err != nil {
		t.Fatalf("CopyBufferRegion() error = %v", err)
	}

	bc, reqs := rec.Finalize()
	if bc == nil {
		t.Fatalf("expected non-nil bytecode")
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements (src + dst), got %d", len(reqs))
	}

	r := recorder.NewReader(bc)
	op, err := r.ReadOp()
	if err != nil {
		t.Fatalf("ReadOp() error = %v", err)
	}
	if op != recorder.OpCopyBufferRegion {
		t.Fatalf("ReadOp() = %v, want OpCopyBufferRegion", op)
	}
	srcIdx, dstIdx, srcOff, dstOff, size, err := r.ReadCopyBufferRegion()
	if err != nil {
		t.Fatalf("ReadCopyBufferRegion() error = %v", err)
	}
	if srcIdx == dstIdx {
		t.Fatalf("src and dst handle indices must differ")
	}
	if srcOff != 0 || dstOff != 0 || size != 256 {
		t.Fatalf("unexpected payload: off=%d/%d size=%d", srcOff, dstOff, size)
	}
	if !r.Done() {
		t.Fatalf("expected stream fully consumed")
	}
}

func TestRecorder_ConflictingStateFails(t *testing.T) {
	buf := resource.NewBuffer("Shared", resource.BufferSpec{ByteSize: 64})
	h := handleFor(buf)

	rec := recorder.New()
	// First op marks buf as a copy source.
	other := handleFor(resource.NewBuffer("Other", resource.BufferSpec{ByteSize: 64}))
	if err := rec.CopyBufferRegion(h, other, 0, 0, 64); err != nil {
		t.Fatalf("first CopyBufferRegion() error = %v", err)
	}
	// Second op marks the same buf as a copy destination — conflicting state.
	if err := rec.CopyBufferRegion(other, h, 0, 0, 64); !errors.Is(err, recorder.ErrConflictingState) {
		t.Fatalf("expected ErrConflictingState, got %v", err)
	}
}

func TestRecorder_ClearRenderTarget_RoundTrips(t *testing.T) {
	tex := resource.NewTexture("GBuffer.Albedo", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	tex.Materialize()
	h := handleFor(tex)

	rec := recorder.New()
	if err := rec.ClearRenderTarget(h, 0, 0, [4]float32{1, 0, 0, 1}); err != nil {
		t.Fatalf("ClearRenderTarget() error = %v", err)
	}

	bc, reqs := rec.Finalize()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}

	r := recorder.NewReader(bc)
	op, err := r.ReadOp()
	if err != nil || op != recorder.OpClearRenderTarget {
		t.Fatalf("ReadOp() = (%v, %v), want (OpClearRenderTarget, nil)", op, err)
	}
	p, err := r.ReadClear()
	if err != nil {
		t.Fatalf("ReadClear() error = %v", err)
	}
	if p.Mip != 0 || p.Slice != 0 {
		t.Fatalf("unexpected clear payload coordinates: mip=%d slice=%d", p.Mip, p.Slice)
	}
}

func TestRecorder_RectangleCompression_MergesAcrossMips(t *testing.T) {
	tex := resource.NewTexture("GBuffer.Normals", resource.TextureSpec{MipLevels: 2, ArraySize: 2})
	tex.Materialize()
	h := handleFor(tex)

	rec := recorder.New()
	// Touch both slices at both mips with the same state — should compress
	// to a single rectangle covering mips [0,2) x slices [0,2).
	for mip := uint32(0); mip < 2; mip++ {
		for slice := uint32(0); slice < 2; slice++ {
			if err := rec.ClearRenderTarget(h, mip, slice, [4]float32{}); err != nil {
				t.Fatalf("ClearRenderTarget(mip=%d, slice=%d) error = %v", mip, slice, err)
			}
		}
	}

	_, reqs := rec.Finalize()
	if len(reqs) != 1 {
		t.Fatalf("expected rectangle compression to yield 1 requirement, got %d: %+v", len(reqs), reqs)
	}
	rng := reqs[0].Range
	if rng.FirstMip != 0 || rng.MipCount != 2 || rng.FirstSlice != 0 || rng.SliceCount != 2 {
		t.Fatalf("unexpected merged range: %+v", rng)
	}
}

func TestRecorder_PinForFrame_DoesNotAffectRequirements(t *testing.T) {
	staging := resource.NewBuffer("Upload", resource.BufferSpec{ByteSize: 64, Heap: resource.HeapUpload})
	rec := recorder.New()
	rec.PinForFrame(staging)

	_, reqs := rec.Finalize()
	if len(reqs) != 0 {
		t.Fatalf("pinning alone should not create a requirement, got %d", len(reqs))
	}
}
