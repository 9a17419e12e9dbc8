package recorder

import (
	"math"

	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// Recorder accumulates a bytecode stream and the per-resource access
// footprint for one pass's ExecuteImmediate call.
type Recorder struct {
	builder builder

	handleIndex map[uint64]uint32 // resource global id -> index into builder.handles
	access      map[uint32]*resourceAccess

	keepAlive []*resource.Resource
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		handleIndex: make(map[uint64]uint32),
		access:      make(map[uint32]*resourceAccess),
	}
}

// PinForFrame keeps r alive for the duration of the frame the produced
// bytecode will be replayed in — used for ephemeral resources (e.g. an
// upload staging buffer) passed by value into a copy op (§4.3 "Keep-alive
// bag").
func (rec *Recorder) PinForFrame(r *resource.Resource) {
	rec.keepAlive = append(rec.keepAlive, r)
}

func (rec *Recorder) internHandle(h registry.Handle[*resource.Resource]) uint32 {
	id := h.GlobalResourceID()
	if idx, ok := rec.handleIndex[id]; ok {
		return idx
	}
	//nolint:gosec // G115: handle table never approaches 2^32 entries
	idx := uint32(len(rec.builder.handles))
	rec.builder.handles = append(rec.builder.handles, h)
	rec.handleIndex[id] = idx
	if _, ok := rec.access[idx]; !ok {
		rec.access[idx] = newResourceAccess(idx, h.NumMips(), h.ArraySize())
	}
	return idx
}

func (rec *Recorder) markAndIntern(h registry.Handle[*resource.Resource], mip, firstSlice, sliceCount uint32, state types.ResourceState) (uint32, error) {
	idx := rec.internHandle(h)
	if err := rec.access[idx].mark(mip, firstSlice, sliceCount, state); err != nil {
		return idx, err
	}
	return idx, nil
}

// CopyBufferRegion records a buffer-to-buffer copy.
func (rec *Recorder) CopyBufferRegion(src, dst registry.Handle[*resource.Resource], srcOffset, dstOffset, size uint64) error {
	if _, err := rec.markAndIntern(src, 0, 0, 1, types.ResourceState{Access: types.AccessCopySrc, Layout: types.LayoutCopySrc, Sync: types.SyncCopy}); err != nil {
		return err
	}
	dstIdx, err := rec.markAndIntern(dst, 0, 0, 1, types.ResourceState{Access: types.AccessCopyDst, Layout: types.LayoutCopyDst, Sync: types.SyncCopy})
	if err != nil {
		return err
	}
	srcIdx := rec.internHandle(src)
	rec.builder.writeOp(OpCopyBufferRegion, copyBufferRegionPayload{
		SrcHandle: srcIdx, DstHandle: dstIdx, SrcOffset: srcOffset, DstOffset: dstOffset, Size: size,
	})
	return nil
}

// CopyTextureRegion records a texture-to-texture region copy.
func (rec *Recorder) CopyTextureRegion(src, dst registry.Handle[*resource.Resource], srcMip, srcSlice, dstMip, dstSlice, x, y, z, width, height, depth uint32) error {
	if _, err := rec.markAndIntern(src, srcMip, srcSlice, 1, types.ResourceState{Access: types.AccessCopySrc, Layout: types.LayoutCopySrc, Sync: types.SyncCopy}); err != nil {
		return err
	}
	if _, err := rec.markAndIntern(dst, dstMip, dstSlice, 1, types.ResourceState{Access: types.AccessCopyDst, Layout: types.LayoutCopyDst, Sync: types.SyncCopy}); err != nil {
		return err
	}
	rec.builder.writeOp(OpCopyTextureRegion, copyTextureRegionPayload{
		SrcHandle: rec.internHandle(src), DstHandle: rec.internHandle(dst),
		SrcMip: srcMip, SrcSlice: srcSlice, DstMip: dstMip, DstSlice: dstSlice,
		X: x, Y: y, Z: z, Width: width, Height: height, Depth: depth,
	})
	return nil
}

// ClearRenderTarget records a render-target clear.
func (rec *Recorder) ClearRenderTarget(h registry.Handle[*resource.Resource], mip, slice uint32, rgba [4]float32) error {
	return rec.recordClear(OpClearRenderTarget, h, mip, slice,
		types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget},
		floatsToBits(rgba))
}

// ClearDepthStencil records a depth/stencil clear.
func (rec *Recorder) ClearDepthStencil(h registry.Handle[*resource.Resource], mip, slice uint32, depth float32, stencil uint8) error {
	return rec.recordClear(OpClearDepthStencil, h, mip, slice,
		types.ResourceState{Access: types.AccessDepthWrite, Layout: types.LayoutDepthWrite, Sync: types.SyncDepthStencil},
		[4]uint32{floatBits(depth), uint32(stencil), 0, 0})
}

// ClearUAVFloat records a float-typed UAV clear.
func (rec *Recorder) ClearUAVFloat(h registry.Handle[*resource.Resource], mip, slice uint32, value [4]float32) error {
	return rec.recordClear(OpClearUAVFloat, h, mip, slice,
		types.ResourceState{Access: types.AccessUAVWrite, Layout: types.LayoutUnorderedAccess, Sync: types.SyncComputeShading},
		floatsToBits(value))
}

// ClearUAVUint records a uint-typed UAV clear.
func (rec *Recorder) ClearUAVUint(h registry.Handle[*resource.Resource], mip, slice uint32, value [4]uint32) error {
	return rec.recordClear(OpClearUAVUint, h, mip, slice,
		types.ResourceState{Access: types.AccessUAVWrite, Layout: types.LayoutUnorderedAccess, Sync: types.SyncComputeShading},
		value)
}

func (rec *Recorder) recordClear(op Opcode, h registry.Handle[*resource.Resource], mip, slice uint32, state types.ResourceState, bits [4]uint32) error {
	idx, err := rec.markAndIntern(h, mip, slice, 1, state)
	if err != nil {
		return err
	}
	rec.builder.writeOp(op, clearPayload{Handle: idx, Mip: mip, Slice: slice, Value: bits})
	return nil
}

// CopyTextureToBuffer records a texture-subresource-to-buffer readback copy.
func (rec *Recorder) CopyTextureToBuffer(texture, buf registry.Handle[*resource.Resource], mip, slice uint32, bufferOffset uint64, width, height, depth uint32) error {
	if _, err := rec.markAndIntern(texture, mip, slice, 1, types.ResourceState{Access: types.AccessCopySrc, Layout: types.LayoutCopySrc, Sync: types.SyncCopy}); err != nil {
		return err
	}
	if _, err := rec.markAndIntern(buf, 0, 0, 1, types.ResourceState{Access: types.AccessCopyDst, Layout: types.LayoutCopyDst, Sync: types.SyncCopy}); err != nil {
		return err
	}
	rec.builder.writeOp(OpCopyTextureToBuffer, textureBufferCopyPayload{
		TextureHandle: rec.internHandle(texture), BufferHandle: rec.internHandle(buf),
		Mip: mip, Slice: slice, BufferOffset: bufferOffset, Width: width, Height: height, Depth: depth,
	})
	return nil
}

// CopyBufferToTexture records a buffer-to-texture-subresource upload copy.
func (rec *Recorder) CopyBufferToTexture(buf, texture registry.Handle[*resource.Resource], mip, slice uint32, bufferOffset uint64, width, height, depth uint32) error {
	if _, err := rec.markAndIntern(buf, 0, 0, 1, types.ResourceState{Access: types.AccessCopySrc, Layout: types.LayoutCopySrc, Sync: types.SyncCopy}); err != nil {
		return err
	}
	if _, err := rec.markAndIntern(texture, mip, slice, 1, types.ResourceState{Access: types.AccessCopyDst, Layout: types.LayoutCopyDst, Sync: types.SyncCopy}); err != nil {
		return err
	}
	rec.builder.writeOp(OpCopyBufferToTexture, textureBufferCopyPayload{
		TextureHandle: rec.internHandle(texture), BufferHandle: rec.internHandle(buf),
		Mip: mip, Slice: slice, BufferOffset: bufferOffset, Width: width, Height: height, Depth: depth,
	})
	return nil
}

// Finalize produces the recorded bytecode and the minimal, rectangle-
// compressed list of resource requirements discovered during recording.
func (rec *Recorder) Finalize() (*Bytecode, []Requirement) {
	bc := rec.builder.finish()

	var reqs []Requirement
	for idx, acc := range rec.access {
		h, ok := bc.handles[idx].(registry.Handle[*resource.Resource])
		if !ok {
			continue
		}
		for _, rng := range acc.finalize() {
			reqs = append(reqs, Requirement{Handle: h, Range: rng, State: acc.state})
		}
	}
	return bc, reqs
}

func floatsToBits(v [4]float32) [4]uint32 {
	var out [4]uint32
	for i, f := range v {
		out[i] = floatBits(f)
	}
	return out
}

func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}
