package exec

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// assumedTexelBytes stands in for the per-format texel size a real device
// would know from its texture descriptor. The §6 contract carries no pixel
// format, so a texture<->buffer copy's byte extent is estimated from this
// constant rather than a real footprint query (mirrors the same
// simplification hal/noop.Device.QueryAllocationInfo already makes).
const assumedTexelBytes = 4

// replayOrder is the fixed per-batch subphase order §4.7 specifies: copy
// drains first, then compute, then graphics.
var replayOrder = []types.QueueKind{types.QueueCopy, types.QueueCompute, types.QueueGraphics}

// LastTouch records which queue and batch most recently touched a resource
// within one executed frame.
type LastTouch struct {
	Queue      types.QueueKind
	BatchIndex int
}

// FrameReport summarizes one Execute call for the next frame's compile
// step to carry forward (§5 cross-frame bookkeeping).
type FrameReport struct {
	FrameIndex  uint64
	LastTouches map[uint64]LastTouch
}

// Executor replays a compiled batch list against a Device (§4.7).
type Executor struct {
	device          hal.Device
	useAsyncCompute bool
	stats           StatisticsSink
	readback        *ReadbackQueue

	queues      map[types.QueueKind]*queueContext
	fenceOffset map[types.QueueKind]uint64

	scratch hal.Allocator
}

// NewExecutor creates queues, timelines, and recording threads for all
// three logical queues. useAsyncCompute controls whether compute work
// folds onto the graphics queue (§6 "UseAsyncCompute").
func NewExecutor(device hal.Device, useAsyncCompute bool, stats StatisticsSink, readback *ReadbackQueue) (*Executor, error) {
	if stats == nil {
		stats = NoopStatisticsSink{}
	}
	if readback == nil {
		readback = NewReadbackQueue()
	}
	queues := make(map[types.QueueKind]*queueContext, len(replayOrder))
	for _, k := range replayOrder {
		qc, err := newQueueContext(device, k)
		if err != nil {
			for _, existing := range queues {
				existing.Stop()
			}
			return nil, err
		}
		queues[k] = qc
	}
	return &Executor{
		device:          device,
		useAsyncCompute: useAsyncCompute,
		stats:           stats,
		readback:        readback,
		queues:          queues,
		fenceOffset:     make(map[types.QueueKind]uint64, len(replayOrder)),
	}, nil
}

// Close releases every queue's recording thread.
func (e *Executor) Close() {
	for _, qc := range e.queues {
		qc.Stop()
	}
}

// effectiveQueue resolves a logical queue to the queue context it actually
// records against — compute folds onto graphics when async compute is off.
func (e *Executor) effectiveQueue(k types.QueueKind) *queueContext {
	return e.queues[types.EffectiveQueue(k, e.useAsyncCompute)]
}

// otherQueueForSync mirrors graph.otherQueueFor: graphics pairs with
// compute, and every other queue (compute and copy) pairs with graphics, so
// no queue ever waits on copy, while a copy queue can wait on graphics.
func otherQueueForSync(q types.QueueKind) types.QueueKind {
	if q == types.QueueGraphics {
		return types.QueueCompute
	}
	return types.QueueGraphics
}

// Execute replays batches in order, one frame's worth of work, against
// resolver for handle-to-allocation and tracker lookups.
func (e *Executor) Execute(frameIndex uint64, batches []*graph.PassBatch, resolver Resolver) (*FrameReport, error) {
	frameCtx := NewFrameContext(frameIndex)

	for _, qk := range replayOrder {
		if err := e.queues[qk].beginFrame(e.device, frameIndex); err != nil {
			return nil, err
		}
	}

	report := &FrameReport{FrameIndex: frameIndex, LastTouches: make(map[uint64]LastTouch)}

	for _, batch := range batches {
		for _, qk := range replayOrder {
			if err := e.runQueuePhase(frameCtx, batch, qk, resolver, report); err != nil {
				return nil, err
			}
		}
	}

	if err := e.serviceReadbacks(resolver); err != nil {
		return nil, err
	}

	for _, qk := range replayOrder {
		if err := e.queues[qk].endFrame(); err != nil {
			return nil, err
		}
	}

	numBatches := uint64(len(batches))
	for _, qk := range replayOrder {
		e.fenceOffset[qk] += 2 * numBatches
	}

	return report, nil
}

// runQueuePhase replays one logical queue's slice of one batch in the
// fixed subphase order: pre-transitions, waits, signal-after-transitions,
// passes, post-transitions, signal-after-completion — each guarded by its
// own has-anything check (§4.7).
func (e *Executor) runQueuePhase(ctx *FrameContext, batch *graph.PassBatch, qk types.QueueKind, resolver Resolver, report *FrameReport) error {
	passes := batch.Passes[qk]
	before := batch.BeforeTransitions[qk]
	after := batch.AfterTransitions[qk]

	var waits []graph.Wait
	for _, w := range batch.Waits {
		if w.Queue == qk {
			waits = append(waits, w)
		}
	}

	var signalsAfterTransitions, signalsAfterCompletion []graph.Signal
	for _, s := range batch.Signals {
		if s.Queue != qk {
			continue
		}
		switch s.Point {
		case graph.AfterTransitions:
			signalsAfterTransitions = append(signalsAfterTransitions, s)
		case graph.AfterCompletion:
			signalsAfterCompletion = append(signalsAfterCompletion, s)
		}
	}

	if len(passes) == 0 && len(before) == 0 && len(after) == 0 &&
		len(waits) == 0 && len(signalsAfterTransitions) == 0 && len(signalsAfterCompletion) == 0 {
		return nil
	}

	qc := e.effectiveQueue(qk)

	if len(before) > 0 {
		if err := e.applyTransitions(qc, resolver, before); err != nil {
			return fmt.Errorf("batch %d queue %s pre-transitions: %w", batch.Index, qk, err)
		}
	}
	if len(waits) > 0 {
		if err := e.runWaits(qk, waits); err != nil {
			return fmt.Errorf("batch %d queue %s waits: %w", batch.Index, qk, err)
		}
	}
	if len(signalsAfterTransitions) > 0 {
		if err := e.runSignals(qk, signalsAfterTransitions); err != nil {
			return fmt.Errorf("batch %d queue %s signal-after-transitions: %w", batch.Index, qk, err)
		}
	}
	for _, n := range passes {
		if err := e.runPass(ctx, qc, qk, n, resolver); err != nil {
			return fmt.Errorf("batch %d queue %s pass %q: %w", batch.Index, qk, n.Pass.Name(), err)
		}
		for _, t := range n.Touched {
			report.LastTouches[t.ID] = LastTouch{Queue: qk, BatchIndex: batch.Index}
		}
	}
	if len(after) > 0 {
		if err := e.applyTransitions(qc, resolver, after); err != nil {
			return fmt.Errorf("batch %d queue %s post-transitions: %w", batch.Index, qk, err)
		}
	}
	if len(signalsAfterCompletion) > 0 {
		if err := e.runSignals(qk, signalsAfterCompletion); err != nil {
			return fmt.Errorf("batch %d queue %s signal-after-completion: %w", batch.Index, qk, err)
		}
	}
	return nil
}

// applyTransitions drives each planned Transition's Range/To through the
// resource's live runtime tracker (which may differ from the compile
// tracker) and issues the resulting barriers as a single batch call.
func (e *Executor) applyTransitions(qc *queueContext, resolver Resolver, planned []graph.Transition) error {
	var barriers []hal.Barrier
	for _, t := range planned {
		id := t.Handle.GlobalResourceID()
		tracker, ok := resolver.RuntimeTracker(id)
		if !ok {
			return fmt.Errorf("%w: resource %d", ErrNoRuntimeTracker, id)
		}
		alloc, ok := resolver.Allocation(t.Handle)
		if !ok {
			return fmt.Errorf("%w: resource %d", ErrStaleHandle, id)
		}
		for _, rt := range tracker.ApplyRange(t.Range, t.To) {
			barriers = append(barriers, hal.Barrier{
				Target: alloc,
				Range:  rt.Range,
				From:   types.ResourceState{Access: rt.PrevAccess, Layout: rt.PrevLayout, Sync: rt.PrevSync},
				To:     types.ResourceState{Access: rt.NewAccess, Layout: rt.NewLayout, Sync: rt.NewSync},
			})
		}
	}
	if len(barriers) == 0 {
		return nil
	}
	qc.record(func(list hal.CommandList) { list.Barriers(barriers) })
	return nil
}

// runWaits makes qk's queue wait on the other queue's timeline reaching
// each wait's absolute fence value.
func (e *Executor) runWaits(qk types.QueueKind, waits []graph.Wait) error {
	qc := e.effectiveQueue(qk)
	for _, w := range waits {
		src := otherQueueForSync(w.Queue)
		srcQC := e.effectiveQueue(src)
		absolute := e.fenceOffset[src] + w.Fence
		if err := qc.wait(srcQC.timeline, absolute); err != nil {
			return err
		}
	}
	return nil
}

// runSignals raises qk's own timeline to each signal's absolute fence value.
func (e *Executor) runSignals(qk types.QueueKind, signals []graph.Signal) error {
	qc := e.effectiveQueue(qk)
	for _, s := range signals {
		absolute := e.fenceOffset[qk] + s.Fence
		if err := qc.signal(absolute); err != nil {
			return err
		}
	}
	return nil
}

// runPass plays back one node's immediate bytecode, its retained Execute
// body, or both, bracketed by statistics begin/end (§4.7 "Pass execution").
func (e *Executor) runPass(ctx *FrameContext, qc *queueContext, qk types.QueueKind, n *graph.Node, resolver Resolver) error {
	mask := n.Pass.RunMask()
	if mask == pass.RunNone {
		return nil
	}

	name := n.Pass.Name()
	e.stats.BeginPass(qk, name)
	defer e.stats.EndPass(qk, name)

	if mask.HasImmediate() {
		bc, ok := resolver.Bytecode(n)
		if ok {
			var replayErr error
			qc.record(func(list hal.CommandList) {
				replayErr = e.replayBytecode(list, bc, resolver)
			})
			if replayErr != nil {
				return fmt.Errorf("replay immediate bytecode: %w", replayErr)
			}
		}
	}
	if mask.HasRetained() {
		fences, err := n.Pass.Execute(ctx)
		if err != nil {
			return fmt.Errorf("retained execute: %w", err)
		}
		for _, f := range fences {
			fqc := e.effectiveQueue(f.Queue)
			if err := fqc.signal(e.fenceOffset[f.Queue] + f.Value); err != nil {
				return fmt.Errorf("pass-requested fence signal: %w", err)
			}
		}
	}
	return nil
}

// replayBytecode walks bc's opcode stream and issues the corresponding
// hal.CommandList calls, resolving the stream's handle-table indices to
// live device allocations through resolver.
func (e *Executor) replayBytecode(list hal.CommandList, bc *recorder.Bytecode, resolver Resolver) error {
	r := recorder.NewReader(bc)
	for !r.Done() {
		op, err := r.ReadOp()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := e.replayOp(list, bc, r, op, resolver); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) replayOp(list hal.CommandList, bc *recorder.Bytecode, r *recorder.Reader, op recorder.Opcode, resolver Resolver) error {
	switch op {
	case recorder.OpCopyBufferRegion:
		srcIdx, dstIdx, srcOffset, dstOffset, size, err := r.ReadCopyBufferRegion()
		if err != nil {
			return err
		}
		src, err := e.resolveHandleIndex(bc, resolver, srcIdx)
		if err != nil {
			return err
		}
		dst, err := e.resolveHandleIndex(bc, resolver, dstIdx)
		if err != nil {
			return err
		}
		list.CopyBufferRegion(dst, src, dstOffset, srcOffset, size)

	case recorder.OpCopyTextureRegion:
		p, err := r.ReadCopyTextureRegion()
		if err != nil {
			return err
		}
		src, err := e.resolveHandleIndex(bc, resolver, p.SrcHandle)
		if err != nil {
			return err
		}
		dst, err := e.resolveHandleIndex(bc, resolver, p.DstHandle)
		if err != nil {
			return err
		}
		srcSub := types.SubresourceRange{FirstMip: p.SrcMip, MipCount: 1, FirstSlice: p.SrcSlice, SliceCount: 1}
		dstSub := types.SubresourceRange{FirstMip: p.DstMip, MipCount: 1, FirstSlice: p.DstSlice, SliceCount: 1}
		region := hal.CopyRegion{
			SrcOrigin: [3]uint32{p.X, p.Y, p.Z},
			DstOrigin: [3]uint32{p.X, p.Y, p.Z},
			Extent:    [3]uint32{p.Width, p.Height, p.Depth},
		}
		list.CopyTextureRegion(dst, src, dstSub, srcSub, region)

	case recorder.OpClearRenderTarget, recorder.OpClearDepthStencil, recorder.OpClearUAVFloat, recorder.OpClearUAVUint:
		return e.replayClear(list, bc, r, op, resolver)

	case recorder.OpCopyTextureToBuffer:
		p, err := r.ReadTextureBufferCopy()
		if err != nil {
			return err
		}
		tex, err := e.resolveHandleIndex(bc, resolver, p.TextureHandle)
		if err != nil {
			return err
		}
		buf, err := e.resolveHandleIndex(bc, resolver, p.BufferHandle)
		if err != nil {
			return err
		}
		size := uint64(p.Width) * uint64(p.Height) * uint64(p.Depth) * assumedTexelBytes
		list.CopyBufferRegion(buf, tex, p.BufferOffset, 0, size)

	case recorder.OpCopyBufferToTexture:
		p, err := r.ReadTextureBufferCopy()
		if err != nil {
			return err
		}
		tex, err := e.resolveHandleIndex(bc, resolver, p.TextureHandle)
		if err != nil {
			return err
		}
		buf, err := e.resolveHandleIndex(bc, resolver, p.BufferHandle)
		if err != nil {
			return err
		}
		size := uint64(p.Width) * uint64(p.Height) * uint64(p.Depth) * assumedTexelBytes
		list.CopyBufferRegion(tex, buf, 0, p.BufferOffset, size)

	default:
		return fmt.Errorf("recorder: unhandled opcode %s", op)
	}
	return nil
}

func (e *Executor) replayClear(list hal.CommandList, bc *recorder.Bytecode, r *recorder.Reader, op recorder.Opcode, resolver Resolver) error {
	p, err := r.ReadClear()
	if err != nil {
		return err
	}
	alloc, err := e.resolveHandleIndex(bc, resolver, p.Handle)
	if err != nil {
		return err
	}

	var kind hal.ViewKind
	switch op {
	case recorder.OpClearRenderTarget:
		kind = hal.ViewRenderTarget
	case recorder.OpClearDepthStencil:
		kind = hal.ViewDepthStencil
	default:
		kind = hal.ViewUnorderedAccess
	}
	view, err := e.device.CreateView(alloc, hal.ViewDescriptor{
		Kind:  kind,
		Range: types.SubresourceRange{FirstMip: p.Mip, MipCount: 1, FirstSlice: p.Slice, SliceCount: 1},
	})
	if err != nil {
		return fmt.Errorf("create view for clear: %w", err)
	}

	switch op {
	case recorder.OpClearRenderTarget:
		list.ClearRenderTargetView(view, bitsToFloats(p.Value))
	case recorder.OpClearDepthStencil:
		list.ClearDepthStencilView(view, math.Float32frombits(p.Value[0]), uint8(p.Value[1]))
	case recorder.OpClearUAVFloat:
		list.ClearUavFloat(view, bitsToFloats(p.Value))
	case recorder.OpClearUAVUint:
		list.ClearUavUint(view, p.Value)
	}
	return nil
}

func (e *Executor) resolveHandleIndex(bc *recorder.Bytecode, resolver Resolver, idx uint32) (hal.Allocation, error) {
	h, ok := bc.HandleAt(idx).(registry.Handle[*resource.Resource])
	if !ok {
		return nil, fmt.Errorf("recorder: handle table entry %d is not a resource handle", idx)
	}
	alloc, ok := resolver.Allocation(h)
	if !ok {
		return nil, fmt.Errorf("%w: resource %d", ErrStaleHandle, h.GlobalResourceID())
	}
	return alloc, nil
}

// serviceReadbacks drains any requests enqueued during the frame and
// issues their copy on the copy queue into a scratch host-staging
// allocation. The noop backend (and this narrow contract generally) has no
// map/read primitive of its own, so Fulfill is handed a zero-filled
// placeholder of the requested size — a real Allocator's staging buffer
// would supply the mapped bytes here instead.
func (e *Executor) serviceReadbacks(resolver Resolver) error {
	reqs := e.readback.Drain()
	if len(reqs) == 0 {
		return nil
	}
	if e.scratch == nil {
		scratch, err := e.device.CreateAllocator()
		if err != nil {
			return fmt.Errorf("exec: create scratch allocator for readback: %w", err)
		}
		e.scratch = scratch
	}

	copyQC := e.effectiveQueue(types.QueueCopy)
	for _, req := range reqs {
		src, ok := resolver.Allocation(req.Handle)
		if !ok {
			return fmt.Errorf("%w: readback resource %d", ErrStaleHandle, req.Handle.GlobalResourceID())
		}
		staging, err := e.scratch.CreateResource(hal.ResourceDescriptor{
			Name:   "readback-staging",
			Buffer: &resource.BufferSpec{ByteSize: req.Size, Heap: resource.HeapReadback},
		})
		if err != nil {
			return fmt.Errorf("exec: allocate readback staging buffer: %w", err)
		}
		copyQC.record(func(list hal.CommandList) {
			list.CopyBufferRegion(staging, src, 0, req.Offset, req.Size)
		})
		e.readback.Fulfill(req.Token, make([]byte, req.Size))
	}
	return nil
}

func bitsToFloats(v [4]uint32) [4]float32 {
	var out [4]float32
	for i, b := range v {
		out[i] = math.Float32frombits(b)
	}
	return out
}
