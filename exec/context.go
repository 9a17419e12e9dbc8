// Package exec implements the frame executor (§4.7 "Executor"): the
// per-frame replay loop over a compiled batch list, thread-local per-queue
// command recording, fence advance across frames, and the lock-guarded
// readback queue a pass's Execute body can enqueue requests onto.
package exec

// FrameContext is the concrete pass.Context handed to Update,
// ExecuteImmediate (by rendergraph's Compile), and Execute (by the executor)
// every frame. It is deliberately minimal —
// pass.Context only promises FrameIndex() — so this package can own the
// implementation without pass importing exec.
type FrameContext struct {
	frameIndex uint64
}

// NewFrameContext builds the context for one frame.
func NewFrameContext(frameIndex uint64) *FrameContext {
	return &FrameContext{frameIndex: frameIndex}
}

func (c *FrameContext) FrameIndex() uint64 { return c.frameIndex }
