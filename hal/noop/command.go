package noop

import (
	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/types"
)

// CommandAllocator is the noop backend's command allocator. It holds no
// real GPU storage, so Reset is always safe to call.
type CommandAllocator struct{}

func (*CommandAllocator) Reset() error { return nil }

// CommandList records every call it receives into Recorded (by op name)
// and BarrierBatches (the full transition batches), so tests can assert
// on what the executor asked a queue to do without a real device to
// observe.
type CommandList struct {
	Recorded       []string
	BarrierBatches [][]hal.Barrier

	began, ended bool
}

func (c *CommandList) Begin() error {
	c.began = true
	c.Recorded = append(c.Recorded, "Begin")
	return nil
}

func (c *CommandList) End() error {
	c.ended = true
	c.Recorded = append(c.Recorded, "End")
	return nil
}

func (c *CommandList) Barriers(batch []hal.Barrier) {
	c.BarrierBatches = append(c.BarrierBatches, batch)
	c.Recorded = append(c.Recorded, "Barriers")
}

func (c *CommandList) CopyBufferRegion(dst, src hal.Allocation, dstOffset, srcOffset, sizeBytes uint64) {
	c.Recorded = append(c.Recorded, "CopyBufferRegion")
}

func (c *CommandList) CopyTextureRegion(dst, src hal.Allocation, dstSub, srcSub types.SubresourceRange, region hal.CopyRegion) {
	c.Recorded = append(c.Recorded, "CopyTextureRegion")
}

func (c *CommandList) ClearRenderTargetView(v hal.View, color [4]float32) {
	c.Recorded = append(c.Recorded, "ClearRenderTargetView")
}

func (c *CommandList) ClearDepthStencilView(v hal.View, depth float32, stencil uint8) {
	c.Recorded = append(c.Recorded, "ClearDepthStencilView")
}

func (c *CommandList) ClearUavFloat(v hal.View, values [4]float32) {
	c.Recorded = append(c.Recorded, "ClearUavFloat")
}

func (c *CommandList) ClearUavUint(v hal.View, values [4]uint32) {
	c.Recorded = append(c.Recorded, "ClearUavUint")
}

func (c *CommandList) PushConstants(stage hal.ShaderStage, space, slot uint32, offset, count uint32, src []byte) {
	c.Recorded = append(c.Recorded, "PushConstants")
}
