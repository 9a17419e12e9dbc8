package exec

import (
	"fmt"

	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/internal/thread"
	"github.com/gogpu/rendergraph/types"
)

// queueContext is the thread-local per-queue command-recording context
// (§5 "The Executor uses a thread-local per-queue context for command
// recording: each thread owns at most one open command list per queue,
// tagged with a frame epoch."). All calls that touch allocator/list state
// run on th, so a backend whose command lists are bound to one OS thread
// (true of several real APIs) sees every op for this queue from the same
// goroutine.
type queueContext struct {
	kind types.QueueKind
	th   *thread.Thread

	queue    hal.Queue
	timeline hal.Timeline

	allocator  hal.CommandAllocator
	list       hal.CommandList
	frameEpoch uint64
	open       bool
}

func newQueueContext(device hal.Device, kind types.QueueKind) (*queueContext, error) {
	queue, err := device.CreateQueue(kind)
	if err != nil {
		return nil, fmt.Errorf("exec: create queue %s: %w", kind, err)
	}
	timeline, err := device.CreateTimeline()
	if err != nil {
		return nil, fmt.Errorf("exec: create timeline for queue %s: %w", kind, err)
	}
	return &queueContext{kind: kind, th: thread.New(), queue: queue, timeline: timeline}, nil
}

// beginFrame opens a fresh command list tagged with frameEpoch, on a newly
// created and reset command allocator.
func (qc *queueContext) beginFrame(device hal.Device, frameEpoch uint64) error {
	var outerErr error
	qc.th.CallVoid(func() {
		alloc, err := device.CreateCommandAllocator(qc.kind)
		if err != nil {
			outerErr = fmt.Errorf("exec: create command allocator for queue %s: %w", qc.kind, err)
			return
		}
		if err := alloc.Reset(); err != nil {
			outerErr = fmt.Errorf("exec: reset command allocator for queue %s: %w", qc.kind, err)
			return
		}
		list, err := device.CreateCommandList(alloc)
		if err != nil {
			outerErr = fmt.Errorf("exec: create command list for queue %s: %w", qc.kind, err)
			return
		}
		if err := list.Begin(); err != nil {
			outerErr = fmt.Errorf("exec: begin command list for queue %s: %w", qc.kind, err)
			return
		}
		qc.allocator = alloc
		qc.list = list
		qc.frameEpoch = frameEpoch
		qc.open = true
	})
	return outerErr
}

// record runs f against the queue's open command list on its owning
// thread. f must not be called if the queue has nothing to do this frame.
func (qc *queueContext) record(f func(hal.CommandList)) {
	qc.th.CallVoid(func() {
		f(qc.list)
	})
}

// endFrame closes and submits the queue's command list for this frame.
func (qc *queueContext) endFrame() error {
	var outerErr error
	qc.th.CallVoid(func() {
		if !qc.open {
			return
		}
		if err := qc.list.End(); err != nil {
			outerErr = fmt.Errorf("exec: end command list for queue %s: %w", qc.kind, err)
			return
		}
		if err := qc.queue.Submit([]hal.CommandList{qc.list}); err != nil {
			outerErr = fmt.Errorf("exec: submit command list for queue %s: %w", qc.kind, err)
			return
		}
		qc.list = nil
		qc.open = false
	})
	return outerErr
}

// wait blocks the queue's future submissions on tl reaching value.
func (qc *queueContext) wait(tl hal.Timeline, value uint64) error {
	var outerErr error
	qc.th.CallVoid(func() {
		if err := qc.queue.Wait(tl, value); err != nil {
			outerErr = fmt.Errorf("exec: queue %s wait: %w", qc.kind, err)
		}
	})
	return outerErr
}

// signal raises the queue's own timeline to value once prior work drains.
func (qc *queueContext) signal(value uint64) error {
	var outerErr error
	qc.th.CallVoid(func() {
		if err := qc.queue.Signal(qc.timeline, value); err != nil {
			outerErr = fmt.Errorf("exec: queue %s signal: %w", qc.kind, err)
		}
	})
	return outerErr
}

// Stop releases the queue's dedicated recording thread.
func (qc *queueContext) Stop() {
	qc.th.Stop()
}
