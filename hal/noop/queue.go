package noop

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/types"
)

// Timeline is a noop monotonic fence. Signal advances it immediately —
// there is no asynchronous device work to wait on.
type Timeline struct {
	completed atomic.Uint64
}

func (t *Timeline) GetCompletedValue() uint64 { return t.completed.Load() }

func (t *Timeline) advance(value uint64) {
	for {
		cur := t.completed.Load()
		if value <= cur {
			return
		}
		if t.completed.CompareAndSwap(cur, value) {
			return
		}
	}
}

// Queue is a noop command queue: Submit always succeeds and does nothing,
// Signal advances the target Timeline synchronously, and Wait always
// succeeds since nothing is ever actually in flight.
type Queue struct {
	Kind     types.QueueKind
	Recorded []string
}

func (q *Queue) Submit(lists []hal.CommandList) error {
	q.Recorded = append(q.Recorded, "Submit")
	return nil
}

func (q *Queue) Signal(tl hal.Timeline, value uint64) error {
	t, ok := tl.(*Timeline)
	if !ok {
		return fmt.Errorf("noop: Signal on timeline of unexpected type %T", tl)
	}
	t.advance(value)
	q.Recorded = append(q.Recorded, "Signal")
	return nil
}

func (q *Queue) Wait(tl hal.Timeline, value uint64) error {
	q.Recorded = append(q.Recorded, "Wait")
	return nil
}
