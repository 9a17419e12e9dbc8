package alias

import (
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/types"
)

// Owner is the most recent batch known to have used a byte range within a
// pool — the bookkeeping §4.6 "Cross-queue alias fences" walks to find
// cross-queue hazards between two resources that shared overlapping bytes
// at different points in the frame.
type Owner struct {
	ResourceID  uint64
	StartByte   uint64
	EndByte     uint64
	BatchIndex  int
	UsesRender  bool
	UsesCompute bool
}

func overlaps(a, b Owner) bool {
	return a.StartByte < b.EndByte && b.StartByte < a.EndByte
}

// ownerQueue picks the queue an Owner's batch used for cross-queue
// synchronization purposes — render if it touched render, else compute.
func ownerQueue(o Owner) types.QueueKind {
	if o.UsesRender {
		return types.QueueGraphics
	}
	return types.QueueCompute
}

// ApplyQueueSynchronization walks batches in order; for each aliased
// resource's placement used in a batch, it checks every previous owner
// whose byte range overlaps the current placement. One last-owners list is
// shared by all pools and Owner carries no pool, so byte ranges are compared
// across pools as well as within one.
// Where the previous owner's queue usage crosses the current batch's
// (render vs. compute), it marks the previous owner's batch with an
// AfterCompletion signal and adds a BeforeTransitions wait to the current
// batch, then replaces the previous owners list with the current one
// (§4.6 "Cross-queue alias fences").
func ApplyQueueSynchronization(batches []*graph.PassBatch, placementsByBatch map[int][]Owner) {
	var lastOwners []Owner

	for _, b := range batches {
		current := placementsByBatch[b.Index]
		if len(current) == 0 {
			continue
		}

		for _, cur := range current {
			curQueue := ownerQueue(cur)
			for _, prev := range lastOwners {
				if prev.ResourceID == cur.ResourceID {
					continue
				}
				if !overlaps(prev, cur) {
					continue
				}
				crosses := (prev.UsesRender && cur.UsesCompute) || (prev.UsesCompute && cur.UsesRender)
				if !crosses {
					continue
				}
				prevBatch := findBatch(batches, prev.BatchIndex)
				if prevBatch == nil {
					continue
				}
				prevQueue := ownerQueue(prev)
				fence := prevBatch.SignalFences[prevQueue][graph.AfterCompletion]
				prevBatch.Signals = append(prevBatch.Signals, graph.Signal{
					Queue: prevQueue, Point: graph.AfterCompletion, Fence: fence,
				})
				b.Waits = append(b.Waits, graph.Wait{
					Queue: curQueue, Point: graph.BeforeTransitions, Fence: fence,
				})
			}
		}

		lastOwners = current
	}
}

func findBatch(batches []*graph.PassBatch, index int) *graph.PassBatch {
	for _, b := range batches {
		if b.Index == index {
			return b
		}
	}
	return nil
}
