package graph

import (
	"sort"

	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

// SignalPoint is where in a batch's lifetime a queue's fence is signaled
// (§4.5 "Apply synchronization").
type SignalPoint uint8

const (
	AfterTransitions SignalPoint = iota
	AfterCompletion
)

// WaitPoint is where in a batch's lifetime a queue waits on another
// queue's fence.
type WaitPoint uint8

const (
	BeforeTransitions WaitPoint = iota
	BeforeExecution
)

// Transition is a barrier the batcher has placed on a queue's transition
// list, derived from a compile-tracker state change.
type Transition struct {
	Handle registry.Handle[*resource.Resource]
	Range  types.SubresourceRange
	From   types.ResourceState
	To     types.ResourceState
}

// Wait is a fence wait a queue must perform before proceeding past Point.
type Wait struct {
	Queue types.QueueKind
	Point WaitPoint
	Fence uint64
}

// Signal is a fence signal a queue raises after reaching Point.
type Signal struct {
	Queue types.QueueKind
	Point SignalPoint
	Fence uint64
}

// PassBatch is one group of passes admitted together: the unit of
// cross-queue synchronization the executor replays (§4.5 "Batching loop").
type PassBatch struct {
	Index int

	Passes map[types.QueueKind][]*Node

	BeforeTransitions map[types.QueueKind][]Transition
	AfterTransitions  map[types.QueueKind][]Transition

	SignalFences map[types.QueueKind]map[SignalPoint]uint64

	Waits   []Wait
	Signals []Signal

	AllResources                    map[uint64]bool
	InternallyTransitionedResources map[uint64]bool
	UAVByQueue                      map[types.QueueKind]map[uint64]bool

	// EstablishedState is the state this batch has already committed a
	// resource to, as of the most recent requirement processed for it —
	// a second, differently-identitied requirement on the same resource
	// within one batch cannot be satisfied without a second barrier, which
	// batches do not support (§4.5 admission test, "state differs from
	// the batch's tracker").
	EstablishedState map[uint64]types.ResourceState
}

func newBatch(index int, fenceCounters map[types.QueueKind]*uint64) *PassBatch {
	b := &PassBatch{
		Index:                           index,
		Passes:                          make(map[types.QueueKind][]*Node),
		BeforeTransitions:               make(map[types.QueueKind][]Transition),
		AfterTransitions:                make(map[types.QueueKind][]Transition),
		SignalFences:                    make(map[types.QueueKind]map[SignalPoint]uint64),
		AllResources:                    make(map[uint64]bool),
		InternallyTransitionedResources: make(map[uint64]bool),
		UAVByQueue:                      make(map[types.QueueKind]map[uint64]bool),
		EstablishedState:                make(map[uint64]types.ResourceState),
	}
	for _, q := range allQueues {
		*fenceCounters[q]++
		b.SignalFences[q] = map[SignalPoint]uint64{
			AfterTransitions: *fenceCounters[q],
			AfterCompletion:  *fenceCounters[q] + 1,
		}
		*fenceCounters[q]++
		b.UAVByQueue[q] = make(map[uint64]bool)
	}
	return b
}

var allQueues = []types.QueueKind{types.QueueGraphics, types.QueueCompute, types.QueueCopy}

// Batcher runs the §4.5 batching loop over a built Graph, producing an
// ordered list of PassBatch.
type Batcher struct {
	g *Graph

	compileTrackers map[uint64]*track.SymbolicTracker
	fenceCounters   map[types.QueueKind]*uint64

	// lastQueueTouch[id][queue] = batch index queue last transitioned,
	// produced, or used resource id — used to place cross-queue waits.
	lastQueueTouch map[uint64]map[types.QueueKind]int

	// batches holds every batch closed so far, indexed by its Index field,
	// so commit can reach back and add a signal to an older, already-
	// closed batch (§4.5 step 6 "Else" case).
	batches []*PassBatch
}

// NewBatcher creates a Batcher over g. trackers supplies the live compile
// tracker for each resource id referenced by the graph (callers own these;
// the batcher mutates them as it commits passes).
func NewBatcher(g *Graph, trackers map[uint64]*track.SymbolicTracker) *Batcher {
	fc := make(map[types.QueueKind]*uint64, len(allQueues))
	for _, q := range allQueues {
		v := uint64(0)
		fc[q] = &v
	}
	return &Batcher{
		g:               g,
		compileTrackers: trackers,
		fenceCounters:   fc,
		lastQueueTouch:  make(map[uint64]map[types.QueueKind]int),
	}
}

// Run executes the full batching loop and returns the ordered batches.
func (bt *Batcher) Run() []*PassBatch {
	remaining := make(map[int]bool, len(bt.g.Nodes))
	indegree := make([]int, len(bt.g.Nodes))
	for i := range bt.g.Nodes {
		remaining[i] = true
		indegree[i] = bt.g.Indegree(i)
	}

	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	bt.batches = nil
	rejectedForBatch := make(map[int]bool)

	cur := newBatch(0, bt.fenceCounters)

	release := func(from int) {
		for _, to := range bt.g.Successors(from) {
			if !remaining[to] {
				continue
			}
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	for len(remaining) > 0 {
		sort.Ints(ready)

		var candidates []int
		for _, idx := range ready {
			if !rejectedForBatch[idx] {
				candidates = append(candidates, idx)
			}
		}

		chosen := -1
		bestScore := 0.0
		for _, idx := range candidates {
			n := bt.g.Nodes[idx]
			if bt.needsNewBatch(cur, n) {
				rejectedForBatch[idx] = true
				continue
			}
			if bt.forbiddenComputeAfterGraphics(cur, n) {
				rejectedForBatch[idx] = true
				continue
			}
			score := bt.score(cur, n)
			if chosen == -1 || score > bestScore {
				chosen = idx
				bestScore = score
			}
		}

		if chosen == -1 {
			if len(cur.Passes) == 0 && len(candidates) > 0 {
				// Force-admit the head to avoid deadlock (§4.5).
				chosen = candidates[0]
			} else {
				bt.batches = append(bt.batches, cur)
				cur = newBatch(len(bt.batches), bt.fenceCounters)
				rejectedForBatch = make(map[int]bool)
				continue
			}
		}

		bt.commit(cur, bt.g.Nodes[chosen])

		newReady := ready[:0]
		for _, idx := range ready {
			if idx != chosen {
				newReady = append(newReady, idx)
			}
		}
		ready = newReady
		delete(remaining, chosen)
		release(chosen)
	}

	if len(cur.Passes) > 0 {
		bt.batches = append(bt.batches, cur)
	}

	stripRedundantWaits(bt.batches)
	return bt.batches
}

// needsNewBatch is the §4.5 admission test.
func (bt *Batcher) needsNewBatch(b *PassBatch, n *Node) bool {
	for _, it := range n.InternalTransitions {
		if b.AllResources[it.Handle.GlobalResourceID()] {
			return true
		}
	}
	for _, req := range n.Requirements {
		id := req.Handle.GlobalResourceID()
		if b.InternallyTransitionedResources[id] {
			return true
		}
		if established, ok := b.EstablishedState[id]; ok && !established.EqualIdentity(req.State) {
			return true
		}
		if req.State.Access&(types.AccessUAVRead|types.AccessUAVWrite) != 0 {
			for q, set := range b.UAVByQueue {
				if q != n.Queue && set[id] {
					return true
				}
			}
		}
	}
	return false
}

// forbiddenComputeAfterGraphics rejects a compute-kind candidate with a
// predecessor already committed to the current batch on the graphics
// queue (§4.5 "forbidden Render→Compute intra-batch").
func (bt *Batcher) forbiddenComputeAfterGraphics(b *PassBatch, n *Node) bool {
	if n.Queue != types.QueueCompute {
		return false
	}
	predecessors := make(map[int]bool)
	for i := range bt.g.Nodes {
		for _, s := range bt.g.Successors(i) {
			if s == n.Index {
				predecessors[i] = true
			}
		}
	}
	for _, gnode := range b.Passes[types.QueueGraphics] {
		if predecessors[gnode.Index] {
			return true
		}
	}
	return false
}

// score implements §4.5's candidate scoring heuristic.
func (bt *Batcher) score(b *PassBatch, n *Node) float64 {
	reuse, fresh := 0, 0
	for _, t := range n.Touched {
		if b.AllResources[t.ID] {
			reuse++
		} else {
			fresh++
		}
	}
	secondQueue := 0.0
	if len(b.Passes) > 0 {
		if _, already := b.Passes[n.Queue]; !already {
			secondQueue = 1
		}
	}
	const epsilon = 1e-6
	return 3*float64(reuse) - float64(fresh) + 2*secondQueue + 0.05*float64(bt.g.Criticality(n.Index)) + epsilon*(-float64(n.Index))
}

// commit implements CommitPassToBatch's six numbered steps.
func (bt *Batcher) commit(b *PassBatch, n *Node) {
	// 1. ProcessResourceRequirements.
	for _, req := range n.Requirements {
		id := req.Handle.GlobalResourceID()
		b.EstablishedState[id] = req.State
		tr, ok := bt.compileTrackers[id]
		if !ok {
			continue
		}
		for _, rt := range tr.ApplyRange(req.Range, req.State) {
			transition := Transition{
				Handle: req.Handle,
				Range:  rt.Range,
				From:   types.ResourceState{Access: rt.PrevAccess, Layout: rt.PrevLayout, Sync: rt.PrevSync},
				To:     types.ResourceState{Access: rt.NewAccess, Layout: rt.NewLayout, Sync: rt.NewSync},
			}
			if rt.PrevSync.HasNonCompute() && n.Queue == types.QueueCompute {
				// Heavy sync belongs on the graphics queue's AfterPasses
				// transitions of the last batch where graphics touched
				// it, not necessarily the current (compute) batch.
				target := bt.batchForQueueTouch(b, id, types.QueueGraphics)
				target.AfterTransitions[types.QueueGraphics] = append(target.AfterTransitions[types.QueueGraphics], transition)
			} else {
				b.BeforeTransitions[n.Queue] = append(b.BeforeTransitions[n.Queue], transition)
			}
		}
	}

	// 2. Append the pass to batch.passes[queue].
	b.Passes[n.Queue] = append(b.Passes[n.Queue], n)

	// 3. Apply internal transitions (no barriers emitted; implicit inside
	// the pass body), and mark internally-transitioned.
	for _, it := range n.InternalTransitions {
		id := it.Handle.GlobalResourceID()
		if tr, ok := bt.compileTrackers[id]; ok {
			tr.ApplyRange(it.Range, it.ExitState)
		}
		b.InternallyTransitionedResources[id] = true
	}

	// 4. Update allResources and per-queue last-usage bookkeeping.
	for _, t := range n.Touched {
		b.AllResources[t.ID] = true
		if bt.lastQueueTouch[t.ID] == nil {
			bt.lastQueueTouch[t.ID] = make(map[types.QueueKind]int)
		}
		bt.lastQueueTouch[t.ID][n.Queue] = b.Index
	}

	// 5. Update per-queue UAV sets.
	for _, req := range n.Requirements {
		if req.State.Access&(types.AccessUAVRead|types.AccessUAVWrite) != 0 {
			b.UAVByQueue[n.Queue][req.Handle.GlobalResourceID()] = true
		}
	}

	// 6. Apply synchronization: find the other queue's most recent touch
	// of any resource this pass transitioned, and place a wait/signal pair.
	other := otherQueueFor(n.Queue)
	seenBatch := -1
	for _, req := range n.Requirements {
		if touches, ok := bt.lastQueueTouch[req.Handle.GlobalResourceID()]; ok {
			if bi, ok := touches[other]; ok && bi > seenBatch {
				seenBatch = bi
			}
		}
	}
	if seenBatch < 0 {
		return
	}
	if seenBatch == b.Index {
		fence := b.SignalFences[other][AfterTransitions]
		b.Signals = append(b.Signals, Signal{Queue: other, Point: AfterTransitions, Fence: fence})
		b.Waits = append(b.Waits, Wait{Queue: n.Queue, Point: BeforeExecution, Fence: fence})
		return
	}
	// seenBatch is an already-closed batch: signal AfterCompletion there,
	// wait BeforeTransitions here, using that batch's own preassigned
	// AfterCompletion fence value (§4.5 step 6 "Else").
	if seenBatch >= 0 && seenBatch < len(bt.batches) {
		older := bt.batches[seenBatch]
		fence := older.SignalFences[other][AfterCompletion]
		older.Signals = append(older.Signals, Signal{Queue: other, Point: AfterCompletion, Fence: fence})
		b.Waits = append(b.Waits, Wait{Queue: n.Queue, Point: BeforeTransitions, Fence: fence})
	}
}

// batchForQueueTouch returns the batch where q last touched resource id,
// falling back to cur (the batch currently being built) when q has not
// touched id yet or its last touch is cur itself — mirrors the historical-
// batch lookup alias.ApplyQueueSynchronization uses via findBatch.
func (bt *Batcher) batchForQueueTouch(cur *PassBatch, id uint64, q types.QueueKind) *PassBatch {
	touches, ok := bt.lastQueueTouch[id]
	if !ok {
		return cur
	}
	bi, ok := touches[q]
	if !ok || bi == cur.Index {
		return cur
	}
	if bi >= 0 && bi < len(bt.batches) {
		return bt.batches[bi]
	}
	return cur
}

func otherQueueFor(q types.QueueKind) types.QueueKind {
	if q == types.QueueGraphics {
		return types.QueueCompute
	}
	return types.QueueGraphics
}

// stripRedundantWaits drops any wait whose fence value does not exceed the
// running maximum already issued for that (destination queue, source
// queue) pair (§4.5 "Redundant wait stripping").
func stripRedundantWaits(batches []*PassBatch) {
	maxIssued := make(map[types.QueueKind]map[types.QueueKind]uint64)
	for _, b := range batches {
		var kept []Wait
		for _, w := range b.Waits {
			// The source queue for a wait is inferred from which queue's
			// fence value this is — callers only construct waits against
			// the "other" queue relative to the waiting queue.
			src := otherQueueFor(w.Queue)
			if maxIssued[w.Queue] == nil {
				maxIssued[w.Queue] = make(map[types.QueueKind]uint64)
			}
			if w.Fence <= maxIssued[w.Queue][src] {
				continue
			}
			maxIssued[w.Queue][src] = w.Fence
			kept = append(kept, w)
		}
		b.Waits = kept
	}
}
