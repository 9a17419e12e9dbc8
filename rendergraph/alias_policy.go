package rendergraph

import (
	"fmt"

	"github.com/gogpu/rendergraph/alias"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

// runAliasing drives one frame of the §4.6 aliasing pipeline: collect
// candidates from this frame's touches in topological order, auto-assign
// pool membership, pack each pool's candidates, sync the pool Manager, and
// place each surviving candidate's resource within its pool's backing.
func (g *Graph) runAliasing(built *graph.Graph, nodes []*graph.Node) error {
	order := built.TopologicalOrder()
	rank := make(map[int]uint64, len(order))
	for i, idx := range order {
		rank[idx] = uint64(i)
	}

	var refs []alias.Reference
	for _, idx := range order {
		n := nodes[idx]
		for _, t := range n.Touched {
			res, ok := g.resourcesByID[t.ID]
			if !ok {
				continue
			}
			refs = append(refs, alias.Reference{
				Resource:    res,
				Rank:        rank[idx],
				State:       types.ResourceState{Access: t.Access},
				Criticality: built.Criticality(idx),
			})
		}
	}
	if len(refs) == 0 {
		return nil
	}

	candidates := alias.CollectCandidates(refs, g.allocInfoFor)
	if len(candidates) == 0 {
		return nil
	}
	alias.AutoAssign(candidates, g.settings.AutoAliasMode)

	byPool := make(map[string][]*alias.Candidate)
	for _, c := range candidates {
		byPool[c.PoolID] = append(byPool[c.PoolID], c)
	}

	for poolID, cs := range byPool {
		var result alias.PackResult
		if g.settings.AutoAliasPackingStrategy == types.PackingBranchAndBound {
			result = alias.PackBeamSearch(cs)
		} else {
			result = alias.PackGreedy(cs)
		}

		pending := g.aliasMgr.SyncPool(g.frameIndex, poolID, result.HeapSizeBytes, result.Alignment, result.Placements)
		backing, ok := g.aliasMgr.PoolAllocation(poolID)
		if !ok {
			continue
		}

		for _, c := range cs {
			if err := alias.Validate(c); err != nil {
				if g.settings.AutoAliasLogExclusionReasons {
					// A host logger would record (c.ResourceID, err) here;
					// no logging collaborator is wired into this package
					// (see DESIGN.md).
					_ = err
				}
				continue
			}
			res := g.resourcesByID[c.ResourceID]
			if res == nil {
				continue
			}
			placement := result.Placements[c.ResourceID]

			allocated, err := g.resAllocator.CreateAliasingResource(backing, placement.StartByte, g.descriptorFor(res))
			if err != nil {
				return fmt.Errorf("place %q in pool %q: %w", res.DisplayName(), poolID, err)
			}
			g.allocations[c.ResourceID] = allocated
			g.placements[c.ResourceID] = ownerPlacement{poolID: poolID, start: placement.StartByte, end: placement.EndByte}

			if pending[c.ResourceID] {
				from, _, _ := alias.ActivationTransition(types.ResourceState{})
				g.compileTrackers[c.ResourceID] = track.NewSymbolicTracker(res.MipCount(), res.ArraySize(), from)
			}
		}
	}
	return nil
}

// ownersByBatch derives each aliased resource's per-batch Owner record from
// the final batch schedule, for alias.ApplyQueueSynchronization — built
// after batching since a candidate's placement is fixed at pack time but
// which batch/queue actually touches it is only known once the batcher has
// run.
func (g *Graph) ownersByBatch(batches []*graph.PassBatch) map[int][]alias.Owner {
	out := make(map[int][]alias.Owner, len(batches))
	for _, b := range batches {
		for id := range b.AllResources {
			pl, ok := g.placements[id]
			if !ok {
				continue
			}
			out[b.Index] = append(out[b.Index], alias.Owner{
				ResourceID:  id,
				StartByte:   pl.start,
				EndByte:     pl.end,
				BatchIndex:  b.Index,
				UsesRender:  resourceUsedOnQueue(b, id, types.QueueGraphics),
				UsesCompute: resourceUsedOnQueue(b, id, types.QueueCompute),
			})
		}
	}
	return out
}

func resourceUsedOnQueue(b *graph.PassBatch, id uint64, q types.QueueKind) bool {
	for _, n := range b.Passes[q] {
		for _, t := range n.Touched {
			if t.ID == id {
				return true
			}
		}
	}
	return false
}
