package rendergraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendergraph/alias"
	"github.com/gogpu/rendergraph/exec"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/merge"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

// ErrNotCompiled is returned by Execute when called before Compile has
// produced a batch schedule for the current frame.
var ErrNotCompiled = errors.New("rendergraph: Compile must run before Execute")

// Compile runs the §4.8 pipeline for the next frame: merge base and
// extension passes, run Setup/Update, play back immediate bodies into
// bytecode, build the dependency DAG, resolve transient aliasing
// placements, and batch the schedule the following Execute call replays.
func (g *Graph) Compile() (*CompileReport, error) {
	g.frameIndex++
	ctx := exec.NewFrameContext(g.frameIndex)

	merged, err := merge.Merge(g.basePasses, g.externals)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: merge passes: %w", err)
	}

	for _, p := range merged {
		if g.setupDone[p.Name()] {
			continue
		}
		p.Setup()
		g.setupDone[p.Name()] = true
	}
	for _, p := range merged {
		p.Update(ctx)
	}

	nodes := make([]*graph.Node, 0, len(merged))
	bytecode := make(map[int]*recorder.Bytecode, len(merged))
	for i, p := range merged {
		reqs := append([]pass.Requirement(nil), p.StaticRequirements()...)
		if p.RunMask().HasImmediate() {
			rec := recorder.New()
			if err := p.ExecuteImmediate(ctx, rec); err != nil {
				return nil, fmt.Errorf("rendergraph: pass %q immediate playback: %w", p.Name(), err)
			}
			bc, dynReqs := rec.Finalize()
			bytecode[i] = bc
			if len(reqs) == 0 {
				reqs = dynReqs
			}
		}
		nodes = append(nodes, &graph.Node{
			Index:               i,
			Pass:                p,
			Queue:               p.QueueKind(),
			Requirements:        reqs,
			InternalTransitions: p.InternalTransitions(),
			Touched:             touchedFromRequirements(reqs),
		})
	}

	for _, n := range nodes {
		for _, req := range n.Requirements {
			if res, ok := g.resourcesByID[req.Handle.GlobalResourceID()]; ok {
				res.Materialize()
			}
		}
	}

	built, err := graph.Build(nodes)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: build dependency graph: %w", err)
	}

	g.ensureCompileTrackers(nodes)

	if g.settings.AutoAliasMode != types.AutoAliasOff {
		if err := g.runAliasing(built, nodes); err != nil {
			return nil, fmt.Errorf("rendergraph: aliasing: %w", err)
		}
	}

	for _, id := range g.aliasMgr.RetireIdlePools(g.frameIndex) {
		if res, ok := g.resourcesByID[id]; ok {
			res.Dematerialize()
		}
		delete(g.compileTrackers, id)
		delete(g.allocations, id)
		delete(g.placements, id)
	}
	// A backend whose hal.Allocator could release raw memory would drain
	// and free these here; the narrow §6 contract has no such primitive
	// (see DESIGN.md), so retired pool backings are simply dropped.
	g.aliasMgr.DrainPendingFrees()

	if err := g.ensureAllocations(nodes); err != nil {
		return nil, fmt.Errorf("rendergraph: materialize allocations: %w", err)
	}

	batcher := graph.NewBatcher(built, g.compileTrackers)
	batches := batcher.Run()

	if len(g.placements) > 0 {
		alias.ApplyQueueSynchronization(batches, g.ownersByBatch(batches))
	}

	g.nodes = nodes
	g.batches = batches
	g.bytecode = bytecode

	return &CompileReport{
		FrameIndex: g.frameIndex,
		PassCount:  len(nodes),
		BatchCount: len(batches),
		PoolStats:  g.aliasMgr.DebugSnapshot(),
	}, nil
}

// Execute replays the batch schedule Compile most recently produced.
func (g *Graph) Execute() (*exec.FrameReport, error) {
	if g.batches == nil {
		return nil, ErrNotCompiled
	}
	return g.executor.Execute(g.frameIndex, g.batches, g)
}

// ensureCompileTrackers guarantees every resource a node touches this frame
// has a live compile tracker, seeding it from the resource's own tracker
// (buffers, and materialized textures) or a fresh common-state tracker.
func (g *Graph) ensureCompileTrackers(nodes []*graph.Node) {
	for _, n := range nodes {
		for _, t := range n.Touched {
			if _, ok := g.compileTrackers[t.ID]; ok {
				continue
			}
			res, ok := g.resourcesByID[t.ID]
			if !ok {
				continue
			}
			if tr, ok := res.Tracker(); ok {
				g.compileTrackers[t.ID] = tr
				continue
			}
			g.compileTrackers[t.ID] = track.NewSymbolicTracker(res.MipCount(), res.ArraySize(), types.CommonState())
		}
	}
}

// ensureAllocations guarantees every touched resource has a device
// allocation by the time the batcher's transitions are replayed: a
// standalone hal.Allocator.CreateResource call for anything the aliasing
// pass (if it ran at all) did not place.
func (g *Graph) ensureAllocations(nodes []*graph.Node) error {
	for _, n := range nodes {
		for _, t := range n.Touched {
			if _, ok := g.allocations[t.ID]; ok {
				continue
			}
			res, ok := g.resourcesByID[t.ID]
			if !ok {
				continue
			}
			alloc, err := g.resAllocator.CreateResource(g.descriptorFor(res))
			if err != nil {
				return fmt.Errorf("create resource %q: %w", res.DisplayName(), err)
			}
			g.allocations[t.ID] = alloc
		}
	}
	return nil
}

func (g *Graph) descriptorFor(res *resource.Resource) hal.ResourceDescriptor {
	desc := hal.ResourceDescriptor{Name: res.DisplayName()}
	if tex, ok := res.Texture(); ok {
		desc.Texture = tex
	} else if buf, ok := res.Buffer(); ok {
		desc.Buffer = buf
	}
	return desc
}

func (g *Graph) allocInfoFor(res *resource.Resource) alias.AllocationInfo {
	return g.device.QueryAllocationInfo(g.descriptorFor(res))
}

func touchedFromRequirements(reqs []pass.Requirement) []graph.ResourceTouch {
	out := make([]graph.ResourceTouch, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, graph.ResourceTouch{ID: r.Handle.GlobalResourceID(), Access: r.State.Access})
	}
	return out
}

// Resolver implementation (§4.7 exec.Resolver): the compiled Graph is the
// only source of truth an Executor needs for allocations, runtime
// trackers, and immediate bytecode.

func (g *Graph) Allocation(h registry.Handle[*resource.Resource]) (hal.Allocation, bool) {
	a, ok := g.allocations[h.GlobalResourceID()]
	return a, ok
}

func (g *Graph) RuntimeTracker(id uint64) (*track.SymbolicTracker, bool) {
	tr, ok := g.compileTrackers[id]
	return tr, ok
}

func (g *Graph) Bytecode(n *graph.Node) (*recorder.Bytecode, bool) {
	bc, ok := g.bytecode[n.Index]
	return bc, ok
}

var _ exec.Resolver = (*Graph)(nil)
