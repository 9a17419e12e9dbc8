// Package rendergraph ties the dependency graph builder, batcher, transient
// aliasing subsystem, and frame executor into one host-facing entry point
// (§4.8 "Graph.Compile"): a per-frame compile pipeline that runs passes'
// playback phases, derives the DAG and batch schedule, resolves aliased
// placements, and hands the result to the executor for replay.
package rendergraph

import (
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

// ownerPlacement is a resource's current byte range within its aliasing
// pool, kept across frames so ApplyQueueSynchronization can be driven from
// the final batch list rather than threading placements through batching.
type ownerPlacement struct {
	poolID string
	start  uint64
	end    uint64
}

// Graph is the compiled per-frame scheduler over a declared resource and
// pass set (§3 "Graph"). A Graph is built once and Compile/Execute'd every
// frame; declared resources and passes persist across frames unless
// explicitly redeclared.
type Graph struct {
	settings types.Settings
	device   hal.Device

	reg           *registry.Registry[*resource.Resource]
	resourcesByID map[uint64]*resource.Resource
	handles       map[uint64]registry.Handle[*resource.Resource]

	basePasses []pass.Pass
	externals  []merge.External
	setupDone  map[string]bool

	aliasMgr   *alias.Manager
	placements map[uint64]ownerPlacement

	compileTrackers map[uint64]*track.SymbolicTracker
	allocations     map[uint64]hal.Allocation
	bytecode        map[int]*recorder.Bytecode

	nodes   []*graph.Node
	batches []*graph.PassBatch

	resAllocator hal.Allocator

	executor   *exec.Executor
	readback   *exec.ReadbackQueue
	frameIndex uint64
}

// CompileReport summarizes one Compile call for diagnostics and tests.
type CompileReport struct {
	FrameIndex uint64
	PassCount  int
	BatchCount int
	PoolStats  []alias.PoolSnapshot
}

// New creates a Graph against device, using settings to drive async
// compute folding and the aliasing subsystem's mode/strategy/headroom
// knobs. stats receives per-pass query brackets during Execute; a nil
// stats argument installs exec.NoopStatisticsSink.
func New(device hal.Device, settings types.Settings, stats exec.StatisticsSink) (*Graph, error) {
	readback := exec.NewReadbackQueue()
	executor, err := exec.NewExecutor(device, settings.UseAsyncCompute, stats, readback)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: new executor: %w", err)
	}

	poolBacking, err := device.CreateAllocator()
	if err != nil {
		executor.Close()
		return nil, fmt.Errorf("rendergraph: create pool allocator: %w", err)
	}

	g := &Graph{
		settings:        settings,
		device:          device,
		reg:             registry.NewRegistry[*resource.Resource](),
		resourcesByID:   make(map[uint64]*resource.Resource),
		handles:         make(map[uint64]registry.Handle[*resource.Resource]),
		setupDone:       make(map[string]bool),
		placements:      make(map[uint64]ownerPlacement),
		compileTrackers: make(map[uint64]*track.SymbolicTracker),
		allocations:     make(map[uint64]hal.Allocation),
		bytecode:        make(map[int]*recorder.Bytecode),
		resAllocator:    poolBacking,
		executor:        executor,
		readback:        readback,
	}
	g.aliasMgr = alias.NewManager(&poolAllocator{alloc: poolBacking}, settings)
	return g, nil
}

// Close releases the executor's per-queue recording threads.
func (g *Graph) Close() { g.executor.Close() }

// ReadbackQueue returns the queue pass bodies enqueue host-readback
// requests onto from within Execute.
func (g *Graph) ReadbackQueue() *exec.ReadbackQueue { return g.readback }

// DeclareTexture registers a named texture, returning a stable handle pass
// bodies reference in their requirement lists. Redeclaring an existing name
// bumps the registry slot's generation, invalidating handles made against
// the previous occupant (§4.2).
func (g *Graph) DeclareTexture(name string, spec resource.TextureSpec) registry.Handle[*resource.Resource] {
	return g.declare(name, resource.NewTexture(name, spec))
}

// DeclareBuffer registers a named buffer, returning a stable handle.
func (g *Graph) DeclareBuffer(name string, spec resource.BufferSpec) registry.Handle[*resource.Resource] {
	return g.declare(name, resource.NewBuffer(name, spec))
}

func (g *Graph) declare(name string, res *resource.Resource) registry.Handle[*resource.Resource] {
	id := types.ParseResourceIdentifier(name)
	h := g.reg.RegisterOrUpdate(id, res, res.ID(), res.MipCount(), res.ArraySize())
	g.resourcesByID[res.ID()] = res
	g.handles[res.ID()] = h
	return h
}

// Resource returns the live resource behind a global id, for callers that
// need direct access (e.g. to Rebind a dynamic wrapper).
func (g *Graph) Resource(id uint64) (*resource.Resource, bool) {
	r, ok := g.resourcesByID[id]
	return r, ok
}

// AddPass appends p to the stable base pass list, ordered by declaration
// order (§4.4 "base").
func (g *Graph) AddPass(p pass.Pass) { g.basePasses = append(g.basePasses, p) }

// AddExternalPass registers an extension-contributed pass merged in by
// placement constraint rather than declaration order (§4.4 "externals").
func (g *Graph) AddExternalPass(ext merge.External) { g.externals = append(g.externals, ext) }
