package exec

import (
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/track"
)

// Resolver bridges a graph handle to the materialized device
// allocation and runtime tracker the executor needs to emit real barriers.
// The rendergraph package's compiled Graph is the only implementation;
// kept as an interface here so exec has no import on it.
type Resolver interface {
	// Allocation resolves h to its backing device allocation. ok is false
	// if h is stale — the resource was replaced or released between
	// compile and execute (§7 "Backing generation changed between
	// compile and execute").
	Allocation(h registry.Handle[*resource.Resource]) (alloc hal.Allocation, ok bool)

	// RuntimeTracker returns the live tracker for h's resource id, which
	// may differ from the compile-time tracker used to derive the
	// batch's planned transitions if the resource was materialized
	// between compile and execute.
	RuntimeTracker(id uint64) (*track.SymbolicTracker, bool)

	// Bytecode returns the immediate-recorder stream n's ExecuteImmediate
	// produced at compile time, for the executor to replay against the
	// real command list. ok is false for a node whose run mask never
	// included RunImmediate.
	Bytecode(n *graph.Node) (*recorder.Bytecode, bool)
}
