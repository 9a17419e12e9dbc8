package graph_test

import (
	"errors"
	"testing"

	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/types"
)

func mkNode(index int, name string, touched ...graph.ResourceTouch) *graph.Node {
	return &graph.Node{
		Index:   index,
		Pass:    &pass.Base{PassName: name},
		Queue:   types.QueueGraphics,
		Touched: touched,
	}
}

func TestBuild_ReadAfterWriteEdge(t *testing.T) {
	const resID = uint64(1)
	nodes := []*graph.Node{
		mkNode(0, "Producer", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
		mkNode(1, "Consumer", graph.ResourceTouch{ID: resID, Access: types.AccessShaderResource}),
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	order := g.TopologicalOrder()
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected [0 1], got %v", order)
	}
	succ := g.Successors(0)
	if len(succ) != 1 || succ[0] != 1 {
		t.Fatalf("expected Producer -> Consumer edge, got successors %v", succ)
	}
}

func TestBuild_WriteAfterReadEdge(t *testing.T) {
	const resID = uint64(1)
	nodes := []*graph.Node{
		mkNode(0, "Reader", graph.ResourceTouch{ID: resID, Access: types.AccessShaderResource}),
		mkNode(1, "Writer", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	succ := g.Successors(0)
	if len(succ) != 1 || succ[0] != 1 {
		t.Fatalf("expected Reader -> Writer (WAR) edge, got %v", succ)
	}
}

func TestBuild_WriteAfterWriteEdge(t *testing.T) {
	const resID = uint64(1)
	nodes := []*graph.Node{
		mkNode(0, "First", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
		mkNode(1, "Second", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	succ := g.Successors(0)
	if len(succ) != 1 || succ[0] != 1 {
		t.Fatalf("expected First -> Second (WAW) edge, got %v", succ)
	}
}

func TestBuild_ExplicitAfterConstraint(t *testing.T) {
	nodes := []*graph.Node{
		mkNode(0, "Unrelated"),
		{Index: 1, Pass: &pass.Base{PassName: "Dependent"}, Queue: types.QueueGraphics, After: []string{"Unrelated"}},
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	succ := g.Successors(0)
	if len(succ) != 1 || succ[0] != 1 {
		t.Fatalf("expected explicit After edge Unrelated -> Dependent, got %v", succ)
	}
}

func TestBuild_CycleIsFatal(t *testing.T) {
	nodes := []*graph.Node{
		{Index: 0, Pass: &pass.Base{PassName: "A"}, After: []string{"B"}},
		{Index: 1, Pass: &pass.Base{PassName: "B"}, After: []string{"A"}},
	}
	if _, err := graph.Build(nodes); !errors.Is(err, graph.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestBuild_CriticalityIsLongestPathToSink(t *testing.T) {
	const resID = uint64(1)
	// Chain A -> B -> C by WAW on one resource; A's criticality should be 2.
	nodes := []*graph.Node{
		mkNode(0, "A", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
		mkNode(1, "B", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
		mkNode(2, "C", graph.ResourceTouch{ID: resID, Access: types.AccessRenderTarget}),
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Criticality(0) != 2 {
		t.Fatalf("Criticality(A) = %d, want 2", g.Criticality(0))
	}
	if g.Criticality(2) != 0 {
		t.Fatalf("Criticality(C) = %d, want 0 (sink)", g.Criticality(2))
	}
}
