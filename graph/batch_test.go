package graph_test

import (
	"testing"

	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

func handleForTest(r *resource.Resource) registry.Handle[*resource.Resource] {
	reg := registry.NewRegistry[*resource.Resource]()
	return reg.RegisterAnonymous(r, r.ID(), r.MipCount(), r.ArraySize())
}

func fullRange() types.SubresourceRange {
	return types.SubresourceRange{FirstMip: 0, MipCount: 1, FirstSlice: 0, SliceCount: 1}
}

func TestBatcher_SameStateRequirementsShareOneBatch(t *testing.T) {
	tex := resource.NewTexture("GBuffer.Albedo", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	tex.Materialize()
	h := handleForTest(tex)
	state := types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget}

	nodes := []*graph.Node{
		{Index: 0, Pass: &pass.Base{PassName: "A"}, Queue: types.QueueGraphics,
			Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: state}},
			Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessRenderTarget}}},
		{Index: 1, Pass: &pass.Base{PassName: "B"}, Queue: types.QueueGraphics,
			Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: state}},
			Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessRenderTarget}}},
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	trackers := map[uint64]*track.SymbolicTracker{
		tex.ID(): track.NewSymbolicTracker(1, 1, types.CommonState()),
	}
	batches := graph.NewBatcher(g, trackers).Run()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0].Passes[types.QueueGraphics]) != 2 {
		t.Fatalf("expected both passes in one batch, got %+v", batches[0].Passes)
	}
}

func TestBatcher_ConflictingStateForcesNewBatch(t *testing.T) {
	tex := resource.NewTexture("GBuffer.Albedo", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	tex.Materialize()
	h := handleForTest(tex)
	writeState := types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget}
	readState := types.ResourceState{Access: types.AccessShaderResource, Layout: types.LayoutShaderResource, Sync: types.SyncPixelShading}

	nodes := []*graph.Node{
		{Index: 0, Pass: &pass.Base{PassName: "Write"}, Queue: types.QueueGraphics,
			Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: writeState}},
			Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessRenderTarget}}},
		{Index: 1, Pass: &pass.Base{PassName: "Read"}, Queue: types.QueueGraphics,
			Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: readState}},
			Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessShaderResource}}},
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	trackers := map[uint64]*track.SymbolicTracker{
		tex.ID(): track.NewSymbolicTracker(1, 1, types.CommonState()),
	}
	batches := graph.NewBatcher(g, trackers).Run()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches (state conflict forces split), got %d", len(batches))
	}
}

func TestBatcher_ForceAdmitsHeadToAvoidEmptyBatch(t *testing.T) {
	nodes := []*graph.Node{
		{Index: 0, Pass: &pass.Base{PassName: "Solo"}, Queue: types.QueueGraphics},
	}
	g, err := graph.Build(nodes)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	batches := graph.NewBatcher(g, map[uint64]*track.SymbolicTracker{}).Run()
	if len(batches) != 1 || len(batches[0].Passes[types.QueueGraphics]) != 1 {
		t.Fatalf("expected a single batch with one pass, got %+v", batches)
	}
}
