package exec_test

import (
	"sync"
	"testing"

	"github.com/gogpu/rendergraph/exec"
	"github.com/gogpu/rendergraph/graph"
	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/hal/noop"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/track"
	"github.com/gogpu/rendergraph/types"
)

// recordingDevice wraps noop.Device and keeps every command list it
// creates reachable after the executor submits and releases its own
// reference, so tests can assert on what was recorded.
type recordingDevice struct {
	*noop.Device

	mu    sync.Mutex
	lists []*noop.CommandList
}

func (d *recordingDevice) CreateCommandList(alloc hal.CommandAllocator) (hal.CommandList, error) {
	list, err := d.Device.CreateCommandList(alloc)
	if err != nil {
		return nil, err
	}
	cl := list.(*noop.CommandList)
	d.mu.Lock()
	d.lists = append(d.lists, cl)
	d.mu.Unlock()
	return list, nil
}

type fakeResolver struct {
	allocs   map[uint64]hal.Allocation
	trackers map[uint64]*track.SymbolicTracker
	bytecode map[int]*recorder.Bytecode
}

func (f *fakeResolver) Allocation(h registry.Handle[*resource.Resource]) (hal.Allocation, bool) {
	a, ok := f.allocs[h.GlobalResourceID()]
	return a, ok
}

func (f *fakeResolver) RuntimeTracker(id uint64) (*track.SymbolicTracker, bool) {
	t, ok := f.trackers[id]
	return t, ok
}

func (f *fakeResolver) Bytecode(n *graph.Node) (*recorder.Bytecode, bool) {
	bc, ok := f.bytecode[n.Index]
	return bc, ok
}

func handleForTest(r *resource.Resource) registry.Handle[*resource.Resource] {
	reg := registry.NewRegistry[*resource.Resource]()
	return reg.RegisterAnonymous(r, r.ID(), r.MipCount(), r.ArraySize())
}

func fullRange() types.SubresourceRange {
	return types.SubresourceRange{FirstMip: 0, MipCount: 1, FirstSlice: 0, SliceCount: 1}
}

func TestExecutor_SingleGraphicsPass_RecordsBarrierThenClear(t *testing.T) {
	tex := resource.NewTexture("SceneColor", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	tex.Materialize()
	h := handleForTest(tex)

	rtState := types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget}

	rec := recorder.New()
	if err := rec.ClearRenderTarget(h, 0, 0, [4]float32{0, 0, 0, 1}); err != nil {
		t.Fatalf("ClearRenderTarget() error = %v", err)
	}
	bc, _ := rec.Finalize()

	node := &graph.Node{
		Index: 0,
		Pass: &pass.Base{
			PassName: "ClearSceneColor",
			Queue:    types.QueueGraphics,
			Mask:     pass.RunImmediate,
		},
		Queue:        types.QueueGraphics,
		Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: rtState}},
		Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessRenderTarget}},
	}

	g, err := graph.Build([]*graph.Node{node})
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}

	compileTracker := track.NewSymbolicTracker(1, 1, types.CommonState())
	batches := graph.NewBatcher(g, map[uint64]*track.SymbolicTracker{tex.ID(): compileTracker}).Run()
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}

	device := &recordingDevice{Device: noop.NewDevice()}
	executor, err := exec.NewExecutor(device, true, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	defer executor.Close()

	runtimeTracker := track.NewSymbolicTracker(1, 1, types.CommonState())
	resolver := &fakeResolver{
		allocs:   map[uint64]hal.Allocation{tex.ID(): &noop.Allocation{SizeBytes: 65536}},
		trackers: map[uint64]*track.SymbolicTracker{tex.ID(): runtimeTracker},
		bytecode: map[int]*recorder.Bytecode{0: bc},
	}

	report, err := executor.Execute(1, batches, resolver)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if lt, ok := report.LastTouches[tex.ID()]; !ok || lt.Queue != types.QueueGraphics {
		t.Fatalf("expected last touch on graphics queue, got %+v (ok=%v)", lt, ok)
	}

	if len(device.lists) != 3 {
		t.Fatalf("expected one command list per queue, got %d", len(device.lists))
	}
	var graphicsList *noop.CommandList
	for _, l := range device.lists {
		if len(l.BarrierBatches) > 0 {
			graphicsList = l
		}
	}
	if graphicsList == nil {
		t.Fatal("no command list recorded a barrier batch")
	}
	if len(graphicsList.BarrierBatches) != 1 || len(graphicsList.BarrierBatches[0]) != 1 {
		t.Fatalf("expected exactly one barrier, got %+v", graphicsList.BarrierBatches)
	}
	barrier := graphicsList.BarrierBatches[0][0]
	if barrier.From.Access != types.AccessCommon || barrier.To.Access != types.AccessRenderTarget {
		t.Fatalf("unexpected barrier transition: %+v", barrier)
	}

	found := false
	for _, op := range graphicsList.Recorded {
		if op == "ClearRenderTargetView" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ClearRenderTargetView in recorded ops, got %v", graphicsList.Recorded)
	}
}

func TestExecutor_ExecutesConsecutiveFrames(t *testing.T) {
	tex := resource.NewTexture("Ping", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	tex.Materialize()
	h := handleForTest(tex)
	state := types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget}

	node := &graph.Node{
		Index:        0,
		Pass:         &pass.Base{PassName: "Write", Queue: types.QueueGraphics},
		Queue:        types.QueueGraphics,
		Requirements: []pass.Requirement{{Handle: h, Range: fullRange(), State: state}},
		Touched:      []graph.ResourceTouch{{ID: tex.ID(), Access: types.AccessRenderTarget}},
	}
	g, err := graph.Build([]*graph.Node{node})
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}

	device := noop.NewDevice()
	executor, err := exec.NewExecutor(device, true, exec.NoopStatisticsSink{}, exec.NewReadbackQueue())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	defer executor.Close()

	for frame := uint64(1); frame <= 2; frame++ {
		compileTracker := track.NewSymbolicTracker(1, 1, types.CommonState())
		batches := graph.NewBatcher(g, map[uint64]*track.SymbolicTracker{tex.ID(): compileTracker}).Run()
		resolver := &fakeResolver{
			allocs:   map[uint64]hal.Allocation{tex.ID(): &noop.Allocation{SizeBytes: 65536}},
			trackers: map[uint64]*track.SymbolicTracker{tex.ID(): track.NewSymbolicTracker(1, 1, types.CommonState())},
			bytecode: map[int]*recorder.Bytecode{},
		}
		if _, err := executor.Execute(frame, batches, resolver); err != nil {
			t.Fatalf("Execute() frame %d error = %v", frame, err)
		}
	}
}
