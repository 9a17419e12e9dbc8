package track

import (
	"testing"

	"github.com/gogpu/rendergraph/types"
)

func srv() types.ResourceState {
	return types.ResourceState{Access: types.AccessShaderResource, Layout: types.LayoutShaderResource, Sync: types.SyncPixelShading}
}

func rtv() types.ResourceState {
	return types.ResourceState{Access: types.AccessRenderTarget, Layout: types.LayoutRenderTarget, Sync: types.SyncRenderTarget}
}

func TestSymbolicTracker_TilesFullRange(t *testing.T) {
	tr := NewSymbolicTracker(4, 2, types.CommonState())
	if got := tr.SegmentCount(); got != 1 {
		t.Fatalf("expected 1 initial segment, got %d", got)
	}

	tr.Apply(types.SingleMip(1), srv())
	tr.Apply(types.SingleMip(2), rtv())

	total := uint32(0)
	for _, seg := range tr.Flatten(types.ResourceState{}, true) {
		total += seg.Range.MipCount * seg.Range.SliceCount
	}
	if want := uint32(4 * 2); total != want {
		t.Fatalf("segments do not tile full range: got %d cells, want %d", total, want)
	}
}

func TestSymbolicTracker_NoOverlap(t *testing.T) {
	tr := NewSymbolicTracker(4, 2, types.CommonState())
	tr.Apply(types.SingleMip(1), srv())
	tr.Apply(types.RangeSpec{MipLower: types.Exact(0), MipUpper: types.Exact(2), SliceLower: types.All(), SliceUpper: types.All()}, rtv())

	segs := tr.Flatten(types.ResourceState{}, true)
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if types.Overlaps(segs[i].Range, segs[j].Range) {
				t.Fatalf("segments %+v and %+v overlap", segs[i], segs[j])
			}
		}
	}
}

func TestSymbolicTracker_TransitionMinimality(t *testing.T) {
	tr := NewSymbolicTracker(1, 1, srv())
	trans := tr.Apply(types.FullRange(), srv())
	if len(trans) != 0 {
		t.Fatalf("expected zero transitions when state already matches, got %d", len(trans))
	}
}

func TestSymbolicTracker_Idempotence(t *testing.T) {
	tr1 := NewSymbolicTracker(4, 4, types.CommonState())
	tr1.Apply(types.FullRange(), srv())
	first := tr1.Flatten(types.ResourceState{}, true)

	tr2 := NewSymbolicTracker(4, 4, types.CommonState())
	tr2.Apply(types.FullRange(), srv())
	tr2.Apply(types.FullRange(), srv())
	second := tr2.Flatten(types.ResourceState{}, true)

	if len(first) != len(second) {
		t.Fatalf("idempotent apply changed segment count: %d vs %d", len(first), len(second))
	}

	trans := tr2.Apply(types.FullRange(), srv())
	if len(trans) != 0 {
		t.Fatalf("second identical apply should emit no transitions, got %d", len(trans))
	}
}

func TestSymbolicTracker_MergeLaw(t *testing.T) {
	// Applying the same state to two adjacent mip ranges separately should
	// not leave more same-state segments than applying their union at once.
	tr := NewSymbolicTracker(4, 1, types.CommonState())
	tr.Apply(types.RangeSpec{MipLower: types.Exact(0), MipUpper: types.Exact(0), SliceLower: types.All(), SliceUpper: types.All()}, srv())
	tr.Apply(types.RangeSpec{MipLower: types.Exact(1), MipUpper: types.Exact(1), SliceLower: types.All(), SliceUpper: types.All()}, srv())

	count := 0
	for _, seg := range tr.Flatten(types.ResourceState{}, true) {
		if seg.State.EqualIdentity(srv()) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected adjacent same-state segments to merge into 1, got %d", count)
	}
}

func TestSymbolicTracker_WouldModify(t *testing.T) {
	tr := NewSymbolicTracker(2, 2, types.CommonState())
	if !tr.WouldModify(types.FullRange(), srv()) {
		t.Fatalf("expected WouldModify true on a fresh tracker")
	}
	tr.Apply(types.FullRange(), srv())
	if tr.WouldModify(types.FullRange(), srv()) {
		t.Fatalf("expected WouldModify false once state already matches")
	}
	if !tr.WouldModify(types.FullRange(), rtv()) {
		t.Fatalf("expected WouldModify true for a different state")
	}
}

func TestSubtract_FourStrips(t *testing.T) {
	orig := types.SubresourceRange{FirstMip: 0, MipCount: 4, FirstSlice: 0, SliceCount: 4}
	cut := types.SubresourceRange{FirstMip: 1, MipCount: 2, FirstSlice: 1, SliceCount: 2}

	strips := types.Subtract(orig, cut)
	if len(strips) != 4 {
		t.Fatalf("expected 4 remainder strips cutting a central rectangle, got %d", len(strips))
	}

	var total uint32
	for _, s := range strips {
		total += s.MipCount * s.SliceCount
	}
	want := orig.MipCount*orig.SliceCount - cut.MipCount*cut.SliceCount
	if total != want {
		t.Fatalf("remainder strips cover %d cells, want %d", total, want)
	}
}
