package track

import "github.com/gogpu/rendergraph/types"

// SymbolicTracker holds the segment list for one resource. The segments
// always exactly tile the resource's full (mips, slices) rectangle and
// never overlap — the §3 "Invariants" tiling law.
type SymbolicTracker struct {
	totalMips   uint32
	totalSlices uint32
	segments    []Segment
}

// NewSymbolicTracker creates a tracker for a resource with the given mip
// and array-slice counts, initialized to a single segment in initial (by
// default types.CommonState()).
func NewSymbolicTracker(totalMips, totalSlices uint32, initial types.ResourceState) *SymbolicTracker {
	t := &SymbolicTracker{totalMips: totalMips, totalSlices: totalSlices}
	if totalMips > 0 && totalSlices > 0 {
		t.segments = []Segment{{
			Range: types.SubresourceRange{FirstMip: 0, MipCount: totalMips, FirstSlice: 0, SliceCount: totalSlices},
			State: initial,
		}}
	}
	return t
}

// TotalMips returns the resource's mip count.
func (t *SymbolicTracker) TotalMips() uint32 { return t.totalMips }

// TotalSlices returns the resource's array-slice count.
func (t *SymbolicTracker) TotalSlices() uint32 { return t.totalSlices }

// Apply resolves want against the tracker's dimensions, and for every
// existing segment that overlaps it, emits a transition if the segment's
// state differs from newState, then re-tiles: the overlapped segment is
// split into its non-intersected remainders (§4.1 "Subtract") plus a fresh
// segment covering the intersection at newState. Adjacent segments sharing
// state are merged back together afterward. Returns the transitions that
// were required — an Apply whose every overlapping segment already equals
// newState appends nothing (§8 "Transition minimality").
func (t *SymbolicTracker) Apply(want types.RangeSpec, newState types.ResourceState) []ResourceTransition {
	resolved := want.Resolve(t.totalMips, t.totalSlices)
	return t.ApplyRange(resolved, newState)
}

// ApplyRange is Apply for a range already resolved to concrete subresource
// coordinates — used by callers (the immediate recorder, internal
// transitions) that already work in resolved ranges.
func (t *SymbolicTracker) ApplyRange(want types.SubresourceRange, newState types.ResourceState) []ResourceTransition {
	if want.IsEmpty() {
		return nil
	}

	var transitions []ResourceTransition
	var next []Segment

	for _, seg := range t.segments {
		cut := types.Intersect(seg.Range, want)
		if cut.IsEmpty() {
			next = append(next, seg)
			continue
		}
		if !seg.State.EqualIdentity(newState) {
			transitions = append(transitions, ResourceTransition{
				Range:      cut,
				PrevAccess: seg.State.Access,
				NewAccess:  newState.Access,
				PrevLayout: seg.State.Layout,
				NewLayout:  newState.Layout,
				PrevSync:   seg.State.Sync,
				NewSync:    newState.Sync,
			})
		}
		for _, remainder := range types.Subtract(seg.Range, cut) {
			next = append(next, Segment{Range: remainder, State: seg.State})
		}
	}
	next = append(next, Segment{Range: want, State: newState})
	t.segments = mergeAdjacent(next)
	return transitions
}

// WouldModify reports whether applying newState to want would change the
// state of any currently overlapping segment, without mutating the
// tracker. Used by the batcher's admission test (§4.5) to decide whether a
// candidate pass would force a new transition inside the current batch.
func (t *SymbolicTracker) WouldModify(want types.RangeSpec, newState types.ResourceState) bool {
	resolved := want.Resolve(t.totalMips, t.totalSlices)
	return t.WouldModifyRange(resolved, newState)
}

// WouldModifyRange is WouldModify for an already-resolved range.
func (t *SymbolicTracker) WouldModifyRange(want types.SubresourceRange, newState types.ResourceState) bool {
	if want.IsEmpty() {
		return false
	}
	for _, seg := range t.segments {
		if types.Overlaps(seg.Range, want) && !seg.State.EqualIdentity(newState) {
			return true
		}
	}
	return false
}

// StateAt returns the state of whichever segment covers the given mip and
// slice, and whether any segment covers that cell at all (it always should,
// per the tiling invariant, unless the resource has zero mips/slices).
func (t *SymbolicTracker) StateAt(mip, slice uint32) (types.ResourceState, bool) {
	for _, seg := range t.segments {
		if mip >= seg.Range.FirstMip && mip < seg.Range.MipEnd() &&
			slice >= seg.Range.FirstSlice && slice < seg.Range.SliceEnd() {
			return seg.State, true
		}
	}
	return types.ResourceState{}, false
}

// Flatten returns a copy of the current segment list. If includeSkip is
// false, segments whose state equals skipState are omitted — used to strip
// out "already in the state we'd want anyway" segments from a debug dump.
func (t *SymbolicTracker) Flatten(skipState types.ResourceState, includeSkip bool) []Segment {
	out := make([]Segment, 0, len(t.segments))
	for _, seg := range t.segments {
		if !includeSkip && seg.State.EqualIdentity(skipState) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// SegmentCount reports how many tiles currently partition the resource —
// exposed for tests asserting the tiling invariant holds.
func (t *SymbolicTracker) SegmentCount() int { return len(t.segments) }

// Clone returns an independent copy of the tracker, used when a compile-time
// tracker must be snapshotted (e.g. per-batch `passBatchTrackers` references
// in §3 need their own segment slices, not aliases of a shared one).
func (t *SymbolicTracker) Clone() *SymbolicTracker {
	clone := &SymbolicTracker{totalMips: t.totalMips, totalSlices: t.totalSlices}
	clone.segments = append([]Segment(nil), t.segments...)
	return clone
}
