// Package track implements the subresource state tracker (spec §4.1): a
// per-resource symbolic map from subresource rectangles to resource states,
// with Apply producing the minimal set of transitions needed to move a
// requested rectangle into a new state.
//
// The tracker generalizes the teacher's track.BufferTracker (core/track/
// buffer.go), which tracks one usage bitset per whole buffer, to a tiling
// of (mip, slice) rectangles per resource — the texture case the teacher's
// own tracker does not need to handle, since WebGPU buffers have no
// subresources.
package track

import (
	"sort"

	"github.com/gogpu/rendergraph/types"
)

// Segment is one tile of a SymbolicTracker: a concrete subresource
// rectangle paired with the state it currently carries.
type Segment struct {
	Range types.SubresourceRange
	State types.ResourceState
}

// ResourceTransition describes a state change over a specific subresource
// range, optionally discarding prior contents (alias activation, §4.6).
type ResourceTransition struct {
	Range      types.SubresourceRange
	PrevAccess types.Access
	NewAccess  types.Access
	PrevLayout types.Layout
	NewLayout  types.Layout
	PrevSync   types.Sync
	NewSync    types.Sync
	Discard    bool
}

// sortSegments orders segments in lexicographic (sliceLower, sliceUpper,
// mipLower, mipUpper) order, the order §4.1 "TryMerge" requires before
// sweep-merging adjacent segments.
func sortSegments(segs []Segment) {
	sort.Slice(segs, func(i, j int) bool {
		a, b := segs[i].Range, segs[j].Range
		if a.FirstSlice != b.FirstSlice {
			return a.FirstSlice < b.FirstSlice
		}
		if a.SliceEnd() != b.SliceEnd() {
			return a.SliceEnd() < b.SliceEnd()
		}
		if a.FirstMip != b.FirstMip {
			return a.FirstMip < b.FirstMip
		}
		return a.MipEnd() < b.MipEnd()
	})
}

// tryMerge attempts to merge two segments per §4.1: they merge iff they
// share state identity (access+layout; equality ignores sync) and are
// identical on one axis while overlapping-or-touching on the other. The
// merged range unions the axis of difference. Returns the merged segment
// and true on success.
func tryMerge(a, b Segment) (Segment, bool) {
	if !a.State.EqualIdentity(b.State) {
		return Segment{}, false
	}
	ar, br := a.Range, b.Range

	sameMip := ar.FirstMip == br.FirstMip && ar.MipEnd() == br.MipEnd()
	sameSlice := ar.FirstSlice == br.FirstSlice && ar.SliceEnd() == br.SliceEnd()

	if sameMip && touchesOrOverlaps(ar.FirstSlice, ar.SliceEnd(), br.FirstSlice, br.SliceEnd()) {
		return Segment{
			Range: types.SubresourceRange{
				FirstMip:   ar.FirstMip,
				MipCount:   ar.MipCount,
				FirstSlice: minU32(ar.FirstSlice, br.FirstSlice),
				SliceCount: maxU32(ar.SliceEnd(), br.SliceEnd()) - minU32(ar.FirstSlice, br.FirstSlice),
			},
			State: a.State,
		}, true
	}
	if sameSlice && touchesOrOverlaps(ar.FirstMip, ar.MipEnd(), br.FirstMip, br.MipEnd()) {
		return Segment{
			Range: types.SubresourceRange{
				FirstMip:   minU32(ar.FirstMip, br.FirstMip),
				MipCount:   maxU32(ar.MipEnd(), br.MipEnd()) - minU32(ar.FirstMip, br.FirstMip),
				FirstSlice: ar.FirstSlice,
				SliceCount: ar.SliceCount,
			},
			State: a.State,
		}, true
	}
	return Segment{}, false
}

func touchesOrOverlaps(aLo, aHi, bLo, bHi uint32) bool {
	return aLo <= bHi && bLo <= aHi
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// mergeAdjacent sweeps the (sorted) segment list and folds together any
// pair that tryMerge accepts, repeating until a full pass makes no change.
// Segment counts in this tracker are small (bounded by mip×slice splits per
// frame), so the O(n^2) worst case here never matters in practice.
func mergeAdjacent(segs []Segment) []Segment {
	for {
		sortSegments(segs)
		merged := false
		out := make([]Segment, 0, len(segs))
		skip := make([]bool, len(segs))
		for i := range segs {
			if skip[i] {
				continue
			}
			cur := segs[i]
			for j := i + 1; j < len(segs); j++ {
				if skip[j] {
					continue
				}
				if m, ok := tryMerge(cur, segs[j]); ok {
					cur = m
					skip[j] = true
					merged = true
				}
			}
			out = append(out, cur)
		}
		segs = out
		if !merged {
			return segs
		}
	}
}
