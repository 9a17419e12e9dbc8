package recorder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/rendergraph/types"
)

// ErrConflictingState is returned when two ops on the same resource inside
// one recording request different states — the recorder has no way to
// insert a barrier mid-bytecode, so this is fatal (§4.3 "conflicting states
// fail").
var ErrConflictingState = errors.New("recorder: conflicting states recorded for one resource")

// sliceInterval is a half-open [Lo, Hi) array-slice range within one mip.
type sliceInterval struct {
	lo, hi uint32
}

// resourceAccess accumulates the subresource rectangles touched for one
// resource handle across a recording, per mip level (§4.3 "Access
// accumulator").
type resourceAccess struct {
	handleIndex uint32
	hasState    bool
	state       types.ResourceState
	totalMips   uint32
	totalSlices uint32
	perMip      [][]sliceInterval
}

func newResourceAccess(handleIndex, totalMips, totalSlices uint32) *resourceAccess {
	mips := totalMips
	if mips == 0 {
		mips = 1
	}
	return &resourceAccess{
		handleIndex: handleIndex,
		totalMips:   totalMips,
		totalSlices: totalSlices,
		perMip:      make([][]sliceInterval, mips),
	}
}

// mark records that [firstSlice, firstSlice+sliceCount) of mip was touched
// with state. Every mark on one resourceAccess must carry the same state
// identity; a mismatch is fatal.
func (ra *resourceAccess) mark(mip, firstSlice, sliceCount uint32, state types.ResourceState) error {
	if ra.hasState && !ra.state.EqualIdentity(state) {
		return fmt.Errorf("%w (handle %d)", ErrConflictingState, ra.handleIndex)
	}
	ra.hasState = true
	ra.state = state

	if int(mip) >= len(ra.perMip) {
		return fmt.Errorf("recorder: mip %d out of range (handle %d has %d mips)", mip, ra.handleIndex, len(ra.perMip))
	}
	ra.perMip[mip] = insertInterval(ra.perMip[mip], sliceInterval{lo: firstSlice, hi: firstSlice + sliceCount})
	return nil
}

// insertInterval adds add to a sorted, disjoint interval list, merging with
// any interval it touches or overlaps.
func insertInterval(list []sliceInterval, add sliceInterval) []sliceInterval {
	list = append(list, add)
	sort.Slice(list, func(i, j int) bool { return list[i].lo < list[j].lo })

	merged := list[:0]
	for _, iv := range list {
		if n := len(merged); n > 0 && iv.lo <= merged[n-1].hi {
			if iv.hi > merged[n-1].hi {
				merged[n-1].hi = iv.hi
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func sameIntervals(a, b []sliceInterval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// finalize runs the §4.3 "Finalize rectangle compression" algorithm: extend
// identical slice-interval sets across consecutive mips into rectangles,
// then iteratively merge rectangles sharing one axis extent until stable.
func (ra *resourceAccess) finalize() []types.SubresourceRange {
	if !ra.hasState {
		return nil
	}

	var rects []types.SubresourceRange
	mip := uint32(0)
	total := uint32(len(ra.perMip))
	for mip < total {
		cur := ra.perMip[mip]
		start := mip
		end := mip + 1
		for end < total && sameIntervals(ra.perMip[end], cur) {
			end++
		}
		for _, iv := range cur {
			rects = append(rects, types.SubresourceRange{
				FirstMip:   start,
				MipCount:   end - start,
				FirstSlice: iv.lo,
				SliceCount: iv.hi - iv.lo,
			})
		}
		mip = end
	}
	return mergeRectangles(rects)
}

func mergeRectangles(rects []types.SubresourceRange) []types.SubresourceRange {
	for {
		merged := false
		out := make([]types.SubresourceRange, 0, len(rects))
		skip := make([]bool, len(rects))
		for i := range rects {
			if skip[i] {
				continue
			}
			cur := rects[i]
			for j := i + 1; j < len(rects); j++ {
				if skip[j] {
					continue
				}
				if m, ok := tryMergeRect(cur, rects[j]); ok {
					cur = m
					skip[j] = true
					merged = true
				}
			}
			out = append(out, cur)
		}
		rects = out
		if !merged {
			return rects
		}
	}
}

func tryMergeRect(a, b types.SubresourceRange) (types.SubresourceRange, bool) {
	sameMip := a.FirstMip == b.FirstMip && a.MipEnd() == b.MipEnd()
	sameSlice := a.FirstSlice == b.FirstSlice && a.SliceEnd() == b.SliceEnd()

	if sameMip && touches(a.FirstSlice, a.SliceEnd(), b.FirstSlice, b.SliceEnd()) {
		lo, hi := minU32(a.FirstSlice, b.FirstSlice), maxU32(a.SliceEnd(), b.SliceEnd())
		return types.SubresourceRange{FirstMip: a.FirstMip, MipCount: a.MipCount, FirstSlice: lo, SliceCount: hi - lo}, true
	}
	if sameSlice && touches(a.FirstMip, a.MipEnd(), b.FirstMip, b.MipEnd()) {
		lo, hi := minU32(a.FirstMip, b.FirstMip), maxU32(a.MipEnd(), b.MipEnd())
		return types.SubresourceRange{FirstMip: lo, MipCount: hi - lo, FirstSlice: a.FirstSlice, SliceCount: a.SliceCount}, true
	}
	return types.SubresourceRange{}, false
}

func touches(aLo, aHi, bLo, bHi uint32) bool { return aLo <= bHi && bLo <= aHi }

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
