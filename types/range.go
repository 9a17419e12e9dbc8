package types

// BoundKind identifies which of the four symbolic bound shapes a Bound holds.
type BoundKind uint8

const (
	// BoundExact pins the axis to a single concrete value.
	BoundExact BoundKind = iota
	// BoundFrom anchors the axis at a value and extends toward the far end.
	// As a lower bound this means "from v to the end"; as an upper bound it
	// means unbounded (the asymmetry §3 calls out).
	BoundFrom
	// BoundUpTo anchors the axis up to a value from the near end.
	// As an upper bound this means "0..v"; as a lower bound it means "from
	// zero" (the other half of the asymmetry).
	BoundUpTo
	// BoundAll spans the entire axis regardless of position.
	BoundAll
)

// Bound is one symbolic endpoint of a RangeSpec axis. The same shape means
// different concrete things depending on whether it is used as a lower or
// an upper bound; see resolveLower/resolveUpper.
type Bound struct {
	Kind  BoundKind
	Value uint32
}

// Exact returns a bound pinned to v.
func Exact(v uint32) Bound { return Bound{Kind: BoundExact, Value: v} }

// From returns a bound anchored at v extending toward the far end.
func From(v uint32) Bound { return Bound{Kind: BoundFrom, Value: v} }

// UpTo returns a bound anchored up to v from the near end.
func UpTo(v uint32) Bound { return Bound{Kind: BoundUpTo, Value: v} }

// All returns a bound spanning the entire axis.
func All() Bound { return Bound{Kind: BoundAll} }

// resolveLower resolves this bound used as the *lower* end of a range,
// given the axis's total extent.
func (b Bound) resolveLower(total uint32) uint32 {
	switch b.Kind {
	case BoundExact:
		return b.Value
	case BoundFrom:
		return b.Value
	case BoundUpTo:
		// UpTo as a lower bound means "from zero".
		return 0
	case BoundAll:
		return 0
	default:
		return 0
	}
}

// resolveUpper resolves this bound used as the *upper* end of a range
// (exclusive), given the axis's total extent.
func (b Bound) resolveUpper(total uint32) uint32 {
	switch b.Kind {
	case BoundExact:
		if b.Value >= total {
			return total
		}
		return b.Value + 1
	case BoundFrom:
		// From as an upper bound means unbounded.
		return total
	case BoundUpTo:
		if b.Value >= total {
			return total
		}
		return b.Value + 1
	case BoundAll:
		return total
	default:
		return total
	}
}

// RangeSpec is a resource-agnostic symbolic rectangle over a texture's
// (mip, array slice) space. It is resolved against a concrete resource's
// dimensions into a SubresourceRange.
type RangeSpec struct {
	MipLower   Bound
	MipUpper   Bound
	SliceLower Bound
	SliceUpper Bound
}

// FullRange returns a RangeSpec spanning every mip and every slice.
func FullRange() RangeSpec {
	return RangeSpec{MipLower: All(), MipUpper: All(), SliceLower: All(), SliceUpper: All()}
}

// SingleMip returns a RangeSpec pinned to one mip level across all slices.
func SingleMip(mip uint32) RangeSpec {
	return RangeSpec{MipLower: Exact(mip), MipUpper: Exact(mip), SliceLower: All(), SliceUpper: All()}
}

// SubresourceRange is the concrete resolution of a RangeSpec against one
// resource's (totalMips, totalSlices). FirstMip/FirstSlice and the two
// counts describe a half-open rectangle.
type SubresourceRange struct {
	FirstMip   uint32
	MipCount   uint32
	FirstSlice uint32
	SliceCount uint32
}

// Resolve turns a symbolic RangeSpec into a concrete SubresourceRange given
// a resource's total mip and array-slice counts. The range is empty
// (MipCount == 0 or SliceCount == 0) if either total is zero.
func (r RangeSpec) Resolve(totalMips, totalSlices uint32) SubresourceRange {
	if totalMips == 0 || totalSlices == 0 {
		return SubresourceRange{}
	}
	mipLo := r.MipLower.resolveLower(totalMips)
	mipHi := r.MipUpper.resolveUpper(totalMips)
	sliceLo := r.SliceLower.resolveLower(totalSlices)
	sliceHi := r.SliceUpper.resolveUpper(totalSlices)
	if mipHi <= mipLo || sliceHi <= sliceLo {
		return SubresourceRange{}
	}
	return SubresourceRange{
		FirstMip:   mipLo,
		MipCount:   mipHi - mipLo,
		FirstSlice: sliceLo,
		SliceCount: sliceHi - sliceLo,
	}
}

// IsEmpty reports whether the range covers zero subresources.
func (s SubresourceRange) IsEmpty() bool {
	return s.MipCount == 0 || s.SliceCount == 0
}

// MipEnd returns the exclusive upper mip bound.
func (s SubresourceRange) MipEnd() uint32 { return s.FirstMip + s.MipCount }

// SliceEnd returns the exclusive upper array-slice bound.
func (s SubresourceRange) SliceEnd() uint32 { return s.FirstSlice + s.SliceCount }

// Intersect returns the overlap of two ranges. Per §4.1, intersection is
// computed per-axis with max(lower) and min(upper); an empty result on
// either axis yields an overall-empty range.
func Intersect(a, b SubresourceRange) SubresourceRange {
	if a.IsEmpty() || b.IsEmpty() {
		return SubresourceRange{}
	}
	mipLo := maxU32(a.FirstMip, b.FirstMip)
	mipHi := minU32(a.MipEnd(), b.MipEnd())
	sliceLo := maxU32(a.FirstSlice, b.FirstSlice)
	sliceHi := minU32(a.SliceEnd(), b.SliceEnd())
	if mipHi <= mipLo || sliceHi <= sliceLo {
		return SubresourceRange{}
	}
	return SubresourceRange{
		FirstMip:   mipLo,
		MipCount:   mipHi - mipLo,
		FirstSlice: sliceLo,
		SliceCount: sliceHi - sliceLo,
	}
}

// Overlaps reports whether a and b share at least one subresource cell.
func Overlaps(a, b SubresourceRange) bool {
	return !Intersect(a, b).IsEmpty()
}

// Subtract returns the remainder strips of orig after removing cut, per the
// §4.1 algorithm: up to two mip strips (below/above the cut's mip span) and
// up to two slice strips within the cut's mip span (below/above the cut's
// slice span). Empty strips are omitted. cut must be fully contained within
// orig's mip span for the slice strips to be meaningful; callers only ever
// call Subtract with cut == Intersect(orig, something).
func Subtract(orig, cut SubresourceRange) []SubresourceRange {
	if orig.IsEmpty() {
		return nil
	}
	if cut.IsEmpty() {
		return []SubresourceRange{orig}
	}
	var out []SubresourceRange

	if cut.FirstMip > orig.FirstMip {
		out = append(out, SubresourceRange{
			FirstMip:   orig.FirstMip,
			MipCount:   cut.FirstMip - orig.FirstMip,
			FirstSlice: orig.FirstSlice,
			SliceCount: orig.SliceCount,
		})
	}
	if cut.MipEnd() < orig.MipEnd() {
		out = append(out, SubresourceRange{
			FirstMip:   cut.MipEnd(),
			MipCount:   orig.MipEnd() - cut.MipEnd(),
			FirstSlice: orig.FirstSlice,
			SliceCount: orig.SliceCount,
		})
	}
	// The remaining slice strips live within the cut's own mip span.
	if cut.FirstSlice > orig.FirstSlice {
		out = append(out, SubresourceRange{
			FirstMip:   cut.FirstMip,
			MipCount:   cut.MipCount,
			FirstSlice: orig.FirstSlice,
			SliceCount: cut.FirstSlice - orig.FirstSlice,
		})
	}
	if cut.SliceEnd() < orig.SliceEnd() {
		out = append(out, SubresourceRange{
			FirstMip:   cut.FirstMip,
			MipCount:   cut.MipCount,
			FirstSlice: cut.SliceEnd(),
			SliceCount: orig.SliceEnd() - cut.SliceEnd(),
		})
	}
	return out
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
