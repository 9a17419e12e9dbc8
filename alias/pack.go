package alias

import "sort"

// Placement is a candidate's packed byte range within its pool.
type Placement struct {
	CandidateID uint64
	StartByte   uint64
	EndByte     uint64
}

type freeRange struct {
	start, end uint64
}

type activeRange struct {
	id            uint64
	start, end    uint64
	lastUse       uint64
}

// PackResult is the outcome of packing one pool's candidates.
type PackResult struct {
	Placements    map[uint64]Placement
	HeapSizeBytes uint64
	Alignment     uint64
}

func alignUp(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	rem := v % alignment
	if rem == 0 {
		return v
	}
	return v + (alignment - rem)
}

// PackGreedy implements the §4.6 "Greedy sweep-line" packing algorithm.
func PackGreedy(candidates []*Candidate) PackResult {
	ordered := append([]*Candidate(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.FirstUse != b.FirstUse {
			return a.FirstUse < b.FirstUse
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		if a.LastUse != b.LastUse {
			return a.LastUse < b.LastUse
		}
		return a.ResourceID < b.ResourceID
	})

	var free []freeRange
	var active []activeRange
	var heapEnd uint64
	var poolAlignment uint64
	placements := make(map[uint64]Placement, len(ordered))

	releaseExpired := func(firstUse uint64) {
		kept := active[:0]
		for _, a := range active {
			if a.lastUse < firstUse {
				free = append(free, freeRange{start: a.start, end: a.end})
				continue
			}
			kept = append(kept, a)
		}
		active = kept
		free = coalesce(free)
	}

	for _, c := range ordered {
		if c.Alignment > poolAlignment {
			poolAlignment = c.Alignment
		}
		releaseExpired(c.FirstUse)

		bestIdx := -1
		var bestSlack uint64
		var bestStart uint64
		for i, f := range free {
			start := alignUp(f.start, c.Alignment)
			if start+c.SizeBytes > f.end {
				continue
			}
			slack := (f.end - f.start) - c.SizeBytes
			if bestIdx == -1 || slack < bestSlack {
				bestIdx, bestSlack, bestStart = i, slack, start
			}
		}

		var start, end uint64
		if bestIdx == -1 {
			start = alignUp(heapEnd, c.Alignment)
			end = start + c.SizeBytes
			heapEnd = end
		} else {
			f := free[bestIdx]
			start = bestStart
			end = start + c.SizeBytes
			free = append(free[:bestIdx], free[bestIdx+1:]...)
			if start > f.start {
				free = append(free, freeRange{start: f.start, end: start})
			}
			if end < f.end {
				free = append(free, freeRange{start: end, end: f.end})
			}
		}

		placements[c.ResourceID] = Placement{CandidateID: c.ResourceID, StartByte: start, EndByte: end}
		active = append(active, activeRange{id: c.ResourceID, start: start, end: end, lastUse: c.LastUse})
		if end > heapEnd {
			heapEnd = end
		}
	}

	return PackResult{Placements: placements, HeapSizeBytes: heapEnd, Alignment: poolAlignment}
}

func coalesce(ranges []freeRange) []freeRange {
	if len(ranges) < 2 {
		return ranges
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

const (
	beamWidth         = 24
	beamStartsPerState = 8
)

// beamState is one partial packing explored by the beam search.
type beamState struct {
	heapEnd    uint64
	free       []freeRange
	active     []activeRange
	placements map[uint64]Placement
}

func cloneState(s beamState) beamState {
	return beamState{
		heapEnd:    s.heapEnd,
		free:       append([]freeRange(nil), s.free...),
		active:     append([]activeRange(nil), s.active...),
		placements: cloneMapPlacement(s.placements),
	}
}

func cloneMapPlacement(m map[uint64]Placement) map[uint64]Placement {
	out := make(map[uint64]Placement, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PackBeamSearch implements §4.6's beam-search packing: starting from an
// empty heap, it explores alternative start offsets (0, the current heap
// end, or the end of any lifetime-overlapping predecessor) with a beam of
// width beamWidth and up to beamStartsPerState starts per retained state,
// pruning on heap size. The greedy plan is not used to seed the beam; it is
// computed separately and returned instead when the search's best heap is
// not smaller, or when there are fewer than two candidates.
func PackBeamSearch(candidates []*Candidate) PackResult {
	greedy := PackGreedy(candidates)
	if len(candidates) < 2 {
		return greedy
	}

	ordered := append([]*Candidate(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].FirstUse != ordered[j].FirstUse {
			return ordered[i].FirstUse < ordered[j].FirstUse
		}
		return ordered[i].ResourceID < ordered[j].ResourceID
	})

	beam := []beamState{{placements: make(map[uint64]Placement)}}

	for _, c := range ordered {
		var next []beamState
		for _, st := range beam {
			starts := candidateStarts(st, c)
			if len(starts) > beamStartsPerState {
				starts = starts[:beamStartsPerState]
			}
			for _, start := range starts {
				ns := cloneState(st)
				place(&ns, c, start)
				next = append(next, ns)
			}
		}
		if len(next) == 0 {
			return greedy
		}
		sort.Slice(next, func(i, j int) bool { return next[i].heapEnd < next[j].heapEnd })
		if len(next) > beamWidth {
			next = next[:beamWidth]
		}
		beam = next
	}

	best := beam[0]
	for _, st := range beam[1:] {
		if st.heapEnd < best.heapEnd {
			best = st
		}
	}
	if best.heapEnd >= greedy.HeapSizeBytes {
		return greedy
	}

	var alignment uint64
	for _, c := range ordered {
		if c.Alignment > alignment {
			alignment = c.Alignment
		}
	}
	return PackResult{Placements: best.placements, HeapSizeBytes: best.heapEnd, Alignment: alignment}
}

// candidateStarts proposes byte offsets to try for c against state st: the
// start of the heap (0), the current heap end, and the end of any
// currently-active range whose lifetime overlaps c's (a lifetime-overlapping
// predecessor).
func candidateStarts(st beamState, c *Candidate) []uint64 {
	starts := []uint64{0, st.heapEnd}
	for _, a := range st.active {
		if a.lastUse >= c.FirstUse {
			starts = append(starts, a.end)
		}
	}
	return starts
}

func place(st *beamState, c *Candidate, proposedStart uint64) {
	kept := st.active[:0]
	for _, a := range st.active {
		if a.lastUse < c.FirstUse {
			st.free = append(st.free, freeRange{start: a.start, end: a.end})
			continue
		}
		kept = append(kept, a)
	}
	st.active = kept
	st.free = coalesce(st.free)

	start := alignUp(proposedStart, c.Alignment)
	for _, a := range st.active {
		if start < a.end && a.start < start+c.SizeBytes {
			start = alignUp(a.end, c.Alignment)
		}
	}
	end := start + c.SizeBytes
	if end > st.heapEnd {
		st.heapEnd = end
	}
	st.active = append(st.active, activeRange{id: c.ResourceID, start: start, end: end, lastUse: c.LastUse})
	st.placements[c.ResourceID] = Placement{CandidateID: c.ResourceID, StartByte: start, EndByte: end}
}
