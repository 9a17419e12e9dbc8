package alias

import "sort"

// PoolSnapshot is a point-in-time dump of one pool's bookkeeping, for
// debug UIs and tests that want to assert on packing behavior without
// reaching into Manager internals.
type PoolSnapshot struct {
	ID            string
	CapacityBytes uint64
	Alignment     uint64
	Generation    uint64
	UsedThisFrame bool
}

// DebugSnapshot returns a stable-ordered snapshot of every pool the
// Manager currently tracks.
func (m *Manager) DebugSnapshot() []PoolSnapshot {
	out := make([]PoolSnapshot, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, PoolSnapshot{
			ID:            p.ID,
			CapacityBytes: p.CapacityBytes,
			Alignment:     p.Alignment,
			Generation:    p.Generation,
			UsedThisFrame: p.UsedThisFrame,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemoryStats summarizes aliasing's memory win: how many bytes the pooled
// resources would have cost unaliased, versus how many bytes the pools
// actually occupy.
type MemoryStats struct {
	UnaliasedBytes uint64
	PooledBytes    uint64
	PoolCount      int
}

// ComputeMemoryStats sums candidate sizes against current pool capacities.
func ComputeMemoryStats(candidates map[uint64]*Candidate, m *Manager) MemoryStats {
	var stats MemoryStats
	for _, c := range candidates {
		stats.UnaliasedBytes += c.SizeBytes
	}
	for _, p := range m.pools {
		stats.PooledBytes += p.CapacityBytes
	}
	stats.PoolCount = len(m.pools)
	return stats
}
