package alias

import "github.com/gogpu/rendergraph/types"

// Allocation is an opaque backing allocation handle the host's allocator
// hands back; the scheduler core never interprets it, only compares
// identity and enqueues it for deferred deletion (§4.6 "Pool lifecycle").
type Allocation interface{}

// Allocator creates and frees pool backings of a requested size/alignment.
type Allocator interface {
	Allocate(sizeBytes, alignment uint64) Allocation
	Free(a Allocation)
}

// PlacementSignature identifies a specific placement of a resource within
// a pool generation; a resource whose recorded signature no longer matches
// its current one must be dematerialized and re-activated (§4.6 "Pool
// lifecycle").
type PlacementSignature struct {
	PoolID         string
	StartByte      uint64
	EndByte        uint64
	PoolGeneration uint64
}

// Pool is one persistent aliasing pool: a backing allocation that's grown,
// shrunk, or retired across frames as its candidate set changes (§4.6
// "Pool lifecycle").
type Pool struct {
	ID            string
	Allocation    Allocation
	CapacityBytes uint64
	Alignment     uint64
	Generation    uint64
	LastUsedFrame uint64
	UsedThisFrame bool
}

// Manager owns every persistent pool across frames and the per-resource
// placement signatures needed to detect when a pool regrew/shrank under a
// resource.
type Manager struct {
	pools        map[string]*Pool
	placements   map[uint64]PlacementSignature
	retireIdleAfter uint64
	growthHeadroom  float32
	allocator       Allocator
	pendingFree     []Allocation
}

// NewManager creates a pool Manager. alloc is the host's backing allocator.
func NewManager(alloc Allocator, settings types.Settings) *Manager {
	return &Manager{
		pools:           make(map[string]*Pool),
		placements:      make(map[uint64]PlacementSignature),
		retireIdleAfter: uint64(settings.AutoAliasPoolRetireIdleFrames),
		growthHeadroom:  settings.AutoAliasPoolGrowthHeadroom,
		allocator:       alloc,
	}
}

// ActivationPending returns the set of resource ids whose placement
// changed this frame (pool regrew/shrank, or first placement) and which
// therefore need the alias-activation barrier (§4.6 "Alias activation
// barrier").
type ActivationPending map[uint64]bool

// SyncPool updates or creates the pool for poolID to fit requiredBytes at
// alignment, applying growth headroom and shrink rules, and reports which
// resources placed in it need re-activation this frame (§4.6 "Pool
// lifecycle", point 1).
func (m *Manager) SyncPool(frame uint64, poolID string, requiredBytes, alignment uint64, placements map[uint64]Placement) ActivationPending {
	pending := make(ActivationPending)
	p, ok := m.pools[poolID]
	if !ok {
		p = &Pool{ID: poolID}
		m.pools[poolID] = p
	}
	p.LastUsedFrame = frame
	p.UsedThisFrame = true

	needsGrow := requiredBytes > p.CapacityBytes || alignment > p.Alignment
	needsShrink := !needsGrow && requiredBytes < p.CapacityBytes
	if needsGrow {
		newCapacity := uint64(float32(requiredBytes) * m.growthHeadroom)
		if newCapacity < requiredBytes {
			newCapacity = requiredBytes
		}
		m.regenerate(p, newCapacity, alignment)
	} else if needsShrink {
		m.regenerate(p, requiredBytes, alignment)
	}

	for id, pl := range placements {
		sig := PlacementSignature{PoolID: poolID, StartByte: pl.StartByte, EndByte: pl.EndByte, PoolGeneration: p.Generation}
		if existing, ok := m.placements[id]; !ok || existing != sig {
			pending[id] = true
		}
		m.placements[id] = sig
	}
	return pending
}

func (m *Manager) regenerate(p *Pool, newCapacity, alignment uint64) {
	if p.Allocation != nil {
		m.pendingFree = append(m.pendingFree, p.Allocation)
	}
	p.Allocation = m.allocator.Allocate(newCapacity, alignment)
	p.CapacityBytes = newCapacity
	p.Alignment = alignment
	p.Generation++
}

// RetireIdlePools drops any pool not used for retireIdleAfter frames,
// returning the ids of resources whose placements must be cleared and
// dematerialized (§4.6 "retired: associated resources are dematerialized,
// placement metadata is cleared, and the allocation is freed").
func (m *Manager) RetireIdlePools(frame uint64) []uint64 {
	var dematerialize []uint64
	for id, p := range m.pools {
		if p.UsedThisFrame {
			p.UsedThisFrame = false
			continue
		}
		if frame-p.LastUsedFrame < m.retireIdleAfter {
			continue
		}
		for resID, sig := range m.placements {
			if sig.PoolID == p.ID {
				dematerialize = append(dematerialize, resID)
				delete(m.placements, resID)
			}
		}
		if p.Allocation != nil {
			m.pendingFree = append(m.pendingFree, p.Allocation)
		}
		delete(m.pools, id)
	}
	return dematerialize
}

// DrainPendingFrees returns and clears allocations queued for deferred
// deletion by regeneration or retirement.
func (m *Manager) DrainPendingFrees() []Allocation {
	out := m.pendingFree
	m.pendingFree = nil
	return out
}

// PoolAllocation returns poolID's current backing allocation, or (nil,
// false) if SyncPool has never been called for it. Callers use this to
// place each candidate's resource within the backing via
// hal.Allocator.CreateAliasingResource.
func (m *Manager) PoolAllocation(poolID string) (Allocation, bool) {
	p, ok := m.pools[poolID]
	if !ok || p.Allocation == nil {
		return nil, false
	}
	return p.Allocation, true
}

// ActivationTransition is the barrier emitted on a resource's first use
// after activation-pending is set (§4.6 "Alias activation barrier").
func ActivationTransition(desired types.ResourceState) (from, to types.ResourceState, discard bool) {
	return types.ResourceState{Layout: types.LayoutUndefined, Access: types.AccessNone, Sync: types.SyncNone}, desired, true
}
