// Package alias implements the transient-memory aliasing subsystem (§4.6):
// candidate collection, auto-assignment scoring, greedy (and beam-search)
// lifetime packing within a pool, pool lifecycle management, and the
// activation-barrier/cross-queue-fence bookkeeping that keeps aliased
// placements safe to reuse.
package alias

import (
	"errors"

	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// ErrFirstUseNotWrite is returned when an aliased candidate's first
// reference is a read with no initializing write — the candidate was
// never brought into a defined state (§4.6 "First-use validation").
var ErrFirstUseNotWrite = errors.New("alias: aliased resource's first use is a read, not a write")

// Candidate is one resource considered for transient aliasing this frame
// (§4.6 "Candidate collection").
type Candidate struct {
	ResourceID uint64
	PoolID     string
	SizeBytes  uint64
	Alignment  uint64

	FirstUse uint64 // topological rank
	LastUse  uint64

	FirstUseIsWrite      bool
	MaxNodeCriticality    int
	IsMaterializedAtCompile bool
	ManualPoolAssigned    bool
}

// AllocationInfo is the device-reported size/alignment for a resource,
// queried once per candidate (§4.6 "size/alignment from the device's
// allocation-info query"); the scheduler core never computes this itself.
type AllocationInfo struct {
	SizeBytes uint64
	Alignment uint64
}

// Reference is one touch of a resource by a node in topological order —
// the input the collector walks to build/update Candidates.
type Reference struct {
	Resource *resource.Resource
	Rank     uint64
	State    types.ResourceState
	Criticality int
}

// AllocInfoQuery looks up a resource's device allocation info.
type AllocInfoQuery func(r *resource.Resource) AllocationInfo

const defaultPoolID = "__rg_default_pool__"

// CollectCandidates walks refs (already in topological order) and builds
// one Candidate per eligible resource — a texture or buffer with
// AllowAlias set, and for buffers, a device-local heap (§4.6 "Candidate
// collection").
func CollectCandidates(refs []Reference, query AllocInfoQuery) map[uint64]*Candidate {
	out := make(map[uint64]*Candidate)
	for _, ref := range refs {
		if !eligible(ref.Resource) {
			continue
		}
		id := ref.Resource.ID()
		c, ok := out[id]
		if !ok {
			info := query(ref.Resource)
			poolID := string(ref.Resource.PoolHint())
			manual := poolID != ""
			if poolID == "" {
				poolID = defaultPoolID
			}
			c = &Candidate{
				ResourceID:           id,
				PoolID:                poolID,
				SizeBytes:             info.SizeBytes,
				Alignment:             info.Alignment,
				FirstUse:              ref.Rank,
				LastUse:               ref.Rank,
				FirstUseIsWrite:       ref.State.Access.IsWrite() || ref.State.Access == types.AccessCommon,
				MaxNodeCriticality:    ref.Criticality,
				IsMaterializedAtCompile: ref.Resource.IsMaterialized(),
				ManualPoolAssigned:    manual,
			}
			out[id] = c
			continue
		}
		if ref.Rank < c.FirstUse {
			c.FirstUse = ref.Rank
		}
		if ref.Rank > c.LastUse {
			c.LastUse = ref.Rank
		}
		if ref.Criticality > c.MaxNodeCriticality {
			c.MaxNodeCriticality = ref.Criticality
		}
	}
	return out
}

func eligible(r *resource.Resource) bool {
	if !r.AllowAlias() {
		return false
	}
	// Texture()/Buffer() follow a dynamic wrapper to its current inner
	// resource, unlike Kind() which reports KindDynamicWrapper itself.
	if _, ok := r.Texture(); ok {
		return true
	}
	buf, ok := r.Buffer()
	return ok && buf.Heap == resource.HeapDefault
}

// Validate enforces the §4.6 "First-use validation" invariant.
func Validate(c *Candidate) error {
	if !c.FirstUseIsWrite {
		return ErrFirstUseNotWrite
	}
	return nil
}
