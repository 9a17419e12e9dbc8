package recorder

import (
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

// Requirement is one compile-time-discovered resource requirement — a
// handle, the subresource range touched, and the state it was touched with
// (§3 "ResourceRequirement").
type Requirement struct {
	Handle registry.Handle[*resource.Resource]
	Range  types.SubresourceRange
	State  types.ResourceState
}
