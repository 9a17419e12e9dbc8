package registry

import (
	"fmt"

	"github.com/gogpu/rendergraph/types"
)

// View restricts a Registry to the identifiers covered by a declared set of
// namespace prefixes (§4.2 "Restricted view"). Each pass receives a View
// built from its own declared resource-identifier allow-list, so a pass that
// references another pass's private resource fails immediately instead of
// silently resolving it.
type View[T any] struct {
	registry *Registry[T]
	allowed  []types.ResourceIdentifier
}

// NewView wraps registry with an allow-list of prefixes. An empty allow-list
// means the pass declared no restriction and may request anything.
func NewView[T any](registry *Registry[T], allowedPrefixes ...types.ResourceIdentifier) *View[T] {
	return &View[T]{registry: registry, allowed: allowedPrefixes}
}

func (v *View[T]) permits(id types.ResourceIdentifier) bool {
	if len(v.allowed) == 0 {
		return true
	}
	for _, prefix := range v.allowed {
		if id.HasPrefix(prefix) {
			return true
		}
	}
	return false
}

// RequestShared resolves id to a handle through the wrapped registry,
// failing with ErrOutsideAllowlist if id is not covered by any of the view's
// declared prefixes (§4.2 "RequestShared ... throws when id is not in the
// caller's declared allow-list").
func (v *View[T]) RequestShared(id types.ResourceIdentifier, numMips, arraySize uint32) (Handle[T], error) {
	if !v.permits(id) {
		return Handle[T]{}, fmt.Errorf("%w: %s", ErrOutsideAllowlist, id.String())
	}
	return v.registry.MakeHandle(id, numMips, arraySize), nil
}

// Resolve dereferences h through the wrapped registry. Unlike RequestShared,
// Resolve does not allow-list check — a view's owner is trusted to only hold
// handles it legitimately obtained.
func (v *View[T]) Resolve(h Handle[T]) (T, bool) {
	return v.registry.Resolve(h)
}
