// Package types holds the core data model of the render graph: resource
// identifiers, subresource range algebra, and resource state description.
// It has no dependency on any other package in this module so that every
// other package (track, registry, pass, graph, alias, exec) can share one
// vocabulary without import cycles.
package types

import (
	"strings"
)

// ResourceIdentifier is a dotted namespace path, e.g. "Builtin.GBuffer.Normals".
// It caches its hash and its dotted string so repeated registry lookups and
// namespace allow-list checks don't re-hash or re-join on every call.
type ResourceIdentifier struct {
	segments []string
	joined   string
	hash     uint64
}

// NewResourceIdentifier builds an identifier from dotted segments.
func NewResourceIdentifier(segments ...string) ResourceIdentifier {
	joined := strings.Join(segments, ".")
	id := ResourceIdentifier{
		segments: append([]string(nil), segments...),
		joined:   joined,
		hash:     fnv1a(joined),
	}
	return id
}

// ParseResourceIdentifier splits a dotted string into an identifier.
func ParseResourceIdentifier(dotted string) ResourceIdentifier {
	if dotted == "" {
		return ResourceIdentifier{}
	}
	return NewResourceIdentifier(strings.Split(dotted, ".")...)
}

// String returns the dotted representation, e.g. "Builtin.GBuffer.Normals".
func (r ResourceIdentifier) String() string { return r.joined }

// Hash returns the cached FNV-1a hash of the dotted string, suitable as a
// map key alongside or instead of the string itself.
func (r ResourceIdentifier) Hash() uint64 { return r.hash }

// IsEmpty reports whether the identifier has no segments.
func (r ResourceIdentifier) IsEmpty() bool { return len(r.segments) == 0 }

// Segments returns the identifier's dotted path components.
// The returned slice must not be mutated.
func (r ResourceIdentifier) Segments() []string { return r.segments }

// HasPrefix reports whether r is equal to or nested under prefix, segment by
// segment. "Builtin.GBuffer.Normals".HasPrefix("Builtin.GBuffer") is true;
// "Builtin.GBufferX".HasPrefix("Builtin.GBuffer") is false, since prefix
// matching here is on whole segments, not substrings.
func (r ResourceIdentifier) HasPrefix(prefix ResourceIdentifier) bool {
	if len(prefix.segments) > len(r.segments) {
		return false
	}
	for i, seg := range prefix.segments {
		if r.segments[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports whether two identifiers denote the same path.
func (r ResourceIdentifier) Equal(other ResourceIdentifier) bool {
	return r.joined == other.joined
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
