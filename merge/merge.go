// Package merge implements the structural merger (§4.4): combining a stable
// "base" pass list with per-extension contributions into one ordered list,
// honoring each external pass's placement constraint relative to named
// anchors and two sentinel nodes.
package merge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/rendergraph/hal"
	"github.com/gogpu/rendergraph/pass"
)

// ErrCycle is returned when the merge graph contains a cycle — a fatal
// condition the caller cannot recover from (§4.4 "cycle (fatal)").
var ErrCycle = errors.New("merge: cycle detected among base and extension passes")

// ErrDuplicateName is returned when a base pass and an extension-contributed
// pass (or two extension passes) share a name (§4.4 "Duplicate pass name
// across base+external collision").
var ErrDuplicateName = errors.New("merge: duplicate pass name")

// External is one extension-contributed pass: the pass itself, the
// extension it belongs to (for keepExtensionOrder chaining), and its
// gather order within that extension's contribution list.
type External struct {
	Pass       pass.Pass
	Extension  string
	GatherRank int
}

// node is an internal merge-graph vertex. Base passes and externals both
// become nodes; the two sentinels are separate well-known nodes.
type node struct {
	name       string
	p          pass.Pass // nil for sentinels
	priority   int
	gatherRank int
	isBase     bool
}

const (
	sentinelBegin     = "__rg_begin__"
	sentinelAfterBase = "__rg_after_base__"
)

// Merge combines base (in declaration order) with externals, respecting
// each external's InsertPoint, and returns the merged pass order with
// sentinels dropped.
func Merge(base []pass.Pass, externals []External) ([]pass.Pass, error) {
	nodes := make(map[string]*node)
	var order []string // insertion order, used for stable "global gather order"

	addNode := func(n *node) error {
		if _, exists := nodes[n.name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateName, n.name)
		}
		nodes[n.name] = n
		order = append(order, n.name)
		return nil
	}

	if err := addNode(&node{name: sentinelBegin}); err != nil {
		return nil, err
	}
	if err := addNode(&node{name: sentinelAfterBase}); err != nil {
		return nil, err
	}

	for i, p := range base {
		if err := addNode(&node{name: p.Name(), p: p, isBase: true, gatherRank: i}); err != nil {
			return nil, err
		}
	}
	for i, ext := range externals {
		if err := addNode(&node{name: ext.Pass.Name(), p: ext.Pass, gatherRank: i}); err != nil {
			return nil, err
		}
		if ip, ok := ext.Pass.InsertPoint(); ok {
			nodes[ext.Pass.Name()].priority = ip.Priority
		}
	}

	edges := make(map[string]map[string]bool)
	indegree := make(map[string]int)
	for _, n := range order {
		edges[n] = make(map[string]bool)
		indegree[n] = 0
	}
	addEdge := func(from, to string) {
		if from == to {
			return
		}
		if _, ok := nodes[from]; !ok {
			return
		}
		if _, ok := nodes[to]; !ok {
			return
		}
		if edges[from][to] {
			return
		}
		edges[from][to] = true
		indegree[to]++
	}

	// begin -> first-base -> ... -> last-base -> after-base, or
	// begin -> after-base if base is empty (§4.4 "Algorithm").
	prev := sentinelBegin
	for _, p := range base {
		addEdge(prev, p.Name())
		prev = p.Name()
	}
	addEdge(prev, sentinelAfterBase)

	resolveAnchor := func(a pass.Anchor) (string, bool) {
		switch a {
		case pass.AnchorBegin:
			return sentinelBegin, true
		case pass.AnchorEnd:
			return sentinelAfterBase, true
		case pass.AnchorAfterBase:
			return sentinelAfterBase, true
		case pass.AnchorFirstBase:
			if len(base) == 0 {
				return "", false
			}
			return base[0].Name(), true
		default:
			name := string(a)
			if _, ok := nodes[name]; ok {
				return name, true
			}
			return "", false
		}
	}

	// Per-extension keepExtensionOrder chaining: consecutive externals from
	// the same extension get predecessor->successor edges.
	lastInExtension := make(map[string]string)

	for _, ext := range externals {
		self := ext.Pass.Name()
		ip, ok := ext.Pass.InsertPoint()
		if !ok {
			ip = pass.InsertPoint{After: []pass.Anchor{pass.AnchorAfterBase}}
		}

		for _, a := range ip.After {
			if target, ok := resolveAnchor(a); ok {
				addEdge(target, self)
			} else {
				// Missing anchor: warn and ignore, not fatal (§4.4 "Errors").
				hal.Logger().Warn("merge: missing after-anchor ignored", "pass", self, "anchor", string(a))
			}
		}
		for _, b := range ip.Before {
			if target, ok := resolveAnchor(b); ok {
				addEdge(self, target)
			} else {
				hal.Logger().Warn("merge: missing before-anchor ignored", "pass", self, "anchor", string(b))
			}
		}
		if len(ip.After) == 0 && len(ip.Before) == 0 {
			addEdge(sentinelAfterBase, self)
		}

		if ip.KeepExtensionOrder {
			if predecessor, ok := lastInExtension[ext.Extension]; ok {
				addEdge(predecessor, self)
			}
			lastInExtension[ext.Extension] = self
		}
	}

	sorted, err := topoSort(order, nodes, edges, indegree)
	if err != nil {
		return nil, err
	}

	result := make([]pass.Pass, 0, len(sorted))
	for _, name := range sorted {
		if n := nodes[name]; n.p != nil {
			result = append(result, n.p)
		}
	}
	return result, nil
}

// topoSort performs Kahn's algorithm with ties broken by
// (priority asc, global gather order asc), per §4.4.
func topoSort(order []string, nodes map[string]*node, edges map[string]map[string]bool, indegree map[string]int) ([]string, error) {
	indegree = cloneIndegree(indegree)

	globalRank := make(map[string]int, len(order))
	for i, n := range order {
		globalRank[n] = i
	}

	var ready []string
	for _, n := range order {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	lessReady := func(a, b string) bool {
		na, nb := nodes[a], nodes[b]
		if na.priority != nb.priority {
			return na.priority < nb.priority
		}
		return globalRank[a] < globalRank[b]
	}
	sort.Slice(ready, func(i, j int) bool { return lessReady(ready[i], ready[j]) })

	var result []string
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		result = append(result, cur)

		var unlocked []string
		for to := range edges[cur] {
			indegree[to]--
			if indegree[to] == 0 {
				unlocked = append(unlocked, to)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Slice(ready, func(i, j int) bool { return lessReady(ready[i], ready[j]) })
		}
	}

	if len(result) != len(order) {
		return nil, ErrCycle
	}
	return result, nil
}

func cloneIndegree(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
