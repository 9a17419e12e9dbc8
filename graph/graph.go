// Package graph builds the per-frame dependency DAG over a merged pass list
// (§4.5 "Dependency Graph Builder and Batcher") and batches it for
// execution.
package graph

import (
	"errors"
	"sort"

	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/types"
)

// ErrCycle is returned when the access-derived + explicit edge set contains
// a cycle (§4.5 "reject cycles (fatal error)").
var ErrCycle = errors.New("graph: cycle detected among pass nodes")

// ResourceTouch is one resource touched by a node, with its dominant
// access for edge-derivation purposes (§4.5 "accessByID: Write dominates
// Read when merging duplicate references").
type ResourceTouch struct {
	ID     uint64
	Access types.Access
}

// Node is one vertex of the per-frame dependency graph: one entry per pass
// in the merged list (§4.5 "Per-frame node array").
type Node struct {
	Index               int
	Pass                pass.Pass
	Queue               types.QueueKind
	Requirements        []pass.Requirement
	InternalTransitions []pass.InternalTransition
	// After names passes this node must follow regardless of resource
	// access — per-frame extension "After(anchor)" constraints.
	After []string

	Touched []ResourceTouch
	UAVIDs  map[uint64]bool
}

// accessByID merges Touched into one dominant access per id, write
// dominating read for duplicate references within the same node.
func (n *Node) accessByID() map[uint64]types.Access {
	out := make(map[uint64]types.Access, len(n.Touched))
	for _, t := range n.Touched {
		out[t.ID] |= t.Access
	}
	return out
}

// Graph is the compiled dependency DAG for one frame.
type Graph struct {
	Nodes       []*Node
	edges       map[int]map[int]bool
	indegree    []int
	order       []int // topological order
	criticality []int // longest path to sink, indexed by node index
}

// Build derives RAW/WAR/WAW edges from resource access plus each node's
// explicit After constraints, topologically sorts, and computes
// criticality (§4.5 "Edge derivation", "Topological sort and criticality").
func Build(nodes []*Node) (*Graph, error) {
	g := &Graph{
		Nodes:    nodes,
		edges:    make(map[int]map[int]bool, len(nodes)),
		indegree: make([]int, len(nodes)),
	}
	for i := range nodes {
		g.edges[i] = make(map[int]bool)
	}

	nameToIndex := make(map[string]int, len(nodes))
	for _, n := range nodes {
		nameToIndex[n.Pass.Name()] = n.Index
	}

	addEdge := func(from, to int) {
		if from == to {
			return
		}
		if g.edges[from][to] {
			return
		}
		g.edges[from][to] = true
		g.indegree[to]++
	}

	lastWriter := make(map[uint64]int)
	readsSinceWrite := make(map[uint64][]int)

	for _, n := range nodes {
		access := n.accessByID()
		ids := make([]uint64, 0, len(access))
		for id := range access {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			a := access[id]
			if a.IsReadOnly() {
				if lw, ok := lastWriter[id]; ok {
					addEdge(lw, n.Index)
				}
				readsSinceWrite[id] = append(readsSinceWrite[id], n.Index)
				continue
			}
			if lw, ok := lastWriter[id]; ok {
				addEdge(lw, n.Index)
			}
			for _, r := range readsSinceWrite[id] {
				addEdge(r, n.Index)
			}
			readsSinceWrite[id] = nil
			lastWriter[id] = n.Index
		}
	}

	// Explicit After constraints, added after access-derived edges (§4.5).
	for _, n := range nodes {
		for _, anchorName := range n.After {
			if from, ok := nameToIndex[anchorName]; ok {
				addEdge(from, n.Index)
			}
		}
	}

	order, err := kahnSort(nodes, g.edges, g.indegree)
	if err != nil {
		return nil, err
	}
	g.order = order
	g.criticality = computeCriticality(nodes, g.edges, order)
	return g, nil
}

func kahnSort(nodes []*Node, edges map[int]map[int]bool, indegree []int) ([]int, error) {
	in := append([]int(nil), indegree...)
	var ready []int
	for i := range nodes {
		if in[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	var result []int
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		result = append(result, cur)

		var unlocked []int
		for to := range edges[cur] {
			in[to]--
			if in[to] == 0 {
				unlocked = append(unlocked, to)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Ints(ready)
		}
	}
	if len(result) != len(nodes) {
		return nil, ErrCycle
	}
	return result, nil
}

// computeCriticality walks the topological order in reverse, so every
// successor of u has already been assigned by the time u is processed
// (§4.5 "Criticality of node u = max over successors v of (1 +
// criticality(v))").
func computeCriticality(nodes []*Node, edges map[int]map[int]bool, order []int) []int {
	crit := make([]int, len(nodes))
	for i := len(order) - 1; i >= 0; i-- {
		u := order[i]
		best := 0
		for v := range edges[u] {
			if c := 1 + crit[v]; c > best {
				best = c
			}
		}
		crit[u] = best
	}
	return crit
}

// TopologicalOrder returns the node indices in topological order.
func (g *Graph) TopologicalOrder() []int { return append([]int(nil), g.order...) }

// Criticality returns node index i's longest-path-to-sink length.
func (g *Graph) Criticality(i int) int { return g.criticality[i] }

// Successors returns the set of node indices i has an edge to.
func (g *Graph) Successors(i int) []int {
	out := make([]int, 0, len(g.edges[i]))
	for to := range g.edges[i] {
		out = append(out, to)
	}
	sort.Ints(out)
	return out
}

// Indegree returns node index i's indegree in the built graph.
func (g *Graph) Indegree(i int) int { return g.indegree[i] }
