// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

// Graph is a set of Nodes, deduplicated by (Kind, ID), forming a
// bidirectional, possibly-cyclic graph: for every edge a -> b in a's deps,
// the reverse edge b -> a exists in b's influences. The graph is an arena
// owned exclusively by the scheduler goroutine (spec.md §5); it performs
// no locking of its own.
type Graph struct {
	nodes map[nodeKey]*Node
	// order preserves insertion order for deterministic iteration (state
	// dumps, logs); the node set semantics never depend on it.
	order []nodeKey
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: map[nodeKey]*Node{}}
}

// Add inserts n into the graph if no node with the same identity is
// already present. It reports whether n was newly added.
func (g *Graph) Add(n *Node) bool {
	k := n.key()
	if _, ok := g.nodes[k]; ok {
		return false
	}
	g.nodes[k] = n
	g.order = append(g.order, k)
	return true
}

// Find returns the node with the given kind and id, or nil.
func (g *Graph) Find(kind Kind, id string) *Node {
	return g.nodes[nodeKey{kind, id}]
}

// FindEquivalent is find_equivalent (spec.md §4.4), done as a map lookup
// by (Kind, ID) rather than a linear scan: it returns the graph's own node
// with the same identity as n, or nil if n is not (yet) a member.
func (g *Graph) FindEquivalent(n *Node) *Node {
	return g.nodes[n.key()]
}

// All returns every node in the graph, in insertion order.
func (g *Graph) All() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, k := range g.order {
		if n, ok := g.nodes[k]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes currently in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// AddDependency inserts the edge a -> b: b becomes a member of a's deps,
// and a becomes a member of b's influences. Idempotent.
func (g *Graph) AddDependency(a, b *Node) {
	if a.hasDep(b) {
		return
	}
	a.deps[b.key()] = b
	b.influences[a.key()] = a
}

// removeDependency is the inverse of AddDependency, used only by Merge
// when redirecting edges off a discarded duplicate.
func removeDependency(a, b *Node) {
	delete(a.deps, b.key())
	delete(b.influences, a.key())
}

// Merge folds dup's edges onto canonical and discards dup, preserving
// invariant 1 (b in a.deps iff a in b.influences) throughout. canonical is
// the pre-existing graph member; dup is the freshly discovered duplicate
// that is never itself added to the graph.
//
// After Merge, dup is referenced by no other node: every counterpart that
// pointed at dup now points at canonical instead, with the same edge
// direction.
func (g *Graph) Merge(canonical, dup *Node) {
	if canonical == dup {
		return
	}

	for _, d := range dup.Deps() {
		removeDependency(dup, d)
		g.AddDependency(canonical, d)
	}
	for _, inf := range dup.Influences() {
		removeDependency(inf, dup)
		g.AddDependency(inf, canonical)
	}
}
