package tree

import (
	"maps"
	"slices"
)

// MaxChildren returns the maximum number of children a node of the category
// may have. The boolean is false when the category is unbounded (composites).
func MaxChildren(c Category) (int, bool) {
	switch c.Class() {
	case ClassDecorator:
		return 1, true
	case ClassLeaf:
		return 0, true
	default:
		return 0, false
	}
}

// MinChildren returns the minimum number of children a node of the category
// should have. For composites the minimum is a recommendation; the validator
// reports a violation as a warning.
func MinChildren(c Category) int {
	switch c.Class() {
	case ClassComposite, ClassDecorator:
		return 1
	default:
		return 0
	}
}

// WouldCreateCycle reports whether adding the edge from → to would close a
// loop, i.e. whether to can already reach from through existing child and
// decorator-child edges. A self-edge (from == to) always closes a loop.
func WouldCreateCycle(g *Graph, from, to NodeID) bool {
	if !g.Has(from) || !g.Has(to) {
		return false
	}
	if from == to {
		return true
	}
	return reaches([]NodeID{to}, from, g.successors)
}

// Parents returns the distinct nodes that reference id as a child or
// decorator child, in ascending ID order.
func Parents(g *Graph, id NodeID) []NodeID {
	var out []NodeID
	for _, n := range g.Nodes() {
		if n.DecoratorChild == id || slices.Contains(n.Children, id) {
			out = append(out, n.ID)
		}
	}
	return out
}

// ParentOf returns the parent of id. The boolean is false when the node has
// no parent or more than one.
func ParentOf(g *Graph, id NodeID) (NodeID, bool) {
	ps := Parents(g, id)
	if len(ps) != 1 {
		return NoNode, false
	}
	return ps[0], true
}

// RootNodes returns every node that has no parent, in ascending ID order.
// A well-formed tree has exactly one: the declared root.
func RootNodes(g *Graph) []NodeID {
	hasParent := parentSet(g)
	var out []NodeID
	for _, id := range g.IDs() {
		if !hasParent[id] {
			out = append(out, id)
		}
	}
	return out
}

// OrphanNodes returns the parentless nodes other than the declared root.
func OrphanNodes(g *Graph) []NodeID {
	return slices.DeleteFunc(RootNodes(g), func(id NodeID) bool { return id == g.RootID() })
}

// parentMap maps every referenced node to its distinct parents.
func parentMap(g *Graph) map[NodeID][]NodeID {
	out := make(map[NodeID][]NodeID)
	for _, n := range g.Nodes() {
		seen := make(map[NodeID]bool)
		for _, c := range n.Successors() {
			if seen[c] {
				continue
			}
			seen[c] = true
			out[c] = append(out[c], n.ID)
		}
	}
	return out
}

func parentSet(g *Graph) map[NodeID]bool {
	pm := parentMap(g)
	out := make(map[NodeID]bool, len(pm))
	for id := range maps.Keys(pm) {
		out[id] = true
	}
	return out
}
