package layout

import (
	"github.com/matzehuels/btgraph/pkg/tree"
)

// Default spacing, in editor units.
const (
	DefaultStartX   = 200
	DefaultStartY   = 300
	DefaultHSpacing = 350
	DefaultVSpacing = 250
)

// Options controls node placement. Zero fields fall back to the defaults.
type Options struct {
	StartX   float32
	StartY   float32
	HSpacing float32
	VSpacing float32
}

// DefaultOptions returns the standard editor spacing.
func DefaultOptions() Options {
	return Options{
		StartX:   DefaultStartX,
		StartY:   DefaultStartY,
		HSpacing: DefaultHSpacing,
		VSpacing: DefaultVSpacing,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StartX == 0 {
		o.StartX = d.StartX
	}
	if o.StartY == 0 {
		o.StartY = d.StartY
	}
	if o.HSpacing == 0 {
		o.HSpacing = d.HSpacing
	}
	if o.VSpacing == 0 {
		o.VSpacing = d.VSpacing
	}
	return o
}

// Compute returns positions for every node reachable from the graph's root.
// It returns an empty map when the graph has no valid root. The graph is not
// modified.
func Compute(g *tree.Graph, opts Options) map[tree.NodeID]tree.Position {
	opts = opts.withDefaults()
	out := make(map[tree.NodeID]tree.Position)

	root := g.RootID()
	if !g.Has(root) {
		return out
	}

	type entry struct {
		id    tree.NodeID
		depth int
	}
	visited := map[tree.NodeID]bool{root: true}
	queue := []entry{{root, 0}}
	slots := make(map[int]int) // depth -> next sibling index

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		i := slots[e.depth]
		slots[e.depth]++
		out[e.id] = tree.Position{
			X: opts.StartX + float32(e.depth)*opts.HSpacing,
			Y: opts.StartY + float32(i)*opts.VSpacing,
		}

		n, _ := g.Node(e.id)
		for _, next := range n.Successors() {
			if visited[next] || !g.Has(next) {
				continue
			}
			visited[next] = true
			queue = append(queue, entry{next, e.depth + 1})
		}
	}
	return out
}

// Apply writes positions into the graph and returns how many nodes moved.
func Apply(g *tree.Graph, positions map[tree.NodeID]tree.Position) int {
	moved := 0
	for _, id := range g.IDs() {
		p, ok := positions[id]
		if !ok {
			continue
		}
		if n, _ := g.Node(id); n.Position != p {
			g.SetPosition(id, p.X, p.Y)
			moved++
		}
	}
	return moved
}

// Fill lays out only the reachable nodes that are still at the unset (0,0)
// position, leaving placed nodes where the user put them. It returns the
// number of nodes placed.
func Fill(g *tree.Graph, opts Options) int {
	positions := Compute(g, opts)
	for id := range positions {
		if n, _ := g.Node(id); !n.Position.IsZero() {
			delete(positions, id)
		}
	}
	return Apply(g, positions)
}

// Unplaced reports whether the graph has nodes and none of them carries a
// position, which is the state of a freshly migrated legacy document.
func Unplaced(g *tree.Graph) bool {
	if g.Len() == 0 {
		return false
	}
	for _, n := range g.Nodes() {
		if !n.Position.IsZero() {
			return false
		}
	}
	return true
}
