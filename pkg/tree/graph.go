package tree

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is not positive.
	ErrInvalidNodeID = errors.New("node ID must be positive")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidCategory is returned by [Graph.AddNode] for an unknown category.
	ErrInvalidCategory = errors.New("invalid node category")
)

// EditorState is free-form view state persisted with the document.
type EditorState struct {
	Zoom    float64
	ScrollX float64
	ScrollY float64
}

// DefaultEditorState returns the view state of a freshly opened document.
func DefaultEditorState() EditorState { return EditorState{Zoom: 1} }

// Metadata is descriptive graph-level information. Timestamps are kept as the
// ISO 8601 strings found in the document so they survive a round trip as-is.
type Metadata struct {
	Author       string
	Created      string
	LastModified string
	Tags         []string
}

// Graph owns a behavior tree: its nodes, the declared root and graph-level
// metadata.
//
// The zero value is not usable; create graphs with [New].
// Graph is not safe for concurrent use.
type Graph struct {
	Name        string
	Description string
	Meta        Metadata
	Editor      EditorState

	nodes  map[NodeID]*Node
	root   NodeID
	nextID NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		Editor: DefaultEditorState(),
		nodes:  make(map[NodeID]*Node),
		nextID: 1,
	}
}

// =============================================================================
// Queries
// =============================================================================

// RootID returns the declared root, or [NoNode] if none is set.
func (g *Graph) RootID() NodeID { return g.root }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given ID. The pointer refers to the node
// stored in the graph; prefer the editing methods for changes so references
// stay consistent.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IDs returns all node IDs in ascending order.
func (g *Graph) IDs() []NodeID {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Nodes returns all nodes ordered by ascending ID.
func (g *Graph) Nodes() []*Node {
	ids := g.IDs()
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// NextID returns the ID the next created node will receive.
func (g *Graph) NextID() NodeID { return g.nextID }

// successors returns the existing nodes referenced by id, children first.
func (g *Graph) successors(id NodeID) []NodeID {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	var out []NodeID
	for _, s := range n.Successors() {
		if _, ok := g.nodes[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// Editing
// =============================================================================

// CreateNode appends a node of the given category at (x, y) and returns its
// freshly allocated ID. An empty name defaults to the category name. The first
// node created in a graph without a root becomes the root.
func (g *Graph) CreateNode(cat Category, x, y float32, name string) NodeID {
	if name == "" {
		name = cat.String()
	}
	id := g.nextID
	g.nextID++
	g.nodes[id] = &Node{
		ID:         id,
		Category:   cat,
		Name:       name,
		Position:   Position{X: x, Y: y},
		Parameters: map[string]string{},
	}
	if g.root == NoNode {
		g.root = id
	}
	return id
}

// AddNode inserts a fully specified node, as when populating a graph from a
// document. The node is copied. References to other nodes are stored as given
// and may dangle; the validator reports them.
func (g *Graph) AddNode(n Node) error {
	if n.ID <= 0 {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if !n.Category.Valid() {
		return ErrInvalidCategory
	}
	g.nodes[n.ID] = n.clone()
	if n.ID >= g.nextID {
		g.nextID = n.ID + 1
	}
	return nil
}

// SetRoot declares id as the root. Passing [NoNode] clears the root.
// Returns false if id is unknown.
func (g *Graph) SetRoot(id NodeID) bool {
	if id != NoNode && !g.Has(id) {
		return false
	}
	g.root = id
	return true
}

// DeleteNode removes the node and scrubs every reference to it from the
// remaining nodes. Deleting the root clears the root. Returns false if id is
// unknown.
func (g *Graph) DeleteNode(id NodeID) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	for _, n := range g.nodes {
		n.Children = slices.DeleteFunc(n.Children, func(c NodeID) bool { return c == id })
		if n.DecoratorChild == id {
			n.DecoratorChild = NoNode
		}
	}
	if g.root == id {
		g.root = NoNode
	}
	return true
}

// Link makes child a child of parent. Decorator parents replace any previous
// decorator child; all other parents append to their ordered children.
//
// Link fails without mutating the graph when either node is unknown or the
// link already exists. It does not check for cycles, multiple parents or
// arity; those are reported by the validator.
func (g *Graph) Link(parent, child NodeID) bool {
	p, ok := g.nodes[parent]
	if !ok || !g.Has(child) {
		return false
	}
	if p.Category == Decorator {
		if p.DecoratorChild == child {
			return false
		}
		p.DecoratorChild = child
		return true
	}
	if slices.Contains(p.Children, child) {
		return false
	}
	p.Children = append(p.Children, child)
	return true
}

// Unlink removes child from parent's children or clears a matching decorator
// child. Returns false if no such link exists.
func (g *Graph) Unlink(parent, child NodeID) bool {
	p, ok := g.nodes[parent]
	if !ok {
		return false
	}
	if p.DecoratorChild == child && child != NoNode {
		p.DecoratorChild = NoNode
		return true
	}
	i := slices.Index(p.Children, child)
	if i < 0 {
		return false
	}
	p.Children = slices.Delete(p.Children, i, i+1)
	return true
}

// SetParameter stores value under key on the node.
func (g *Graph) SetParameter(id NodeID, key, value string) bool {
	n, ok := g.nodes[id]
	if !ok || key == "" {
		return false
	}
	if n.Parameters == nil {
		n.Parameters = map[string]string{}
	}
	n.Parameters[key] = value
	return true
}

// RemoveParameter deletes key from the node's parameters.
func (g *Graph) RemoveParameter(id NodeID, key string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	if _, exists := n.Parameters[key]; !exists {
		return false
	}
	delete(n.Parameters, key)
	return true
}

// SetSubtype sets the catalog subtype of the node. Composites carry no
// subtype, so it returns false for them as for unknown ids.
func (g *Graph) SetSubtype(id NodeID, subtype string) bool {
	n, ok := g.nodes[id]
	if !ok || !n.Category.HasSubtype() {
		return false
	}
	n.Subtype = subtype
	return true
}

// Rename sets the display name of the node.
func (g *Graph) Rename(id NodeID, name string) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Name = name
	return true
}

// SetPosition moves the node.
func (g *Graph) SetPosition(id NodeID, x, y float32) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Position = Position{X: x, Y: y}
	return true
}

// Clone returns a deep copy of the graph, including the ID allocator, so the
// copy continues numbering where the original would.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Name:        g.Name,
		Description: g.Description,
		Meta:        g.Meta,
		Editor:      g.Editor,
		nodes:       make(map[NodeID]*Node, len(g.nodes)),
		root:        g.root,
		nextID:      g.nextID,
	}
	c.Meta.Tags = slices.Clone(g.Meta.Tags)
	for id, n := range g.nodes {
		c.nodes[id] = n.clone()
	}
	return c
}

// Validate runs the structural validator with the given catalog.
func (g *Graph) Validate(cat Catalog) []Diagnostic {
	return NewValidator(cat).Validate(g)
}
