package tree

import (
	"fmt"
	"maps"
	"slices"
)

// NodeID identifies a node within a single graph. IDs are assigned
// monotonically and never reused within a session.
type NodeID int64

// NoNode is the zero NodeID. It marks an unset root or decorator child.
const NoNode NodeID = 0

// =============================================================================
// Categories
// =============================================================================

// Category is the closed set of node types.
type Category int

const (
	Sequence Category = iota + 1
	Selector
	Decorator
	Action
	Condition
)

// Class groups categories by their arity rules.
type Class int

const (
	ClassComposite Class = iota + 1
	ClassDecorator
	ClassLeaf
)

var categoryNames = map[Category]string{
	Sequence:  "Sequence",
	Selector:  "Selector",
	Decorator: "Decorator",
	Action:    "Action",
	Condition: "Condition",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{Sequence, Selector, Decorator, Action, Condition}
}

// String returns the wire name of the category ("Sequence", "Action", ...).
func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Class returns the arity class of the category.
func (c Category) Class() Class {
	switch c {
	case Sequence, Selector:
		return ClassComposite
	case Decorator:
		return ClassDecorator
	default:
		return ClassLeaf
	}
}

// HasSubtype reports whether nodes of this category carry a catalog subtype.
// Composites are fully described by their category and have none.
func (c Category) HasSubtype() bool {
	return c.Class() != ClassComposite
}

// ParseCategory converts a wire name to a Category.
func ParseCategory(s string) (Category, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

func (c Class) String() string {
	switch c {
	case ClassComposite:
		return "Composite"
	case ClassDecorator:
		return "Decorator"
	case ClassLeaf:
		return "Leaf"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// =============================================================================
// Node
// =============================================================================

// Position is a 2-D editor coordinate. The zero value means "not laid out yet".
type Position struct {
	X float32
	Y float32
}

// IsZero reports whether p is the unset sentinel (0,0).
func (p Position) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Node is a single vertex of the tree.
//
// Children is used by composites and DecoratorChild by decorators; the two are
// mutually exclusive by convention, and the validator reports nodes that
// break the convention rather than the struct preventing it.
type Node struct {
	ID             NodeID
	Category       Category
	Subtype        string // catalog identifier; empty = unset
	Name           string // display label, defaults to the category name
	Position       Position
	Children       []NodeID
	DecoratorChild NodeID
	Parameters     map[string]string
}

// HasDecoratorChild reports whether a decorator child is set.
func (n *Node) HasDecoratorChild() bool { return n.DecoratorChild != NoNode }

// Successors returns the outgoing references of the node: its children
// followed by its decorator child, if any. References to missing nodes are
// included; callers filter them as needed.
func (n *Node) Successors() []NodeID {
	out := slices.Clone(n.Children)
	if n.HasDecoratorChild() {
		out = append(out, n.DecoratorChild)
	}
	return out
}

// DisplayName returns the name if set, otherwise the category name.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Category.String()
}

// Parameter returns the value stored under key.
func (n *Node) Parameter(key string) (string, bool) {
	v, ok := n.Parameters[key]
	return v, ok
}

func (n *Node) clone() *Node {
	c := *n
	c.Children = slices.Clone(n.Children)
	c.Parameters = maps.Clone(n.Parameters)
	if c.Parameters == nil {
		c.Parameters = map[string]string{}
	}
	return &c
}
