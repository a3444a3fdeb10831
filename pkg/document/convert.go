package document

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/tree"
)

// FromGraph converts a graph to a current-schema BehaviorTree document.
// Nodes are written in ascending ID order.
func FromGraph(g *tree.Graph) *Document {
	nodes := make([]Node, 0, g.Len())
	for _, n := range g.Nodes() {
		nodes = append(nodes, fromNode(n))
	}
	return &Document{
		SchemaVersion: CurrentVersion,
		Kind:          KindBehaviorTree,
		Name:          g.Name,
		Description:   g.Description,
		Metadata: Metadata{
			Author:       g.Meta.Author,
			Created:      g.Meta.Created,
			LastModified: g.Meta.LastModified,
			Tags:         append([]string{}, g.Meta.Tags...),
		},
		EditorState: EditorState{
			Zoom:         g.Editor.Zoom,
			ScrollOffset: Vec2{X: g.Editor.ScrollX, Y: g.Editor.ScrollY},
		},
		Tree: &TreeData{
			RootNodeID: int64(g.RootID()),
			Nodes:      nodes,
		},
	}
}

func fromNode(n *tree.Node) Node {
	out := Node{
		ID:       int64(n.ID),
		Name:     n.Name,
		Type:     n.Category.String(),
		Position: &Position{X: n.Position.X, Y: n.Position.Y},
		Children: make([]int64, 0, len(n.Children)),
	}
	switch n.Category {
	case tree.Action:
		out.ActionType = n.Subtype
	case tree.Condition:
		out.ConditionType = n.Subtype
	case tree.Decorator:
		out.DecoratorType = n.Subtype
	}
	if len(n.Parameters) > 0 {
		out.Parameters = make(map[string]any, len(n.Parameters))
		for k, v := range n.Parameters {
			out.Parameters[k] = v
		}
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, int64(c))
	}
	if n.HasDecoratorChild() {
		dc := int64(n.DecoratorChild)
		out.DecoratorChild = &dc
	}
	return out
}

// ToGraph populates a graph from a current-schema BehaviorTree document. It
// fails with an *errors.ParseError locating the offending field; it never
// returns a partially populated graph. Documents at an older schema are
// refused; decode raw bytes with [Open] or [Migrator.Open] to upgrade them
// first. An empty tag list becomes nil tags on the graph.
//
// Structural problems that the validator reports (dangling children, cycles,
// arity) are carried into the graph as-is.
func ToGraph(d *Document) (*tree.Graph, error) {
	if d.SchemaVersion != CurrentVersion {
		return nil, errors.New(errors.ErrCodeUnsupportedSchema, "schema version %d, want %d", d.SchemaVersion, CurrentVersion)
	}
	if d.Kind != KindBehaviorTree {
		return nil, errors.NewParseError("blueprintType", "%q documents cannot be edited as behavior trees", d.Kind)
	}
	if d.Tree == nil {
		return nil, errors.NewParseError("data", "missing tree data")
	}

	g := tree.New()
	g.Name = d.Name
	g.Description = d.Description
	g.Meta = tree.Metadata{
		Author:       d.Metadata.Author,
		Created:      d.Metadata.Created,
		LastModified: d.Metadata.LastModified,
	}
	if len(d.Metadata.Tags) > 0 {
		g.Meta.Tags = slices.Clone(d.Metadata.Tags)
	}
	g.Editor = tree.EditorState{
		Zoom:    d.EditorState.Zoom,
		ScrollX: d.EditorState.ScrollOffset.X,
		ScrollY: d.EditorState.ScrollOffset.Y,
	}

	for i, wn := range d.Tree.Nodes {
		n, err := toNode(wn, fmt.Sprintf("data.nodes[%d]", i))
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(n); err != nil {
			return nil, errors.NewParseError(fmt.Sprintf("data.nodes[%d].id", i), "%v: %d", err, wn.ID)
		}
	}

	if root := tree.NodeID(d.Tree.RootNodeID); root != tree.NoNode {
		if !g.SetRoot(root) {
			return nil, errors.NewParseError("data.rootNodeId", "root node %d does not exist", root)
		}
	}
	return g, nil
}

func toNode(wn Node, path string) (tree.Node, error) {
	cat, ok := tree.ParseCategory(wn.Type)
	if !ok {
		return tree.Node{}, errors.NewParseError(path+".type", "unknown node type %q", wn.Type)
	}
	n := tree.Node{
		ID:         tree.NodeID(wn.ID),
		Category:   cat,
		Name:       wn.Name,
		Parameters: make(map[string]string, len(wn.Parameters)),
	}
	if wn.Position != nil {
		n.Position = tree.Position{X: wn.Position.X, Y: wn.Position.Y}
	}
	switch cat {
	case tree.Action:
		n.Subtype = wn.ActionType
	case tree.Condition:
		n.Subtype = wn.ConditionType
	case tree.Decorator:
		n.Subtype = wn.DecoratorType
	}
	for k, v := range wn.Parameters {
		s, err := stringify(v)
		if err != nil {
			return tree.Node{}, errors.NewParseError(path+".parameters."+k, "%v", err)
		}
		n.Parameters[k] = s
	}
	for j, c := range wn.Children {
		if c <= 0 {
			return tree.Node{}, errors.NewParseError(fmt.Sprintf("%s.children[%d]", path, j), "invalid node id %d", c)
		}
		n.Children = append(n.Children, tree.NodeID(c))
	}
	if wn.DecoratorChild != nil {
		if *wn.DecoratorChild < 0 {
			return tree.Node{}, errors.NewParseError(path+".decoratorChild", "invalid node id %d", *wn.DecoratorChild)
		}
		n.DecoratorChild = tree.NodeID(*wn.DecoratorChild)
	}
	return n, nil
}

// stringify renders a decoded JSON parameter value as a string. Scalars use
// their natural text form; objects and arrays are kept as compact JSON.
func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Open migrates data to the current schema and converts it to a graph with a
// zero [Migrator].
func Open(data []byte) (*tree.Graph, error) {
	var m Migrator
	g, _, _, err := m.Open(data)
	return g, err
}

// Open migrates data to the current schema and converts it to a graph. It
// also returns the migrated document and whether an upgrade took place, so
// the caller can keep a backup of the original bytes.
func (m *Migrator) Open(data []byte) (*tree.Graph, *Document, bool, error) {
	d, migrated, err := m.Migrate(data)
	if err != nil {
		return nil, nil, false, err
	}
	g, err := ToGraph(d)
	if err != nil {
		return nil, nil, false, err
	}
	return g, d, migrated, nil
}
