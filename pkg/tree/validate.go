package tree

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// Diagnostics
// =============================================================================

// Severity ranks a diagnostic. Error and Critical block saving; Warning and
// Info never do.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

var severityNames = []string{"Info", "Warning", "Error", "Critical"}

func (s Severity) String() string {
	if s >= Info && s <= Critical {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	i := slices.Index(severityNames, string(b))
	if i < 0 {
		return fmt.Errorf("unknown severity %q", b)
	}
	*s = Severity(i)
	return nil
}

// Blocking reports whether the severity prevents the graph from being saved.
func (s Severity) Blocking() bool { return s >= Error }

// Diagnostic categories.
const (
	CategoryGraph      = "Graph"
	CategoryType       = "Type"
	CategoryParameter  = "Parameter"
	CategoryLink       = "Link"
	CategoryConnection = "Connection"
)

// Diagnostic is a single validation finding. NodeID is [NoNode] for findings
// about the graph as a whole.
type Diagnostic struct {
	NodeID   NodeID   `json:"node_id,omitempty"`
	NodeName string   `json:"node_name,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
}

// HasNode reports whether the diagnostic is attributed to a node.
func (d Diagnostic) HasNode() bool { return d.NodeID != NoNode }

func (d Diagnostic) String() string {
	if d.HasNode() {
		return fmt.Sprintf("[%s] %s: %s (node %d %q)", d.Severity, d.Category, d.Message, d.NodeID, d.NodeName)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Category, d.Message)
}

// IsValid reports whether no diagnostic has Error or Critical severity.
func IsValid(diags []Diagnostic) bool {
	return !slices.ContainsFunc(diags, func(d Diagnostic) bool { return d.Severity.Blocking() })
}

// Count returns the number of diagnostics with the given severity.
func Count(diags []Diagnostic, s Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// =============================================================================
// Validator
// =============================================================================

// Validator runs the full structural pass over a graph.
type Validator struct {
	catalog Catalog
}

// NewValidator creates a validator backed by the catalog. With a nil catalog
// subtypes are only checked for presence, and required parameters are not
// checked at all.
func NewValidator(c Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate checks the graph and returns its diagnostics ranked by severity
// (Critical first). Within a severity, findings keep pass order and ascending
// node ID. The graph is not modified.
func (v *Validator) Validate(g *Graph) []Diagnostic {
	var diags []Diagnostic
	nodes := g.Nodes()
	for _, n := range nodes {
		diags = append(diags, v.checkType(n)...)
	}
	for _, n := range nodes {
		diags = append(diags, v.checkParameters(n)...)
	}
	for _, n := range nodes {
		diags = append(diags, checkArity(g, n)...)
	}
	diags = append(diags, checkParents(g)...)
	diags = append(diags, checkCycles(g)...)
	diags = append(diags, checkRoots(g)...)

	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		return cmp.Compare(b.Severity, a.Severity)
	})
	return diags
}

func nodeDiag(n *Node, sev Severity, category, format string, args ...any) Diagnostic {
	return Diagnostic{
		NodeID:   n.ID,
		NodeName: n.DisplayName(),
		Message:  fmt.Sprintf(format, args...),
		Severity: sev,
		Category: category,
	}
}

func (v *Validator) checkType(n *Node) []Diagnostic {
	if !n.Category.HasSubtype() {
		return nil
	}
	if n.Subtype == "" {
		return []Diagnostic{nodeDiag(n, Error, CategoryType, "%s has no %s type", n.Category, strings.ToLower(n.Category.String()))}
	}
	if v.catalog != nil && !v.catalog.IsValidType(n.Category, n.Subtype) {
		return []Diagnostic{nodeDiag(n, Error, CategoryType, "unknown %s type %q", strings.ToLower(n.Category.String()), n.Subtype)}
	}
	return nil
}

func (v *Validator) checkParameters(n *Node) []Diagnostic {
	if v.catalog == nil || !n.Category.HasSubtype() || n.Subtype == "" {
		return nil
	}
	def, ok := v.catalog.FindType(n.Category, n.Subtype)
	if !ok {
		return nil
	}
	var diags []Diagnostic
	for _, name := range def.RequiredParameters() {
		if strings.TrimSpace(n.Parameters[name]) == "" {
			diags = append(diags, nodeDiag(n, Error, CategoryParameter, "missing required parameter %q for %s", name, n.Subtype))
		}
	}
	return diags
}

func checkArity(g *Graph, n *Node) []Diagnostic {
	var diags []Diagnostic

	seen := make(map[NodeID]bool)
	existing := 0
	for _, ref := range n.Successors() {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if g.Has(ref) {
			existing++
			continue
		}
		diags = append(diags, nodeDiag(n, Error, CategoryLink, "references missing node %d", ref))
	}

	switch n.Category.Class() {
	case ClassComposite:
		if existing < MinChildren(n.Category) {
			diags = append(diags, nodeDiag(n, Warning, CategoryConnection, "%s has no children", n.Category))
		}
		if n.HasDecoratorChild() {
			diags = append(diags, nodeDiag(n, Error, CategoryConnection, "%s cannot have a decorator child", n.Category))
		}
	case ClassDecorator:
		if !n.HasDecoratorChild() {
			diags = append(diags, nodeDiag(n, Error, CategoryConnection, "Decorator has no child"))
		}
		if len(n.Children) > 0 {
			limit, _ := MaxChildren(n.Category)
			diags = append(diags, nodeDiag(n, Error, CategoryConnection, "Decorator takes at most %d child via its decorator link, found a children list", limit))
		}
	case ClassLeaf:
		if len(n.Children) > 0 {
			diags = append(diags, nodeDiag(n, Error, CategoryConnection, "%s is a leaf and cannot have children", n.Category))
		}
		if n.HasDecoratorChild() {
			diags = append(diags, nodeDiag(n, Error, CategoryConnection, "%s is a leaf and cannot have a decorator child", n.Category))
		}
	}
	return diags
}

func checkParents(g *Graph) []Diagnostic {
	pm := parentMap(g)
	var diags []Diagnostic
	for _, n := range g.Nodes() {
		ps := pm[n.ID]
		if len(ps) < 2 {
			continue
		}
		diags = append(diags, nodeDiag(n, Error, CategoryLink, "node has multiple parents: %s", joinIDs(ps)))
	}
	return diags
}

func checkCycles(g *Graph) []Diagnostic {
	var diags []Diagnostic
	for _, n := range g.Nodes() {
		if reaches(g.successors(n.ID), n.ID, g.successors) {
			diags = append(diags, nodeDiag(n, Critical, CategoryGraph, "node is part of a cycle"))
		}
	}
	return diags
}

func checkRoots(g *Graph) []Diagnostic {
	if g.Len() == 0 {
		return []Diagnostic{{Message: "graph is empty", Severity: Info, Category: CategoryGraph}}
	}

	roots := RootNodes(g)
	root, ok := g.Node(g.RootID())
	if !ok {
		diags := []Diagnostic{{Message: "no root node declared", Severity: Error, Category: CategoryGraph}}
		if len(roots) > 1 {
			diags = append(diags, Diagnostic{
				Message:  "multiple root nodes: " + joinIDs(roots),
				Severity: Error,
				Category: CategoryGraph,
			})
		}
		return diags
	}

	var diags []Diagnostic
	if ps := Parents(g, root.ID); len(ps) > 0 {
		diags = append(diags, nodeDiag(root, Error, CategoryGraph, "root node has a parent: %s", joinIDs(ps)))
	}

	orphans := make(map[NodeID]bool)
	for _, id := range OrphanNodes(g) {
		orphans[id] = true
		n, _ := g.Node(id)
		diags = append(diags, nodeDiag(n, Warning, CategoryGraph, "orphan node is not connected to the root"))
	}

	reachable := reachableFrom(root.ID, g.successors)
	for _, n := range g.Nodes() {
		if !reachable[n.ID] && !orphans[n.ID] {
			diags = append(diags, nodeDiag(n, Info, CategoryGraph, "node is detached from the root"))
		}
	}
	return diags
}

func joinIDs(ids []NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int64(id))
	}
	return strings.Join(parts, ", ")
}
