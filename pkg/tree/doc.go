// Package tree provides the in-memory behavior-tree graph model and the rule
// engine that checks it.
//
// # Overview
//
// A behavior tree is a rooted tree of typed nodes. Composites (Sequence,
// Selector) own an ordered list of children, Decorators wrap exactly one child,
// and Leaves (Action, Condition) are terminal. The [Graph] type owns the node
// collection, the declared root and graph-level metadata, and exposes the
// editing operations an editor needs: [Graph.CreateNode], [Graph.DeleteNode],
// [Graph.Link], [Graph.Unlink] and friends.
//
// # Permissive Editing, Strict Validation
//
// Editing never refuses a structurally questionable change. Linking a second
// parent to a node, closing a cycle, or giving a Leaf a child all succeed,
// because an edit session (and every undo/redo step) may pass through invalid
// intermediate states. Violations are reported instead by [Validator.Validate]
// as a list of [Diagnostic] values:
//
//	g := tree.New()
//	root := g.CreateNode(tree.Selector, 0, 0, "")
//	act := g.CreateNode(tree.Action, 0, 0, "Attack")
//	g.Link(root, act)
//	g.SetSubtype(act, "MeleeAttack")
//
//	diags := tree.NewValidator(catalog).Validate(g)
//	if !tree.IsValid(diags) {
//	    // show diagnostics to the user
//	}
//
// # Connection Rules
//
// The connection rules are pure functions over a [*Graph]: [MaxChildren],
// [MinChildren], [WouldCreateCycle], [ParentOf], [Parents], [RootNodes] and
// [OrphanNodes]. Editors use them for interactive feedback (for example to grey
// out a drop target that would close a cycle); the validator uses them for its
// graph-level pass.
//
// # Catalog
//
// Leaf and decorator subtypes, and the parameters they require, come from an
// external catalog consumed through the [Catalog] interface. See package
// catalog for file-backed implementations.
//
// # Concurrency
//
// A Graph has exactly one owner. It performs no locking; callers that need
// several documents open at once create one Graph per document.
package tree
