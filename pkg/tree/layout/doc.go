// Package layout assigns deterministic 2-D editor coordinates to the nodes of
// a behavior tree.
//
// # Algorithm
//
// [Compute] walks the tree breadth-first from the declared root, following
// ordered children and then the decorator child. A node at depth d that is the
// i-th node discovered at that depth is placed at
//
//	x = StartX + d*HSpacing
//	y = StartY + i*VSpacing
//
// Every node is visited at most once, so shared children and cycles do not
// loop. Nodes that cannot be reached from the root are left out of the result
// and keep whatever position they had.
//
// The result depends only on node IDs and child order, so re-running the
// layout on an unchanged graph reproduces the same coordinates.
package layout
