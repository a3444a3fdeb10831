package tree

// EdgeFunc returns the outgoing neighbours of a node.
type EdgeFunc func(NodeID) []NodeID

// reaches reports whether target is reachable from any of the start nodes by
// following edges. Each node is expanded at most once, so the search is
// bounded by the node count even when the graph contains cycles.
func reaches(start []NodeID, target NodeID, edges EdgeFunc) bool {
	visited := make(map[NodeID]bool)
	stack := append([]NodeID(nil), start...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, next := range edges(id) {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// reachableFrom returns the set of nodes reachable from start, start included.
func reachableFrom(start NodeID, edges EdgeFunc) map[NodeID]bool {
	seen := map[NodeID]bool{start: true}
	queue := []NodeID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range edges(id) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
