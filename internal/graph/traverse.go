package graph

// Walk visits every node reachable from start by following outgoing edges,
// depth-first and in pre-order. Each node is visited at most once, so cycles
// terminate. Children are visited in the order their edges were added.
// Returning false from visit stops the walk. A missing start visits nothing.
//
// The walk keeps an explicit stack, so chain depth is bounded by memory
// rather than by the goroutine stack.
func (g *Graph) Walk(start string, visit func(*Node) bool) {
	if !g.Has(start) {
		return
	}
	visited := make(map[string]struct{})
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if !visit(n) {
			return
		}

		// Push in reverse so the first edge is popped first.
		for i := len(n.edges) - 1; i >= 0; i-- {
			to := n.edges[i].To
			if _, seen := visited[to]; !seen {
				stack = append(stack, to)
			}
		}
	}
}

// FindNodesByTypeUnderParent returns every node of type t reachable from
// parentID, parentID included, in first-visit order.
func (g *Graph) FindNodesByTypeUnderParent(parentID string, t NodeType) []*Node {
	var out []*Node
	g.Walk(parentID, func(n *Node) bool {
		if n.typ == t {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindDiscussionsByUserUnderParent returns the discussion nodes reachable
// from parentID that are linked to userID, in first-visit order.
func (g *Graph) FindDiscussionsByUserUnderParent(parentID, userID string) []*Node {
	var out []*Node
	g.Walk(parentID, func(n *Node) bool {
		if n.typ == NodeDiscussion && g.IsLinkedToUser(n.id, userID) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// IsLinkedToUser reports whether the discussion has an outgoing edge to
// userID or an incoming edge from it.
func (g *Graph) IsLinkedToUser(discussionID, userID string) bool {
	n, ok := g.nodes[discussionID]
	if !ok {
		return false
	}
	for _, e := range n.edges {
		if e.To == userID {
			return true
		}
	}
	for _, e := range n.incoming {
		if e.From == userID {
			return true
		}
	}
	return false
}
