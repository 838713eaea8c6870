package domain

// Reachable performs a forward BFS over g restricted to edges for which
// include returns true, starting from every node in from. It backs the
// open-subgraph reachability check used by stimuli handling and the
// impact engine, and the source/asset reachability tests in the DDBB
// scan.
func Reachable(g *Graph, from []string, include func(*Edge) bool) map[string]bool {
	seen := make(map[string]bool, len(from))
	queue := make([]string, 0, len(from))
	for _, id := range from {
		if !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, e := range g.OutEdges(u) {
			if include != nil && !include(e) {
				continue
			}
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen
}

// OpenEdge reports whether e belongs to the open subgraph (state != closed).
func OpenEdge(e *Edge) bool {
	return e.IsOpen()
}

// ConnectedComponents computes undirected connected components over a set
// of edges, treating each edge's (From, To) as an undirected pair. Used by
// the verification generator (spec §4.4 step 1) to group cut edges into
// branches.
func ConnectedComponents(edges []*Edge) [][]string {
	adj := make(map[string]map[string]bool)
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	nodeSet := make(map[string]bool)
	for _, e := range edges {
		nodeSet[e.From] = true
		nodeSet[e.To] = true
		link(e.From, e.To)
		link(e.To, e.From)
	}

	visited := make(map[string]bool, len(nodeSet))
	var components [][]string
	for n := range nodeSet {
		if visited[n] {
			continue
		}
		var comp []string
		queue := []string{n}
		visited[n] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp = append(comp, u)
			for v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}
