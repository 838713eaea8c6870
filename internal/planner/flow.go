package planner

import (
	"sort"

	"loto/pkg/domain"
)

// residualEdge mirrors the teacher's solver-svc residual-graph edge model
// (services/solver-svc/internal/graph/residual.go), adapted to string node
// IDs for the single super-source/super-sink network built per domain.
type residualEdge struct {
	to        string
	capacity  float64
	isReverse bool
	isolation bool // true if any collapsed parallel edge was is_isolation_point
	reverse   *residualEdge
}

// residualGraph is a string-keyed flow network with deterministic edge
// iteration order (insertion order), required for reproducible cuts.
type residualGraph struct {
	nodes map[string]bool
	adj   map[string][]*residualEdge
	pair  map[string]map[string]*residualEdge
}

func newResidualGraph() *residualGraph {
	return &residualGraph{
		nodes: make(map[string]bool),
		adj:   make(map[string][]*residualEdge),
		pair:  make(map[string]map[string]*residualEdge),
	}
}

func (rg *residualGraph) addNode(id string) {
	rg.nodes[id] = true
}

// addOrCollapseEdge adds a capacitated edge, collapsing with any existing
// parallel edge between the same (from, to) pair by taking the minimum
// capacity — spec §4.2's "hardest constraint wins" rule for parallel
// cuttable edges.
func (rg *residualGraph) addOrCollapseEdge(from, to string, capacity float64, isolation bool) {
	rg.addNode(from)
	rg.addNode(to)

	if rg.pair[from] == nil {
		rg.pair[from] = make(map[string]*residualEdge)
	}
	if existing := rg.pair[from][to]; existing != nil {
		existing.capacity = domain.Min(existing.capacity, capacity)
		existing.isolation = existing.isolation || isolation
		return
	}

	fwd := &residualEdge{to: to, capacity: capacity, isolation: isolation}
	bwd := &residualEdge{to: from, capacity: 0, isReverse: true}
	fwd.reverse = bwd
	bwd.reverse = fwd

	rg.pair[from][to] = fwd
	rg.adj[from] = append(rg.adj[from], fwd)
	rg.adj[to] = append(rg.adj[to], bwd)
}

func (rg *residualGraph) pushFlow(e *residualEdge, amount float64) {
	e.capacity -= amount
	e.reverse.capacity += amount
}

// dinicMaxFlow runs Dinic's algorithm (BFS level graph + blocking flow via
// iterative DFS with current-arc optimization), grounded in the teacher's
// services/solver-svc/internal/algorithms/dinic.go. Node identity is a
// string here rather than int64, and there is no context/cancellation
// plumbing since the core exposes no internal timers (spec §5).
func (rg *residualGraph) dinicMaxFlow(source, sink string) float64 {
	maxFlow := 0.0
	for {
		level := rg.bfsLevels(source)
		if _, ok := level[sink]; !ok {
			break
		}
		currentArc := make(map[string]int)
		for {
			flow := rg.dfsBlockingPath(source, sink, level, currentArc)
			if domain.IsZero(flow) {
				break
			}
			maxFlow += flow
		}
	}
	return maxFlow
}

func (rg *residualGraph) bfsLevels(source string) map[string]int {
	level := make(map[string]int, len(rg.nodes))
	level[source] = 0
	queue := []string{source}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, e := range rg.adj[u] {
			if e.capacity <= domain.Epsilon {
				continue
			}
			if _, seen := level[e.to]; seen {
				continue
			}
			level[e.to] = level[u] + 1
			queue = append(queue, e.to)
		}
	}
	return level
}

func (rg *residualGraph) dfsBlockingPath(source, sink string, level map[string]int, currentArc map[string]int) float64 {
	type frame struct {
		node string
	}

	path := []string{source}
	edgesUsed := make([]*residualEdge, 0, 64)
	minCap := []float64{domain.Infinity}
	stack := []frame{{node: source}}

	for len(stack) > 0 {
		u := stack[len(stack)-1].node

		if u == sink {
			bottleneck := minCap[len(minCap)-1]
			for _, e := range edgesUsed {
				rg.pushFlow(e, bottleneck)
			}
			return bottleneck
		}

		edges := rg.adj[u]
		start := currentArc[u]
		advanced := false
		for i := start; i < len(edges); i++ {
			e := edges[i]
			if e.capacity <= domain.Epsilon || level[e.to] != level[u]+1 {
				continue
			}
			currentArc[u] = i
			next := domain.Min(minCap[len(minCap)-1], e.capacity)
			path = append(path, e.to)
			edgesUsed = append(edgesUsed, e)
			minCap = append(minCap, next)
			stack = append(stack, frame{node: e.to})
			advanced = true
			break
		}

		if !advanced {
			currentArc[u] = len(edges)
			delete(level, u)
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			minCap = minCap[:len(minCap)-1]
			if len(edgesUsed) > 0 {
				edgesUsed = edgesUsed[:len(edgesUsed)-1]
			}
		}
	}

	return 0
}

// reachableFromSource returns the set R of nodes reachable from source
// using only edges with positive residual capacity, after dinicMaxFlow has
// run to completion. This is the min-cut's source-side partition.
func (rg *residualGraph) reachableFromSource(source string) map[string]bool {
	reached := map[string]bool{source: true}
	queue := []string{source}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, e := range rg.adj[u] {
			if e.capacity <= domain.Epsilon || reached[e.to] {
				continue
			}
			reached[e.to] = true
			queue = append(queue, e.to)
		}
	}
	return reached
}

// sortedNodes returns node ids in ascending order for deterministic
// iteration, matching the teacher's GetSortedNodes pattern.
func (rg *residualGraph) sortedNodes() []string {
	out := make([]string, 0, len(rg.nodes))
	for id := range rg.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
