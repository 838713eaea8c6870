package domain

import (
	"math/rand"
	"sort"
)

// Path is a simple (no repeated node) directed path through a graph.
type Path struct {
	Nodes []string
}

// Length is the hop count, the length metric spec §4.6 orders paths by.
func (p Path) Length() int {
	if len(p.Nodes) == 0 {
		return 0
	}
	return len(p.Nodes) - 1
}

// String renders the path as "a->b->c", the form used in SimResultItem
// offending-path reporting.
func (p Path) String() string {
	s := ""
	for i, n := range p.Nodes {
		if i > 0 {
			s += "->"
		}
		s += n
	}
	return s
}

// maxPathSearchNodes bounds the DFS enumeration so a densely-connected
// graph cannot blow up path enumeration time; plant topologies are small
// (tens to low hundreds of nodes) so this bound is generous in practice.
const maxPathSearchNodes = 2000

// EnumerateSimplePaths depth-first searches every simple path from any
// node in sources to any node in targets, following only edges for which
// include returns true. It stops expanding once it has collected
// maxPathSearchNodes candidate paths, to keep worst-case behavior bounded
// on pathological graphs.
func EnumerateSimplePaths(g *Graph, sources, targets []string, include func(*Edge) bool) []Path {
	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	var found []Path
	visited := make(map[string]bool)
	var stack []string

	var dfs func(u string)
	dfs = func(u string) {
		if len(found) >= maxPathSearchNodes {
			return
		}
		visited[u] = true
		stack = append(stack, u)

		if targetSet[u] && len(stack) > 1 {
			nodes := make([]string, len(stack))
			copy(nodes, stack)
			found = append(found, Path{Nodes: nodes})
		} else {
			for _, e := range g.OutEdges(u) {
				if include != nil && !include(e) {
					continue
				}
				if visited[e.To] {
					continue
				}
				dfs(e.To)
				if len(found) >= maxPathSearchNodes {
					break
				}
			}
		}

		stack = stack[:len(stack)-1]
		visited[u] = false
	}

	seedSet := make(map[string]bool, len(sources))
	var orderedSources []string
	for _, s := range sources {
		if !seedSet[s] {
			seedSet[s] = true
			orderedSources = append(orderedSources, s)
		}
	}
	for _, s := range orderedSources {
		dfs(s)
	}
	return found
}

// KShortestSimplePaths returns up to k paths from sources to targets,
// ordered by ascending hop count with ties broken by a seeded shuffle
// (spec §4.6: "sorted by ascending length, ties broken by a seeded RNG").
// The same rng state always used against the same candidate set produces
// the same ordering, which is what gives run_stimuli its determinism.
func KShortestSimplePaths(g *Graph, sources, targets []string, include func(*Edge) bool, k int, rng *rand.Rand) []Path {
	candidates := EnumerateSimplePaths(g, sources, targets, include)
	if len(candidates) == 0 {
		return nil
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	// Stable sort by length over the shuffled order: equal-length paths
	// keep the relative order the shuffle gave them, which is the tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Length() < candidates[j].Length()
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}
