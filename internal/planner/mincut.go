package planner

import (
	"sort"

	"loto/pkg/domain"
)

// WorkGraph returns the graph Solve actually cuts over: the node-split
// decomposition when opt.NodeSplit is enabled, or g itself otherwise. The
// verification generator (internal/verify) calls this with the same
// options used for Solve so its DDBB scan sees the same node identities
// that appear in the returned CutEdges.
func WorkGraph(g *domain.Graph, opt Options) *domain.Graph {
	if opt.NodeSplit {
		return SplitNodes(g)
	}
	return g
}

// CutEdge is one directed edge in the computed min-cut, keyed by the split
// graph's node ids (which may carry "_in"/"_out" suffixes — spec §6 notes
// this is intentional and stable).
type CutEdge struct {
	From string
	To   string
}

// Solve computes the weighted min-cut for a single domain graph (spec
// §4.3): it splits isolation-point nodes, weights cuttable edges, routes
// flow from a super-source over the domain's sources to a super-sink over
// its asset-tagged nodes, and returns the cut edges in deterministic
// (From, To) order. An empty source or target set yields an empty plan
// for the domain, per spec §4.9.
func Solve(g *domain.Graph, opt Options) []CutEdge {
	work := WorkGraph(g, opt)

	sources := work.Sources()
	assets := work.AssetsByTag(opt.AssetTag)
	if len(sources) == 0 || len(assets) == 0 {
		return nil
	}

	rg := newResidualGraph()
	for _, e := range work.Edges {
		capacity := domain.Infinity
		if e.IsIsolationPoint {
			u, _ := work.GetNode(e.From)
			v, _ := work.GetNode(e.To)
			capacity = EdgeCapacity(e, u, v, opt)
		}
		rg.addOrCollapseEdge(e.From, e.To, capacity, e.IsIsolationPoint)
	}

	for _, s := range sources {
		rg.addOrCollapseEdge(domain.SuperSourceID, s.ID, domain.Infinity, false)
	}
	for _, t := range assets {
		rg.addOrCollapseEdge(t.ID, domain.SuperSinkID, domain.Infinity, false)
	}

	rg.dinicMaxFlow(domain.SuperSourceID, domain.SuperSinkID)
	reached := rg.reachableFromSource(domain.SuperSourceID)

	var cuts []CutEdge
	for _, from := range rg.sortedNodes() {
		if !reached[from] {
			continue
		}
		for _, e := range rg.adj[from] {
			if e.isReverse || !e.isolation || reached[e.to] {
				continue
			}
			cuts = append(cuts, CutEdge{From: from, To: e.to})
		}
	}

	sort.Slice(cuts, func(i, j int) bool {
		if cuts[i].From != cuts[j].From {
			return cuts[i].From < cuts[j].From
		}
		return cuts[i].To < cuts[j].To
	})
	return cuts
}
