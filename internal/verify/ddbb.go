package verify

import (
	"fmt"
	"sort"

	"loto/pkg/domain"
)

// ddbbCertificate is one admissible Double-Block-and-Bleed configuration
// (spec §4.4 steps 3-5): closing the upstream and downstream blocks while
// opening the bleed isolates the branch with no open source->asset path,
// and the bleed can still drain to a safe sink.
type ddbbCertificate struct {
	Upstream   *domain.Edge
	Downstream *domain.Edge
	Bleed      *domain.Edge
	// Redundant reports whether either block alone (with the other left in
	// its own state) still keeps every source->asset path closed - the
	// "redundant DDBB path" note from spec §4.4 step 5.
	Redundant bool
}

// findDDBB scans a branch's node set for the first admissible DDBB triple,
// per the node candidate conditions (a)-(d) of spec §4.4 step 3 and the
// admissibility test of step 4. SPEC_FULL.md §3 resolves the documented
// open question (spec §9) by scanning every branch independently rather
// than stopping at the first admissible triple found anywhere in the
// domain: each branch gets at most one certificate, but a later branch is
// never skipped because an earlier one already matched.
func findDDBB(g *domain.Graph, branchNodes []string, sources, assets []string) *ddbbCertificate {
	reachFromSource := domain.Reachable(g, sources, domain.OpenEdge)

	candidates := append([]string(nil), branchNodes...)
	sort.Strings(candidates)

	for _, n := range candidates {
		if !reachFromSource[n] {
			continue
		}
		reachFromN := domain.Reachable(g, []string{n}, domain.OpenEdge)
		if !anyIn(reachFromN, assets) {
			continue
		}

		upCandidates := isolationEdgesInto(g, n)
		downCandidates := isolationEdgesFrom(g, n)
		bleedCandidates := bleedEdgesFrom(g, n)
		if len(upCandidates) == 0 || len(downCandidates) == 0 || len(bleedCandidates) == 0 {
			continue
		}

		for _, up := range upCandidates {
			for _, dn := range downCandidates {
				for _, bl := range bleedCandidates {
					if !admissible(g, sources, assets, up, dn, bl) {
						continue
					}
					cert := &ddbbCertificate{Upstream: up, Downstream: dn, Bleed: bl}
					cert.Redundant = admissible(g, sources, assets, nil, dn, bl) ||
						admissible(g, sources, assets, up, nil, bl)
					return cert
				}
			}
		}
	}
	return nil
}

func anyIn(set map[string]bool, ids []string) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}

func isolationEdgesInto(g *domain.Graph, n string) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.InEdges(n) {
		if e.IsIsolationPoint {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

func isolationEdgesFrom(g *domain.Graph, n string) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.OutEdges(n) {
		if e.IsIsolationPoint {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

func bleedEdgesFrom(g *domain.Graph, n string) []*domain.Edge {
	var out []*domain.Edge
	for _, e := range g.OutEdges(n) {
		if e.IsBleed {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// admissible tests the hypothetical configuration (up=closed, dn=closed,
// bl=open; nil means "leave this edge's own state alone") against the two
// criteria of spec §4.4 step 4: no open source->asset path remains, and
// the bleed terminal can still reach a safe sink.
func admissible(g *domain.Graph, sources, assets []string, up, dn, bl *domain.Edge) bool {
	open := func(e *domain.Edge) bool {
		switch e {
		case up, dn:
			return false
		case bl:
			return true
		default:
			return e.IsOpen()
		}
	}

	reached := domain.Reachable(g, sources, open)
	if anyIn(reached, assets) {
		return false
	}

	if bl == nil {
		return true
	}
	fromBleed := domain.Reachable(g, []string{bl.To}, open)
	for id := range fromBleed {
		if n, ok := g.GetNode(id); ok && n.SafeSink {
			return true
		}
	}
	if n, ok := g.GetNode(bl.To); ok && n.SafeSink {
		return true
	}
	return false
}

func formatDDBB(label string, cert *ddbbCertificate) string {
	return fmt.Sprintf("%s DDBB %s->%s, %s->%s, %s->%s",
		label,
		cert.Upstream.From, cert.Upstream.To,
		cert.Bleed.From, cert.Bleed.To,
		cert.Downstream.From, cert.Downstream.To,
	)
}
