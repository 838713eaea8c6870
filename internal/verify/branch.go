// Package verify implements the verification generator (spec §4.4): it
// groups a domain's cut edges into branches, emits the mandatory PT=0 and
// no-movement verification strings per branch, and scans each branch for
// a Double-Block-and-Bleed (DDBB) certificate.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"loto/internal/planner"
	"loto/pkg/domain"
)

// Branch is a connected component of a domain's cut edges (spec §4.4
// step 1), labeled "{domain}:{sorted-nodes-joined-by-dash}".
type Branch struct {
	Label string
	Nodes []string
	Edges []planner.CutEdge
}

// branches groups cuts into connected components and assigns each its
// stable label.
func branches(domainName string, cuts []planner.CutEdge) []Branch {
	if len(cuts) == 0 {
		return nil
	}

	edges := make([]*domain.Edge, len(cuts))
	for i, c := range cuts {
		edges[i] = &domain.Edge{From: c.From, To: c.To}
	}
	components := domain.ConnectedComponents(edges)

	out := make([]Branch, 0, len(components))
	for _, comp := range components {
		nodes := append([]string(nil), comp...)
		sort.Strings(nodes)
		label := fmt.Sprintf("%s:%s", domainName, strings.Join(nodes, "-"))

		nodeSet := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			nodeSet[n] = true
		}
		var branchEdges []planner.CutEdge
		for _, c := range cuts {
			if nodeSet[c.From] && nodeSet[c.To] {
				branchEdges = append(branchEdges, c)
			}
		}
		sort.Slice(branchEdges, func(i, j int) bool {
			if branchEdges[i].From != branchEdges[j].From {
				return branchEdges[i].From < branchEdges[j].From
			}
			return branchEdges[i].To < branchEdges[j].To
		})

		out = append(out, Branch{Label: label, Nodes: nodes, Edges: branchEdges})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
