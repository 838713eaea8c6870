package verify

import (
	"fmt"

	"loto/internal/planner"
	"loto/pkg/domain"
	"loto/pkg/rulepack"
)

// Generate produces the verification strings for one domain's cut edges
// (spec §4.4). work must be the same graph Solve(g, opt) cut over
// (planner.WorkGraph(g, opt)), so branch node identities line up with the
// cut edges' endpoints. assetTag must match the tag passed to Solve via
// planner.Options.AssetTag; an empty value falls back to domain.AssetTag,
// same as AssetsByTag. rules augments the fixed PT=0/no-movement/DDBB
// strings with a rule pack's per-branch checks (SPEC_FULL.md §2); pass
// nil when no pack is in play.
func Generate(work *domain.Graph, domainName string, cuts []planner.CutEdge, assetTag string, rules []rulepack.VerificationRule) []string {
	bs := branches(domainName, cuts)
	if len(bs) == 0 {
		return nil
	}

	sourceIDs := nodeIDs(work.Sources())
	assetIDs := nodeIDs(work.AssetsByTag(assetTag))

	var out []string
	for _, b := range bs {
		out = append(out, fmt.Sprintf("%s PT=0", b.Label))
		out = append(out, fmt.Sprintf("%s no-movement", b.Label))

		cert := findDDBB(work, b.Nodes, sourceIDs, assetIDs)
		if cert != nil {
			out = append(out, formatDDBB(b.Label, cert))
			if cert.Redundant {
				out = append(out, fmt.Sprintf("%s redundant DDBB path", b.Label))
			}
		}

		for _, r := range rules {
			matched, err := rulepack.EvalVerificationRule(r, b.Label)
			if err != nil || !matched {
				continue
			}
			out = append(out, fmt.Sprintf("%s %s", b.Label, r.Name))
		}
	}
	return out
}

func nodeIDs(nodes []*domain.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
