package planner

import "loto/pkg/domain"

const (
	inSuffix  = "_in"
	outSuffix = "_out"
)

// InNodeID returns the node_in identifier a split produces for device id.
func InNodeID(id string) string { return id + inSuffix }

// OutNodeID returns the node_out identifier a split produces for device id.
func OutNodeID(id string) string { return id + outSuffix }

// SplitNodes converts every is_isolation_point node into a node_in/node_out
// pair joined by a single cuttable edge, per spec §4.1. This reduces a
// node min-cut problem to a standard edge min-cut problem: a valve with
// many downstream branches is represented by exactly one cuttable edge
// instead of being cut once per branch.
//
// Device attributes relevant to cut weighting (Kind, FailState, Control,
// OpCostMin, ResetTimeMin) are copied onto both halves so the weighter's
// op_cost/reset node-fallback (spec §4.2) still resolves after splitting.
// IsSource stays on node_in (upstream identity); Tag and SafeSink move to
// node_out (downstream identity) since those describe what the device
// isolates *from* versus *leads to*.
//
// Non-isolation nodes and the edges between them are copied verbatim.
func SplitNodes(g *domain.Graph) *domain.Graph {
	out := domain.NewGraph(g.Domain)

	isSplit := make(map[string]bool)
	for id, n := range g.Nodes {
		if n.IsIsolationPoint {
			isSplit[id] = true
		}
	}

	for id, n := range g.Nodes {
		if !isSplit[id] {
			out.AddNode(n.Clone())
			continue
		}

		nodeIn := &domain.Node{
			ID:               InNodeID(id),
			IsSource:         n.IsSource,
			IsIsolationPoint: false,
			Kind:             n.Kind,
			FailState:        n.FailState,
			Control:          n.Control,
			OpCostMin:        n.OpCostMin,
			ResetTimeMin:     n.ResetTimeMin,
			Metadata:         cloneMeta(n.Metadata),
		}
		nodeOut := &domain.Node{
			ID:               OutNodeID(id),
			Tag:              n.Tag,
			IsIsolationPoint: false,
			Kind:             n.Kind,
			FailState:        n.FailState,
			Control:          n.Control,
			SafeSink:         n.SafeSink,
			OpCostMin:        n.OpCostMin,
			ResetTimeMin:     n.ResetTimeMin,
			Metadata:         cloneMeta(n.Metadata),
		}
		out.AddNode(nodeIn)
		out.AddNode(nodeOut)

		out.AddEdge(&domain.Edge{
			ID:               id + ":split",
			From:             nodeIn.ID,
			To:               nodeOut.ID,
			IsIsolationPoint: true,
			Medium:           domain.MediumUnassigned,
			OpCostMin:        n.OpCostMin,
			ResetTimeMin:     n.ResetTimeMin,
		})
	}

	for _, e := range g.Edges {
		rewired := e.Clone()
		forced := false
		if isSplit[e.From] {
			rewired.From = OutNodeID(e.From)
			forced = true
		}
		if isSplit[e.To] {
			rewired.To = InNodeID(e.To)
			forced = true
		}
		if forced {
			rewired.IsIsolationPoint = false
		}
		out.AddEdge(rewired)
	}

	return out
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
