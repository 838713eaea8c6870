// Package simulate implements the simulation engine: Apply (C7a), the
// pure graphs-to-graphs transform that realizes an IsolationPlan, and
// RunStimuli (C7b), which exercises the applied graphs against named
// bypass-detection events.
package simulate

import "loto/pkg/domain"

// Apply realizes plan against graphs, returning new graphs per domain
// (spec §4.5). Inputs are never mutated; apply is idempotent — applying
// the same plan twice to the same input yields structurally equal output.
func Apply(plan *domain.IsolationPlan, graphs map[string]*domain.Graph) map[string]*domain.Graph {
	out := make(map[string]*domain.Graph, len(graphs))
	for name, g := range graphs {
		out[name] = g.Clone()
	}

	if plan != nil {
		for _, action := range plan.Actions {
			domainName, from, to, ok := domain.ParseComponentID(action.ComponentID)
			if !ok {
				continue
			}
			g, ok := out[domainName]
			if !ok {
				continue
			}
			g.RemoveEdgesBetween(from, to)
		}
	}

	for _, g := range out {
		applyDefaultStates(g)
	}
	return out
}

// applyDefaultStates implements spec §4.5 step 3: drains/vents open
// unconditionally; everything else defaults from its fail-state only if
// no state has already been set. Edge.IsBleed is this model's rendering
// of "kind ∈ {drain, vent}" for edges (the data model gives edges no
// kind field of their own — drain/vent-ness is carried by is_bleed);
// Node.Kind carries it directly for nodes.
func applyDefaultStates(g *domain.Graph) {
	for _, e := range g.Edges {
		if e.IsBleed {
			e.State = domain.StateOpen
			continue
		}
		if e.State == "" {
			// Edges carry no fail_state of their own; absent state simply
			// stays absent, which IsOpen() already treats as open.
			continue
		}
	}

	for _, n := range g.Nodes {
		switch n.Kind {
		case domain.KindDrain, domain.KindVent:
			n.State = domain.StateOpen
			continue
		}
		if n.State == "" {
			switch n.FailState {
			case domain.FailOpen:
				n.State = domain.StateOpen
			case domain.FailClosed:
				n.State = domain.StateClosed
			}
		}
	}
}
