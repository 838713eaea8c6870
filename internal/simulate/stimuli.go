package simulate

import (
	"math/rand"
	"sort"

	"loto/pkg/domain"
)

// handlers maps each known stimulus to the graph mutation it performs
// (spec §4.6). Unknown stimulus names are dropped silently by RunStimuli
// before ever reaching this map.
var handlers = map[domain.Stimulus]func(*domain.Graph){
	domain.StimulusRemoteOpen: func(g *domain.Graph) { openByControl(g, domain.ControlRemote) },
	domain.StimulusLocalOpen:  func(g *domain.Graph) { openByControl(g, domain.ControlLocal) },
	domain.StimulusAirReturn:  func(g *domain.Graph) { openByKind(g, domain.KindAirReturn) },
	domain.StimulusESDReset:   func(g *domain.Graph) { openByKind(g, domain.KindESD) },
	domain.StimulusPumpStart:  func(g *domain.Graph) { onByKind(g, domain.KindPump) },
}

// Edges carry no control field of their own in this data model, so
// REMOTE_OPEN/LOCAL_OPEN only ever touches nodes.
func openByControl(g *domain.Graph, c domain.Control) {
	for _, n := range g.Nodes {
		if n.Control == c {
			n.State = domain.StateOpen
		}
	}
}

func openByKind(g *domain.Graph, k domain.NodeKind) {
	for _, n := range g.Nodes {
		if n.Kind == k {
			n.State = domain.StateOpen
		}
	}
}

func onByKind(g *domain.Graph, k domain.NodeKind) {
	for _, n := range g.Nodes {
		if n.Kind == k {
			n.State = domain.StateOn
		}
	}
}

// kShortestPathsForDomain runs the open-subgraph bypass check for one
// domain graph after a stimulus handler has run (spec §4.6 paragraph 2).
func kShortestPathsForDomain(g *domain.Graph, k int, rng *rand.Rand) []domain.Path {
	sources := nodeIDs(g.Sources())
	assets := nodeIDs(g.Assets())
	if len(sources) == 0 || len(assets) == 0 {
		return nil
	}
	return domain.KShortestSimplePaths(g, sources, assets, domain.OpenEdge, k, rng)
}

func nodeIDs(nodes []*domain.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// RunStimuli applies a sequence of stimuli to graphs (already the output
// of Apply) and reports whether each stimulus uncovers a remaining
// source->asset path (spec §4.6, §6 operation 3). Stimuli are applied
// sequentially; later stimuli observe earlier mutations. graphs is
// mutated in place — callers that need the pre-stimuli graphs preserved
// should pass a fresh Apply() result.
func RunStimuli(graphs map[string]*domain.Graph, stimuli []domain.Stimulus, k int, seed int64) *domain.SimReport {
	report := &domain.SimReport{Seed: seed}
	rng := rand.New(rand.NewSource(seed))

	domainNames := make([]string, 0, len(graphs))
	for name := range graphs {
		domainNames = append(domainNames, name)
	}
	sort.Strings(domainNames)

	for _, s := range stimuli {
		handler, known := handlers[s]
		if !known {
			continue
		}

		for _, name := range domainNames {
			handler(graphs[name])
		}

		item := domain.SimResultItem{Stimulus: string(s), Success: true}
		for _, name := range domainNames {
			paths := kShortestPathsForDomain(graphs[name], k, rng)
			if len(paths) == 0 {
				continue
			}
			item.Success = false
			item.Impact = 1.0
			item.OffendingDomain = name
			item.Paths = make([]string, len(paths))
			for i, p := range paths {
				item.Paths[i] = p.String()
			}
			item.Hint = "extra isolation required"
			break
		}
		report.Results = append(report.Results, item)
	}

	return report
}
