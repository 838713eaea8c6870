// Package impact implements the impact engine (C8): given post-application
// graphs and the plant's unit/area topology, it determines which assets
// are left unreachable and rolls the resulting MW loss up to units and
// areas (spec §4.7).
package impact

import (
	"sort"

	"loto/pkg/domain"
)

// Scheme is a unit's redundancy model.
type Scheme string

const (
	// SchemeSPOF: any unavailable asset in the unit takes the whole unit
	// offline (single point of failure).
	SchemeSPOF Scheme = "SPOF"
	// SchemeNPlus1: the unit derates in proportion to its unavailable
	// assets, losing RatedMW/NPlus per offline asset, capped at RatedMW.
	SchemeNPlus1 Scheme = "N+1"
)

// UnitInfo is one entry of the unit->(rated MW, scheme, nplus) map (spec §4.7).
type UnitInfo struct {
	RatedMW float64
	Scheme  Scheme
	NPlus   int
}

// Input bundles the impact engine's operands (spec §6 operation 4).
type Input struct {
	Graphs     map[string]*domain.Graph
	AssetUnits map[string]string // asset id -> unit id
	UnitData   map[string]UnitInfo
	UnitAreas  map[string]string // unit id -> area id
	Penalties  map[string]float64 // asset id -> penalty MW, optional
	AssetAreas map[string]string  // asset id -> area id, for unit-less assets, optional
}

// Evaluate runs the impact engine (spec §4.7).
func Evaluate(in Input) *domain.ImpactResult {
	unavailable := unavailableAssets(in.Graphs)

	unitOffline := make(map[string]int)
	for asset := range unavailable {
		if unit, ok := in.AssetUnits[asset]; ok && unit != "" {
			unitOffline[unit]++
		}
	}

	unitMWDelta := make(map[string]float64)
	for unit, info := range in.UnitData {
		delta := unitDelta(info, unitOffline[unit])
		delta += unitPenalties(in, unit, unavailable)
		if domain.IsPositive(delta) {
			unitMWDelta[unit] = delta
		}
	}

	areaMWDelta := make(map[string]float64)
	for unit, delta := range unitMWDelta {
		if area, ok := in.UnitAreas[unit]; ok && area != "" {
			areaMWDelta[area] += delta
		}
	}
	for asset := range unavailable {
		if unit := in.AssetUnits[asset]; unit != "" {
			continue // already rolled up via its unit
		}
		area, ok := in.AssetAreas[asset]
		if !ok || area == "" {
			continue
		}
		areaMWDelta[area] += in.Penalties[asset]
	}

	result := &domain.ImpactResult{
		UnavailableAssets: sortedKeys(unavailable),
		UnitMWDelta:       unitMWDelta,
		AreaMWDelta:       areaMWDelta,
	}
	return result
}

// unavailableAssets computes, per domain, the open-subgraph reachable set
// from every source and returns every asset-tagged node not in it,
// unioned across domains (spec §4.7 step 1).
func unavailableAssets(graphs map[string]*domain.Graph) map[string]bool {
	unavailable := make(map[string]bool)
	for _, g := range graphs {
		sources := make([]string, 0)
		for _, n := range g.Sources() {
			sources = append(sources, n.ID)
		}
		reachable := domain.Reachable(g, sources, domain.OpenEdge)
		for _, a := range g.Assets() {
			if !reachable[a.ID] {
				unavailable[a.ID] = true
			}
		}
	}
	return unavailable
}

// unitDelta computes a unit's MW loss from its redundancy scheme and the
// count of its unavailable assets (spec §4.7 step 2).
func unitDelta(info UnitInfo, offlineCount int) float64 {
	if offlineCount == 0 {
		return 0
	}
	switch info.Scheme {
	case SchemeSPOF:
		return info.RatedMW
	case SchemeNPlus1:
		nplus := info.NPlus
		if nplus < 1 {
			nplus = 1
		}
		return domain.Min(info.RatedMW, float64(offlineCount)*info.RatedMW/float64(nplus))
	default:
		return 0
	}
}

// unitPenalties sums the per-asset penalty for every unavailable asset
// assigned to unit (spec §4.7 step 2's "add per-asset penalties").
func unitPenalties(in Input, unit string, unavailable map[string]bool) float64 {
	var total float64
	for asset, au := range in.AssetUnits {
		if au != unit || !unavailable[asset] {
			continue
		}
		total += in.Penalties[asset]
	}
	return total
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
