package planner

import (
	"loto/pkg/domain"
	"loto/pkg/rulepack"
)

// EdgeCapacity computes the weighted min-cut capacity of a single cuttable
// edge per spec §4.2. Non-cuttable edges have effectively infinite
// capacity and never reach this function from Plan's call site, but it
// returns domain.Infinity for them too so callers can use it uniformly.
func EdgeCapacity(e *domain.Edge, u, v *domain.Node, opt Options) float64 {
	if !e.IsIsolationPoint {
		return domain.Infinity
	}

	opCost := firstNonZero(e.OpCostMin, nodeOpCost(u), nodeOpCost(v))
	reset := firstNonZero(e.ResetTimeMin, nodeResetTime(u), nodeResetTime(v))
	riskWeight := effectiveRiskWeight(e, opt.RiskPolicies)

	base := opt.Alpha*opCost + opt.Beta*riskWeight + opt.Gamma*e.TravelTimeMin +
		opt.Delta*e.ElevationPenalty + opt.Epsilon*e.OutagePenalty
	if domain.IsZero(base) {
		base = 1
	}

	mult := 1 + domain.Min(opt.CBT, opt.CBMax)/opt.CBScale
	capacity := base*mult + opt.Zeta*reset*(1+opt.CBT/opt.RSTScale)
	return capacity
}

// effectiveRiskWeight applies a rule pack's risk policies on top of an
// edge's authored RiskWeight (SPEC_FULL.md §2): a matching policy doubles
// the weight fed into the cut weighter, letting a pack flag elevated-risk
// edges by condition instead of requiring every edge to carry the right
// risk_weight at ingest time. A condition that fails to compile or
// evaluate is treated as not matching rather than aborting the solve —
// pack conditions are already compile-checked by rulepack.Validate before
// a pack reaches the planner.
func effectiveRiskWeight(e *domain.Edge, policies []rulepack.RiskPolicy) float64 {
	w := e.RiskWeight
	for _, p := range policies {
		if matched, err := rulepack.EvalRiskPolicy(p, e); err == nil && matched {
			w *= 2
		}
	}
	return w
}

func firstNonZero(vals ...float64) float64 {
	for _, v := range vals {
		if !domain.IsZero(v) {
			return v
		}
	}
	return 0
}

func nodeOpCost(n *domain.Node) float64 {
	if n == nil {
		return 0
	}
	return n.OpCostMin
}

func nodeResetTime(n *domain.Node) float64 {
	if n == nil {
		return 0
	}
	return n.ResetTimeMin
}
