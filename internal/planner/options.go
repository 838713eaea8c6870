// Package planner implements the isolation planner: node splitting, cut
// weighting, and the min-cut solve over per-domain energy graphs.
package planner

import (
	"loto/pkg/domain"
	"loto/pkg/rulepack"
)

// Options carries the planner's per-call configuration. It must never be
// read from process-global state — every field here is threaded explicitly
// through Plan so concurrent callers with different weights cannot leak
// into one another (spec §9 feature-flag isolation).
type Options struct {
	NodeSplit bool
	CBT       float64

	Alpha   float64
	Beta    float64
	Gamma   float64
	Delta   float64
	Epsilon float64
	Zeta    float64

	CBScale  float64
	CBMax    float64
	RSTScale float64

	// AssetTag selects which Node.Tag value counts as a cut target (the
	// T side of the s-t cut). Empty means the plant-wide default
	// (domain.AssetTag). This is the knob behind plan()'s asset_tag
	// parameter (spec §4.1): it scopes a plan to whichever nodes carry
	// the requested tag without touching source/isolation-point wiring.
	AssetTag string

	// RiskPolicies, when non-empty, lets a rule pack flag edges as
	// elevated risk by condition instead of only by authored RiskWeight
	// (SPEC_FULL.md §2). EdgeCapacity evaluates each policy per cuttable
	// edge.
	RiskPolicies []rulepack.RiskPolicy

	// VerificationRules carries a rule pack's pack-specific checks through
	// to internal/verify's per-branch verification output (spec §4.4).
	VerificationRules []rulepack.VerificationRule
}

// DefaultOptions returns the coefficient defaults named in spec §4.2.
func DefaultOptions() Options {
	return Options{
		NodeSplit: true,
		CBT:       0.0,
		Alpha:     1.0,
		Beta:      5.0,
		Gamma:     0.5,
		Delta:     1.0,
		Epsilon:   2.0,
		Zeta:      0.5,
		CBScale:   30.0,
		CBMax:     120.0,
		RSTScale:  30.0,
		AssetTag:  domain.AssetTag,
	}
}
