// Package rulepack implements the content-addressable RulePack data model
// (spec §3): metadata, policy, governance, datasets, domain rules,
// verification rules and an optional risk policy set. A pack is identified
// by the SHA-256 of its canonical JSON serialization, so two packs with
// identical content always hash identically regardless of field order at
// construction time.
package rulepack

import "time"

// Metadata carries the governance/versioning fields the distilled spec
// left unnamed (SPEC_FULL.md §3): version, effective date, owner and an
// optional pointer to the pack it supersedes.
type Metadata struct {
	Name          string    `json:"name" validate:"required"`
	Version       string    `json:"version" validate:"required"`
	EffectiveDate time.Time `json:"effective_date" validate:"required"`
	Owner         string    `json:"owner" validate:"required"`
	Supersedes    string    `json:"supersedes,omitempty"`
}

// Policy groups the weighting and operational policy knobs a rule pack
// can override from config defaults (spec §4.2's six coefficients plus the
// node-split toggle).
type Policy struct {
	NodeSplit bool    `json:"node_split"`
	Alpha     float64 `json:"alpha" validate:"gte=0"`
	Beta      float64 `json:"beta" validate:"gte=0"`
	Gamma     float64 `json:"gamma" validate:"gte=0"`
	Delta     float64 `json:"delta" validate:"gte=0"`
	Epsilon   float64 `json:"epsilon" validate:"gte=0"`
	Zeta      float64 `json:"zeta" validate:"gte=0"`
	CBScale   float64 `json:"cb_scale" validate:"gt=0"`
	CBMax     float64 `json:"cb_max" validate:"gte=0"`
	RSTScale  float64 `json:"rst_scale" validate:"gt=0"`
}

// Governance records who may author and approve a pack, separate from the
// per-plan dual-approval gate (C9) which governs re-energization, not
// rule-pack publication.
type Governance struct {
	Authors        []string `json:"authors" validate:"required,min=1"`
	ApprovedBy     []string `json:"approved_by,omitempty"`
	ReviewCycleDays int     `json:"review_cycle_days,omitempty" validate:"gte=0"`
}

// Datasets names the external reference data a pack's rules may query by
// key (unit/area tables, asset registries) without embedding them —
// keeping the pack itself small and its hash stable across data refreshes.
type Datasets struct {
	AssetUnitsRef string `json:"asset_units_ref,omitempty"`
	UnitDataRef   string `json:"unit_data_ref,omitempty"`
	UnitAreasRef  string `json:"unit_areas_ref,omitempty"`
}

// DomainRule is a named boolean expression evaluated against a single
// node or edge (SPEC_FULL.md §2's expr-lang integration). Condition is
// compiled with expr.Compile and must evaluate to a bool; it sees `node`
// and `edge` variables, one of which is nil depending on Target.
type DomainRule struct {
	Name      string `json:"name" validate:"required"`
	Target    string `json:"target" validate:"required,oneof=node edge"`
	Condition string `json:"condition" validate:"required"`
	Message   string `json:"message,omitempty"`
}

// VerificationRule augments the fixed PT=0/no-movement/DDBB verification
// strings (spec §4.4) with pack-specific checks, each a named boolean
// condition evaluated once per branch with `branch` bound to the branch
// label.
type VerificationRule struct {
	Name      string `json:"name" validate:"required"`
	Condition string `json:"condition" validate:"required"`
}

// RiskPolicy is an optional named condition over an edge, flagged true
// when the edge should be treated as elevated risk regardless of its
// authored risk_weight (e.g. "edge.medium == 'steam' && edge.risk_weight > 3").
type RiskPolicy struct {
	Name      string `json:"name" validate:"required"`
	Condition string `json:"condition" validate:"required"`
}

// RulePack is the full content-addressable rule document (spec §3).
type RulePack struct {
	Metadata           Metadata            `json:"metadata" validate:"required"`
	Policy             Policy              `json:"policy"`
	Governance         Governance          `json:"governance"`
	Datasets           Datasets            `json:"datasets,omitempty"`
	DomainRules        []DomainRule        `json:"domain_rules,omitempty" validate:"dive"`
	VerificationRules  []VerificationRule  `json:"verification_rules,omitempty" validate:"dive"`
	RiskPolicies       []RiskPolicy        `json:"risk_policies,omitempty" validate:"dive"`
}
