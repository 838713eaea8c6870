package rulepack

import (
	"testing"

	"loto/pkg/domain"
)

func TestEvalDomainRuleMatchesEdge(t *testing.T) {
	r := DomainRule{Name: "high-risk-steam", Target: "edge", Condition: "edge.medium == 'steam' && edge.risk_weight > 3"}
	e := &domain.Edge{Medium: domain.MediumSteam, RiskWeight: 5}

	matched, err := EvalDomainRule(r, nil, e)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !matched {
		t.Fatal("expected the condition to match a high-risk steam edge")
	}
}

func TestEvalDomainRuleNoMatch(t *testing.T) {
	r := DomainRule{Name: "high-risk-steam", Target: "edge", Condition: "edge.medium == 'steam' && edge.risk_weight > 3"}
	e := &domain.Edge{Medium: domain.MediumWater, RiskWeight: 5}

	matched, err := EvalDomainRule(r, nil, e)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if matched {
		t.Fatal("expected the condition not to match a water edge")
	}
}

func TestEvalRiskPolicy(t *testing.T) {
	r := RiskPolicy{Name: "elevated", Condition: "edge.travel_time_min > 10"}
	e := &domain.Edge{TravelTimeMin: 15}

	hit, err := EvalRiskPolicy(r, e)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !hit {
		t.Fatal("expected the risk policy to flag a long travel time edge")
	}
}

func TestEvalVerificationRuleSeesBranchLabel(t *testing.T) {
	r := VerificationRule{Name: "branch-named", Condition: `startsWith(branch, "steam:")`}

	hit, err := EvalVerificationRule(r, "steam:A-B-C")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !hit {
		t.Fatal("expected the verification rule to match the branch label prefix")
	}
}
