package rulepack

import "testing"

func TestValidateAcceptsWellFormedPack(t *testing.T) {
	p := buildPack()
	if err := Validate(p); err != nil {
		t.Fatalf("expected a well-formed pack to validate, got %v", err)
	}
}

func TestValidateRejectsNilPack(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected an error for a nil pack")
	}
}

func TestValidateRejectsMissingMetadataFields(t *testing.T) {
	p := buildPack()
	p.Metadata.Owner = ""
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for a missing owner field")
	}
}

func TestValidateRejectsUnevaluableCondition(t *testing.T) {
	p := buildPack()
	p.DomainRules = append(p.DomainRules, DomainRule{
		Name: "broken", Target: "edge", Condition: "edge.medium ===",
	})
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for an unparsable condition expression")
	}
}

func TestValidateRejectsInvalidTarget(t *testing.T) {
	p := buildPack()
	p.DomainRules = append(p.DomainRules, DomainRule{
		Name: "bad-target", Target: "component", Condition: "true",
	})
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for a target outside {node, edge}")
	}
}
