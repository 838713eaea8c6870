package rulepack

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"loto/pkg/apperror"
)

// validate is a singleton validator instance, grounded on the
// dd0wney-graphdb validation package's pattern of a package-level
// validator.Validate reused across calls rather than constructed per call.
var validate = validator.New()

// Validate runs struct-tag validation over p and wraps the first failing
// field into a RulesError (spec §7: rule-pack validation failure is
// surfaced and the planner refuses to run). A nil pack is itself invalid.
func Validate(p *RulePack) error {
	if p == nil {
		return apperror.New(apperror.CodeRulePackMissing, "rule pack is nil")
	}

	if err := validate.Struct(p); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperror.Wrap(err, apperror.CodeRulePackInvalid, "rule pack failed validation")
		}
		first := fieldErrs[0]
		return apperror.NewWithField(
			apperror.CodeRulePackMissing,
			fmt.Sprintf("field %s failed validation %q", first.Namespace(), first.Tag()),
			first.Namespace(),
		)
	}

	for _, r := range p.DomainRules {
		if _, err := compile(r.Condition); err != nil {
			return apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("domain rule %q has an unevaluable condition", r.Name))
		}
	}
	for _, r := range p.VerificationRules {
		if _, err := compile(r.Condition); err != nil {
			return apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("verification rule %q has an unevaluable condition", r.Name))
		}
	}
	for _, r := range p.RiskPolicies {
		if _, err := compile(r.Condition); err != nil {
			return apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("risk policy %q has an unevaluable condition", r.Name))
		}
	}

	return nil
}
