package rulepack

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"loto/pkg/apperror"
	"loto/pkg/domain"
)

// nodeEnv/edgeEnv expose a node or edge's fields to condition expressions
// as plain maps, grounded on the teacher-pack's conditional executor
// (smilemakc-mbflow/backend/pkg/executor/builtin/conditional.go), which
// compiles expr-lang conditions against a map[string]any environment.
func nodeEnv(n *domain.Node) map[string]any {
	if n == nil {
		return nil
	}
	return map[string]any{
		"id":               n.ID,
		"tag":              n.Tag,
		"is_source":        n.IsSource,
		"is_isolation_point": n.IsIsolationPoint,
		"kind":             string(n.Kind),
		"fail_state":       string(n.FailState),
		"control":          string(n.Control),
		"safe_sink":        n.SafeSink,
		"op_cost_min":      n.OpCostMin,
		"reset_time_min":   n.ResetTimeMin,
		"state":            n.State,
	}
}

func edgeEnv(e *domain.Edge) map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"id":                 e.ID,
		"from":               e.From,
		"to":                 e.To,
		"is_isolation_point": e.IsIsolationPoint,
		"is_bleed":           e.IsBleed,
		"medium":             string(e.Medium),
		"state":              e.State,
		"op_cost_min":        e.OpCostMin,
		"reset_time_min":     e.ResetTimeMin,
		"risk_weight":        e.RiskWeight,
		"travel_time_min":    e.TravelTimeMin,
		"elevation_penalty":  e.ElevationPenalty,
		"outage_penalty":     e.OutagePenalty,
	}
}

// compile compiles a condition string against the superset environment
// (node, edge, branch all present but possibly nil/empty) so every rule
// kind shares one compile path.
func compile(condition string) (*vm.Program, error) {
	env := map[string]any{
		"node":   map[string]any{},
		"edge":   map[string]any{},
		"branch": "",
	}
	return expr.Compile(condition, expr.Env(env), expr.AsBool())
}

// EvalDomainRule evaluates a DomainRule against a node or edge (only the
// one matching r.Target should be non-nil). Returns the boolean result.
func EvalDomainRule(r DomainRule, n *domain.Node, e *domain.Edge) (bool, error) {
	program, err := compile(r.Condition)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("domain rule %q failed to compile", r.Name))
	}
	env := map[string]any{
		"node":   nodeEnv(n),
		"edge":   edgeEnv(e),
		"branch": "",
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("domain rule %q failed to evaluate", r.Name))
	}
	return out.(bool), nil
}

// EvalRiskPolicy evaluates a RiskPolicy condition against an edge.
func EvalRiskPolicy(r RiskPolicy, e *domain.Edge) (bool, error) {
	program, err := compile(r.Condition)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("risk policy %q failed to compile", r.Name))
	}
	env := map[string]any{
		"node":   map[string]any{},
		"edge":   edgeEnv(e),
		"branch": "",
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("risk policy %q failed to evaluate", r.Name))
	}
	return out.(bool), nil
}

// EvalVerificationRule evaluates a VerificationRule condition against a
// branch label (spec §4.4's verification generator operates per branch).
func EvalVerificationRule(r VerificationRule, branch string) (bool, error) {
	program, err := compile(r.Condition)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("verification rule %q failed to compile", r.Name))
	}
	env := map[string]any{
		"node":   map[string]any{},
		"edge":   map[string]any{},
		"branch": branch,
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, apperror.Wrap(err, apperror.CodeRulePackCondition, fmt.Sprintf("verification rule %q failed to evaluate", r.Name))
	}
	return out.(bool), nil
}
