package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"loto/internal/approval"
	"loto/internal/impact"
	"loto/pkg/apperror"
	"loto/pkg/audit"
	"loto/pkg/cache"
	"loto/pkg/domain"
	"loto/pkg/rulepack"
)

func singleCutGraph(assetTag string) map[string]*domain.Graph {
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "V", IsIsolationPoint: true, OpCostMin: 10})
	g.AddNode(&domain.Node{ID: "T", Tag: assetTag})
	g.AddEdge(&domain.Edge{ID: "e1", From: "S", To: "V"})
	g.AddEdge(&domain.Edge{ID: "e2", From: "V", To: "T"})
	return map[string]*domain.Graph{"steam": g}
}

func TestCorePlanProducesActionsAndVerifications(t *testing.T) {
	c := New(DefaultConfig())
	plan, err := c.Plan(context.Background(), PlanInput{Graphs: singleCutGraph(domain.AssetTag)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.PlanID == "" {
		t.Fatal("expected a non-empty plan id")
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("expected one isolation action, got %d: %+v", len(plan.Actions), plan.Actions)
	}
	want := domain.ComponentID("steam", "V_in", "V_out")
	if plan.Actions[0].ComponentID != want {
		t.Fatalf("expected component id %q, got %q", want, plan.Actions[0].ComponentID)
	}
	if plan.Actions[0].Method != domain.MethodLock {
		t.Fatalf("expected lock method, got %q", plan.Actions[0].Method)
	}
	if len(plan.Verifications) == 0 {
		t.Fatal("expected at least one verification string")
	}
}

func TestCorePlanHonorsCustomAssetTag(t *testing.T) {
	c := New(DefaultConfig())
	graphs := singleCutGraph("spare-asset")

	// The plant-wide default tag matches nothing in this graph.
	defaultPlan, err := c.Plan(context.Background(), PlanInput{Graphs: graphs})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(defaultPlan.Actions) != 0 {
		t.Fatalf("expected no actions against the default asset tag, got %d", len(defaultPlan.Actions))
	}

	scopedPlan, err := c.Plan(context.Background(), PlanInput{Graphs: graphs, AssetTag: "spare-asset"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(scopedPlan.Actions) != 1 {
		t.Fatalf("expected one action once scoped to the custom asset tag, got %d", len(scopedPlan.Actions))
	}
}

func TestCorePlanCachesByRulePackGraphAndConfig(t *testing.T) {
	planCache := cache.NewPlanCache(cache.MustNew(cache.DefaultOptions()))
	c := New(DefaultConfig(), WithPlanCache(planCache))

	rp := &rulepack.RulePack{
		Metadata: rulepack.Metadata{
			Name: "steam-default", Version: "1", Owner: "ops",
			EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Governance: rulepack.Governance{Authors: []string{"ops"}},
		Policy: rulepack.Policy{
			NodeSplit: true, Alpha: 1, Beta: 5, Gamma: 0.5, Delta: 1, Epsilon: 2, Zeta: 0.5,
			CBScale: 30, CBMax: 120, RSTScale: 30,
		},
	}

	in := PlanInput{Graphs: singleCutGraph(domain.AssetTag), RulePack: rp}
	first, err := c.Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	second, err := c.Plan(context.Background(), in)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if second.PlanID != first.PlanID {
		t.Fatalf("expected a cache hit to return the identical cached plan id, got %q vs %q", first.PlanID, second.PlanID)
	}
}

// TestCorePlanRejectsInvalidRulePack grounds spec §7's "the planner
// refuses to run" requirement: a pack with a zero CBScale must fail
// plannerOptions' validation rather than reach EdgeCapacity's division.
func TestCorePlanRejectsInvalidRulePack(t *testing.T) {
	c := New(DefaultConfig())
	rp := &rulepack.RulePack{
		Metadata: rulepack.Metadata{
			Name: "bad", Version: "1", Owner: "ops",
			EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Governance: rulepack.Governance{Authors: []string{"ops"}},
		Policy: rulepack.Policy{
			NodeSplit: true, Alpha: 1, Beta: 5, Gamma: 0.5, Delta: 1, Epsilon: 2, Zeta: 0.5,
			CBScale: 0, CBMax: 120, RSTScale: 30,
		},
	}
	_, err := c.Plan(context.Background(), PlanInput{Graphs: singleCutGraph(domain.AssetTag), RulePack: rp})
	if err == nil {
		t.Fatal("expected an error for a rule pack with a zero CBScale")
	}
}

// TestCorePlanAppliesRiskPolicyToWeighting grounds SPEC_FULL.md §2: a
// RiskPolicy matching an edge must change which edge the solver prefers to
// cut, since it doubles the effective risk weight fed into EdgeCapacity.
func TestCorePlanAppliesRiskPolicyToWeighting(t *testing.T) {
	c := New(DefaultConfig())
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "M"})
	g.AddNode(&domain.Node{ID: "T", Tag: domain.AssetTag})
	g.AddEdge(&domain.Edge{ID: "e1", From: "S", To: "M", IsIsolationPoint: true, OpCostMin: 10, RiskWeight: 1})
	g.AddEdge(&domain.Edge{ID: "e2", From: "M", To: "T", IsIsolationPoint: true, OpCostMin: 10, RiskWeight: 1})

	rp := &rulepack.RulePack{
		Metadata: rulepack.Metadata{
			Name: "risk", Version: "1", Owner: "ops",
			EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Governance: rulepack.Governance{Authors: []string{"ops"}},
		Policy: rulepack.Policy{
			NodeSplit: false, Alpha: 1, Beta: 5, Gamma: 0.5, Delta: 1, Epsilon: 2, Zeta: 0.5,
			CBScale: 30, CBMax: 120, RSTScale: 30,
		},
		RiskPolicies: []rulepack.RiskPolicy{
			{Name: "flag-e1", Condition: `edge.id == "e1"`},
		},
	}

	plan, err := c.Plan(context.Background(), PlanInput{Graphs: map[string]*domain.Graph{"steam": g}, RulePack: rp})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("expected exactly one isolation action, got %d: %+v", len(plan.Actions), plan.Actions)
	}
	if plan.Actions[0].ComponentID == domain.ComponentID("steam", "S", "M") {
		t.Fatalf("expected the risk-flagged edge e1 to become unattractive relative to e2, got actions %+v", plan.Actions)
	}
	want := domain.ComponentID("steam", "M", "T")
	if plan.Actions[0].ComponentID != want {
		t.Fatalf("expected the cheaper edge e2 to be cut instead, got %q", plan.Actions[0].ComponentID)
	}
}

// TestCorePlanAppliesVerificationRulesAndDomainRules grounds blocker #2's
// dataflow end to end: VerificationRules must surface in Verifications and
// DomainRules must surface in Hazards/Controls.
func TestCorePlanAppliesVerificationRulesAndDomainRules(t *testing.T) {
	c := New(DefaultConfig())
	g := singleCutGraph(domain.AssetTag)["steam"]

	rp := &rulepack.RulePack{
		Metadata: rulepack.Metadata{
			Name: "rules", Version: "1", Owner: "ops",
			EffectiveDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Governance: rulepack.Governance{Authors: []string{"ops"}},
		Policy: rulepack.Policy{
			NodeSplit: true, Alpha: 1, Beta: 5, Gamma: 0.5, Delta: 1, Epsilon: 2, Zeta: 0.5,
			CBScale: 30, CBMax: 120, RSTScale: 30,
		},
		VerificationRules: []rulepack.VerificationRule{
			{Name: "confined-space-entry", Condition: `startsWith(branch, "steam")`},
		},
		DomainRules: []rulepack.DomainRule{
			{Name: "source-hazard", Target: "node", Condition: `node.is_source == true`, Message: "live source nearby"},
			{Name: "isolation-control", Target: "edge", Condition: `edge.from == "V"`, Message: "lockout required"},
		},
	}

	plan, err := c.Plan(context.Background(), PlanInput{Graphs: map[string]*domain.Graph{"steam": g}, RulePack: rp})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !containsSubstring(plan.Verifications, "confined-space-entry") {
		t.Fatalf("expected the verification rule's name in Verifications, got %v", plan.Verifications)
	}
	if !containsSubstring(plan.Hazards, "live source nearby") {
		t.Fatalf("expected the node-targeted rule's message in Hazards, got %v", plan.Hazards)
	}
	if !containsSubstring(plan.Controls, "lockout required") {
		t.Fatalf("expected the edge-targeted rule's message in Controls, got %v", plan.Controls)
	}
}

func containsSubstring(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestCoreApplyRemovesCutEdgeAndDerivesDefaultStates(t *testing.T) {
	c := New(DefaultConfig())
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "T", Tag: domain.AssetTag})
	g.AddNode(&domain.Node{ID: "D", Kind: domain.KindDrain})
	g.AddEdge(&domain.Edge{ID: "e1", From: "S", To: "T"})

	plan := &domain.IsolationPlan{
		PlanID: "p1",
		Actions: []domain.IsolationAction{
			{ComponentID: domain.ComponentID("steam", "S", "T"), Method: domain.MethodLock},
		},
	}

	out, err := c.Apply(context.Background(), ApplyInput{Plan: plan, Graphs: map[string]*domain.Graph{"steam": g}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	applied := out["steam"]
	if len(applied.EdgesBetween("S", "T")) != 0 {
		t.Fatal("expected the planned cut edge to be removed")
	}
	if n, _ := applied.GetNode("D"); n.State != domain.StateOpen {
		t.Fatalf("expected the drain node to default open, got %q", n.State)
	}
	// The original graph must stay untouched.
	if len(g.EdgesBetween("S", "T")) != 1 {
		t.Fatal("expected apply to leave the original graph unmodified")
	}
}

func TestCoreRunStimuliEchoesSeed(t *testing.T) {
	c := New(DefaultConfig())
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "T", Tag: domain.AssetTag})

	seed := int64(42)
	report, err := c.RunStimuli(context.Background(), RunStimuliInput{
		Graphs:  map[string]*domain.Graph{"steam": g},
		Stimuli: []domain.Stimulus{domain.StimulusRemoteOpen},
		Seed:    &seed,
	})
	if err != nil {
		t.Fatalf("run_stimuli: %v", err)
	}
	if report.Seed != seed {
		t.Fatalf("expected seed %d to be echoed, got %d", seed, report.Seed)
	}
}

// TestCoreRunStimuliIsDeterministic grounds spec §8 scenario S6: running
// run_stimuli twice with the same seed and inputs must yield a
// byte-identical SimReport, in particular TotalTimeS must never leak
// wall-clock duration.
func TestCoreRunStimuliIsDeterministic(t *testing.T) {
	c := New(DefaultConfig())
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})
	g.AddNode(&domain.Node{ID: "T", Tag: domain.AssetTag})
	g.AddEdge(&domain.Edge{ID: "e1", From: "S", To: "T"})

	seed := int64(42)
	in := RunStimuliInput{
		Graphs:  map[string]*domain.Graph{"steam": g},
		Stimuli: []domain.Stimulus{domain.StimulusRemoteOpen},
		Seed:    &seed,
	}

	first, err := c.RunStimuli(context.Background(), in)
	if err != nil {
		t.Fatalf("run_stimuli: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := c.RunStimuli(context.Background(), in)
	if err != nil {
		t.Fatalf("run_stimuli: %v", err)
	}
	if first.TotalTimeS != second.TotalTimeS {
		t.Fatalf("expected byte-identical TotalTimeS across runs, got %v vs %v", first.TotalTimeS, second.TotalTimeS)
	}
	if first.TotalTimeS != 0 {
		t.Fatalf("expected TotalTimeS to stay at its simulated (zero) value, got %v", first.TotalTimeS)
	}
}

func TestCoreRunStimuliFallsBackToDefaultSeed(t *testing.T) {
	c := New(Config{KPaths: 3, DefaultSeed: 7})
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "S", IsSource: true})

	report, err := c.RunStimuli(context.Background(), RunStimuliInput{
		Graphs: map[string]*domain.Graph{"steam": g},
	})
	if err != nil {
		t.Fatalf("run_stimuli: %v", err)
	}
	if report.Seed != 7 {
		t.Fatalf("expected the configured default seed 7, got %d", report.Seed)
	}
}

func TestCoreEvaluateRollsUpUnavailableAssets(t *testing.T) {
	c := New(DefaultConfig())
	g := domain.NewGraph("steam")
	g.AddNode(&domain.Node{ID: "a1", Tag: domain.AssetTag})

	result, err := c.Evaluate(context.Background(), EvaluateInput{
		Input: impact.Input{
			Graphs:     map[string]*domain.Graph{"steam": g},
			AssetUnits: map[string]string{"a1": "unit-1"},
			UnitData:   map[string]impact.UnitInfo{"unit-1": {RatedMW: 100, Scheme: impact.SchemeSPOF}},
		},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.UnavailableAssets) != 1 || result.UnavailableAssets[0] != "a1" {
		t.Fatalf("expected a1 to be unavailable, got %+v", result.UnavailableAssets)
	}
	if result.UnitMWDelta["unit-1"] != 100 {
		t.Fatalf("expected unit-1 to lose its full 100 MW, got %v", result.UnitMWDelta["unit-1"])
	}
}

func TestCoreApprovalGateFlowReachesReady(t *testing.T) {
	c := New(DefaultConfig(), WithApprovals(approval.NewManager(approval.NewMemoryStore())))
	ctx := context.Background()

	if _, err := c.OpenApprovalGate(ctx, "gate-1", "plan-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.Approve(ctx, "gate-1", "alice"); err != nil {
		t.Fatalf("approve alice: %v", err)
	}
	ready, err := c.IsApprovalReady(ctx, "gate-1")
	if err != nil {
		t.Fatalf("is_ready: %v", err)
	}
	if ready {
		t.Fatal("expected one approver to not be enough")
	}
	if _, err := c.Approve(ctx, "gate-1", "bob"); err != nil {
		t.Fatalf("approve bob: %v", err)
	}
	ready, err = c.IsApprovalReady(ctx, "gate-1")
	if err != nil {
		t.Fatalf("is_ready: %v", err)
	}
	if !ready {
		t.Fatal("expected two distinct approvers to reach ready")
	}
}

func TestCoreApprovalWithoutManagerConfiguredReturnsError(t *testing.T) {
	c := New(DefaultConfig())
	if _, err := c.OpenApprovalGate(context.Background(), "gate-1", "plan-1"); err == nil {
		t.Fatal("expected an error when no approval manager is configured")
	}
}

type recordingLogger struct {
	entries []*audit.Entry
}

func (r *recordingLogger) Log(_ context.Context, entry *audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}
func (r *recordingLogger) Query(_ context.Context, _ *audit.QueryFilter) ([]*audit.Entry, error) {
	return nil, apperror.New(apperror.CodeInternal, "query not supported")
}
func (r *recordingLogger) Close() error { return nil }

func TestCoreAuditsPlanOperation(t *testing.T) {
	rec := &recordingLogger{}
	c := New(DefaultConfig(), WithAuditLogger(rec, nil))

	if _, err := c.Plan(context.Background(), PlanInput{Graphs: singleCutGraph(domain.AssetTag), UserID: "alice"}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry for plan, got %d", len(rec.entries))
	}
	if rec.entries[0].Action != audit.ActionPlan {
		t.Fatalf("expected a plan audit action, got %v", rec.entries[0].Action)
	}
	if rec.entries[0].Outcome != audit.OutcomeSuccess {
		t.Fatalf("expected a success outcome, got %v", rec.entries[0].Outcome)
	}
}
