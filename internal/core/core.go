// Package core wires the planner, verification generator, simulator,
// impact engine and approval gate into the four external operations
// named in the system's data model: plan, apply, run_stimuli, evaluate.
// It owns no state between calls beyond what its collaborators
// (PlanCache, audit logger, approval manager) carry themselves — the
// solver math itself is pure per call (spec §5).
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"loto/internal/approval"
	"loto/internal/impact"
	"loto/internal/planner"
	"loto/internal/simulate"
	"loto/internal/verify"
	"loto/pkg/apperror"
	"loto/pkg/audit"
	"loto/pkg/cache"
	"loto/pkg/domain"
	"loto/pkg/logger"
	"loto/pkg/metrics"
	"loto/pkg/rulepack"
	"loto/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

// Config bundles the tunables a Core needs beyond its collaborators.
type Config struct {
	KPaths      int
	DefaultSeed int64
}

// DefaultConfig mirrors the defaults in pkg/config's StimuliConfig.
func DefaultConfig() Config {
	return Config{KPaths: 5, DefaultSeed: 0}
}

// Core is the service-level facade over the planner, verifier, simulator,
// impact engine and approval gate.
type Core struct {
	cfg        Config
	planCache  *cache.PlanCache
	auditLog   audit.Logger
	maskFields []string
	approvals  *approval.Manager
	metrics    *metrics.Metrics
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithPlanCache attaches a plan cache; nil (the zero value) disables
// caching entirely.
func WithPlanCache(c *cache.PlanCache) Option {
	return func(co *Core) { co.planCache = c }
}

// WithAuditLogger attaches an audit sink; callers pass the mask-field
// list from pkg/config's AuditConfig so redaction is applied uniformly.
func WithAuditLogger(l audit.Logger, maskFields []string) Option {
	return func(co *Core) {
		co.auditLog = l
		co.maskFields = maskFields
	}
}

// WithApprovals attaches the dual-approval gate manager.
func WithApprovals(m *approval.Manager) Option {
	return func(co *Core) { co.approvals = m }
}

// WithMetrics attaches the process-wide metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(co *Core) { co.metrics = m }
}

// New builds a Core. Every Option is optional; a bare New(cfg) runs with
// no cache, no audit sink, and no approval gate, which is sufficient for
// plan()/apply()/run_stimuli()/evaluate() to work standalone.
func New(cfg Config, opts ...Option) *Core {
	if cfg.KPaths <= 0 {
		cfg.KPaths = DefaultConfig().KPaths
	}
	c := &Core{cfg: cfg, auditLog: &audit.NoopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlanInput bundles plan()'s operands (spec §6 operation 1).
type PlanInput struct {
	Graphs   map[string]*domain.Graph
	AssetTag string
	RulePack *rulepack.RulePack
	UserID   string
}

// Plan runs the isolation planner over every domain graph and returns the
// merged IsolationPlan (spec §4.3/§4.4). An asset tag that matches no
// node in any domain yields an empty plan, not an error (spec §4.9).
func (c *Core) Plan(ctx context.Context, in PlanInput) (*domain.IsolationPlan, error) {
	ctx, span := telemetry.StartSpan(ctx, "core.Plan",
		telemetry.WithAttributes(attribute.String("asset_tag", in.AssetTag)))
	defer span.End()
	start := time.Now()

	opt, err := plannerOptions(in.RulePack)
	if err != nil {
		telemetry.SetError(ctx, err)
		c.audit(ctx, audit.ActionPlan, in.UserID, audit.OutcomeFailure, time.Since(start), err, nil)
		return nil, err
	}

	key, cacheable := c.planCacheKey(in, opt)
	if cacheable {
		if payload, err := c.planCache.Get(ctx, key); err == nil {
			var cached domain.IsolationPlan
			if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
				c.audit(ctx, audit.ActionPlan, in.UserID, audit.OutcomeSuccess, time.Since(start), nil, map[string]any{"cache_hit": true})
				return &cached, nil
			}
		}
	}

	plan, err := c.plan(in, opt)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordOperation("plan", err == nil, elapsed)
	}
	if err != nil {
		telemetry.SetError(ctx, err)
		c.audit(ctx, audit.ActionPlan, in.UserID, audit.OutcomeFailure, elapsed, err, nil)
		return nil, err
	}

	if cacheable {
		if payload, jsonErr := json.Marshal(plan); jsonErr == nil {
			_ = c.planCache.Set(ctx, key, payload, 0)
		}
	}

	c.audit(ctx, audit.ActionPlan, in.UserID, audit.OutcomeSuccess, elapsed, nil, map[string]any{
		"actions":       len(plan.Actions),
		"verifications": len(plan.Verifications),
	})
	return plan, nil
}

func (c *Core) plan(in PlanInput, opt planner.Options) (*domain.IsolationPlan, error) {
	if in.AssetTag != "" {
		opt.AssetTag = in.AssetTag
	}

	var actions []domain.IsolationAction
	var verifications []string
	var hazards []string
	var controls []string

	domainNames := sortedDomainNames(in.Graphs)
	for _, name := range domainNames {
		g := in.Graphs[name]

		work := planner.WorkGraph(g, opt)
		cuts := planner.Solve(g, opt)
		for _, cut := range cuts {
			actions = append(actions, domain.IsolationAction{
				ComponentID: domain.ComponentID(name, cut.From, cut.To),
				Method:      domain.MethodLock,
			})
		}
		verifications = append(verifications, verify.Generate(work, name, cuts, opt.AssetTag, opt.VerificationRules)...)

		h, ctl := domainRuleMessages(in.RulePack, g, name)
		hazards = append(hazards, h...)
		controls = append(controls, ctl...)
	}

	return &domain.IsolationPlan{
		PlanID:        uuid.NewString(),
		Actions:       actions,
		Verifications: verifications,
		Hazards:       hazards,
		Controls:      controls,
	}, nil
}

// domainRuleMessages evaluates a rule pack's DomainRules against every
// node and edge of a domain graph (SPEC_FULL.md §2), feeding
// IsolationPlan.Hazards from node-targeted rules and Controls from
// edge-targeted ones. Nodes are visited in sorted-id order so the result
// is stable across runs despite Graph.Nodes being a map.
func domainRuleMessages(pack *rulepack.RulePack, g *domain.Graph, domainName string) (hazards, controls []string) {
	if pack == nil {
		return nil, nil
	}
	for _, r := range pack.DomainRules {
		switch r.Target {
		case "node":
			ids := make([]string, 0, len(g.Nodes))
			for id := range g.Nodes {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				matched, err := rulepack.EvalDomainRule(r, g.Nodes[id], nil)
				if err != nil || !matched {
					continue
				}
				hazards = append(hazards, domainRuleMessage(domainName, r, id))
			}
		case "edge":
			for _, e := range g.Edges {
				matched, err := rulepack.EvalDomainRule(r, nil, e)
				if err != nil || !matched {
					continue
				}
				controls = append(controls, domainRuleMessage(domainName, r, e.ID))
			}
		}
	}
	return hazards, controls
}

func domainRuleMessage(domainName string, r rulepack.DomainRule, targetID string) string {
	msg := r.Message
	if msg == "" {
		msg = r.Name
	}
	return fmt.Sprintf("%s:%s %s", domainName, targetID, msg)
}

// ApplyInput bundles apply()'s operands (spec §6 operation 2).
type ApplyInput struct {
	Plan   *domain.IsolationPlan
	Graphs map[string]*domain.Graph
	UserID string
}

// Apply produces new graphs reflecting the plan's cuts and every node's
// default failure state (spec §4.5). Originals are never mutated.
func (c *Core) Apply(ctx context.Context, in ApplyInput) (map[string]*domain.Graph, error) {
	ctx, span := telemetry.StartSpan(ctx, "core.Apply")
	defer span.End()
	start := time.Now()

	out := simulate.Apply(in.Plan, in.Graphs)

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordOperation("apply", true, elapsed)
	}
	c.audit(ctx, audit.ActionApplyPlan, in.UserID, audit.OutcomeSuccess, elapsed, nil, map[string]any{
		"domains": len(out),
	})
	return out, nil
}

// RunStimuliInput bundles run_stimuli()'s operands (spec §6 operation 3).
type RunStimuliInput struct {
	Graphs   map[string]*domain.Graph
	Stimuli  []domain.Stimulus
	RulePack *rulepack.RulePack
	Seed     *int64
	UserID   string
}

// RunStimuli applies each named stimulus to the post-apply graphs and
// reports whether any offending path remains (spec §4.6).
func (c *Core) RunStimuli(ctx context.Context, in RunStimuliInput) (*domain.SimReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "core.RunStimuli")
	defer span.End()
	start := time.Now()

	seed := c.cfg.DefaultSeed
	if in.Seed != nil {
		seed = *in.Seed
	}
	// in.RulePack carries no k-paths override today; the field is accepted
	// for forward compatibility with a future policy knob on sampling depth.
	report := simulate.RunStimuli(in.Graphs, in.Stimuli, c.cfg.KPaths, seed)

	// TotalTimeS reports simulated, not wall-clock, time: it must stay
	// byte-identical across repeated runs with the same seed (spec §5, §8
	// S6). simulate.RunStimuli already leaves it at the sum of whatever
	// simulated per-stimulus durations the engine models, which today is
	// zero — see the DESIGN.md note under internal/simulate.
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordOperation("run_stimuli", true, elapsed)
		for _, r := range report.Results {
			c.metrics.RecordStimuliPaths(r.OffendingDomain, len(r.Paths))
		}
	}
	c.audit(ctx, audit.ActionRunStimuli, in.UserID, audit.OutcomeSuccess, elapsed, nil, map[string]any{
		"results": len(report.Results),
		"seed":    seed,
	})
	return report, nil
}

// EvaluateInput bundles evaluate()'s operands (spec §6 operation 4).
type EvaluateInput struct {
	impact.Input
	UserID string
}

// Evaluate derives unit/area MW deltas from the post-apply graphs (spec
// §4.7).
func (c *Core) Evaluate(ctx context.Context, in EvaluateInput) (*domain.ImpactResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "core.Evaluate")
	defer span.End()
	start := time.Now()

	result := impact.Evaluate(in.Input)

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordOperation("evaluate", true, elapsed)
	}
	c.audit(ctx, audit.ActionEvaluate, in.UserID, audit.OutcomeSuccess, elapsed, nil, map[string]any{
		"unavailable_assets": len(result.UnavailableAssets),
	})
	return result, nil
}

// OpenApprovalGate opens a Pending dual-approval gate for planID (spec
// §4.8). Re-energization callers must call Approve at least twice with
// distinct user ids, then check IsReady before proceeding.
func (c *Core) OpenApprovalGate(ctx context.Context, gateID, planID string) (*approval.Gate, error) {
	if c.approvals == nil {
		return nil, apperror.New(apperror.CodeInvalidArgument, "no approval manager configured")
	}
	return c.approvals.Open(ctx, gateID, planID, time.Now())
}

// Approve records userID's approval against gateID and returns the
// resulting state.
func (c *Core) Approve(ctx context.Context, gateID, userID string) (approval.State, error) {
	if c.approvals == nil {
		return "", apperror.New(apperror.CodeInvalidArgument, "no approval manager configured")
	}
	state, err := c.approvals.Approve(ctx, gateID, userID, time.Now())
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
	}
	if c.metrics != nil {
		c.metrics.RecordApproval(string(outcome))
	}
	c.audit(ctx, audit.ActionApprove, userID, outcome, 0, err, map[string]any{
		"gate_id": gateID,
		"state":   string(state),
	})
	return state, err
}

// IsApprovalReady reports whether gateID has accumulated two distinct
// approvers.
func (c *Core) IsApprovalReady(ctx context.Context, gateID string) (bool, error) {
	if c.approvals == nil {
		return false, apperror.New(apperror.CodeInvalidArgument, "no approval manager configured")
	}
	return c.approvals.IsReady(ctx, gateID)
}

func (c *Core) audit(ctx context.Context, action audit.Action, userID string, outcome audit.Outcome, d time.Duration, err error, meta map[string]any) {
	if c.auditLog == nil {
		return
	}
	b := audit.NewEntry().
		Service("loto").
		Method(string(action)).
		Action(action).
		Outcome(outcome).
		User(userID, "").
		Duration(d)
	for k, v := range meta {
		b.Meta(k, v)
	}
	if err != nil {
		if appErr, ok := err.(*apperror.Error); ok {
			b.Error(string(appErr.Code), appErr.Message)
		} else {
			b.Error(string(apperror.CodeInternal), err.Error())
		}
	}
	entry := audit.Redact(b.Build(), c.maskFields)
	if logErr := c.auditLog.Log(ctx, entry); logErr != nil {
		logger.Log.Warn("failed to write audit entry", "error", logErr)
	}
}

func (c *Core) planCacheKey(in PlanInput, opt planner.Options) (cache.PlanCacheKey, bool) {
	if c.planCache == nil || in.RulePack == nil {
		return cache.PlanCacheKey{}, false
	}
	rpHash, err := rulepack.Hash(in.RulePack)
	if err != nil {
		return cache.PlanCacheKey{}, false
	}
	graphHash, err := cache.HashConfig(graphFingerprint(in.Graphs))
	if err != nil {
		return cache.PlanCacheKey{}, false
	}
	cfgHash, err := cache.HashConfig(opt)
	if err != nil {
		return cache.PlanCacheKey{}, false
	}
	return cache.PlanCacheKey{
		RulePackHash: rpHash,
		AssetTag:     in.AssetTag,
		GraphHash:    graphHash,
		ConfigHash:   cfgHash,
	}, true
}

// graphFingerprint reduces graphs to a stable, hashable shape: node and
// edge counts per domain plus sorted edge component ids. Full graph
// content is not included to keep the fingerprint cheap; a collision
// would require identical shapes with different non-cut-relevant
// attributes, which does not change the plan.
func graphFingerprint(graphs map[string]*domain.Graph) map[string]any {
	out := make(map[string]any, len(graphs))
	for name, g := range graphs {
		ids := make([]string, 0, g.EdgeCount())
		for _, e := range g.Edges {
			ids = append(ids, domain.ComponentID(name, e.From, e.To))
		}
		sort.Strings(ids)
		out[name] = map[string]any{
			"nodes": g.NodeCount(),
			"edges": ids,
		}
	}
	return out
}

// plannerOptions translates a rule pack's Policy into planner.Options. A
// non-nil pack is validated first (struct tags plus condition
// compilation) so a pack with a zero CBScale/RSTScale or an unevaluable
// condition is rejected here as a RulesError, per spec §7's "the planner
// refuses to run" requirement, instead of reaching EdgeCapacity and
// dividing by zero.
func plannerOptions(p *rulepack.RulePack) (planner.Options, error) {
	if p == nil {
		return planner.DefaultOptions(), nil
	}
	if err := rulepack.Validate(p); err != nil {
		return planner.Options{}, err
	}
	return planner.Options{
		NodeSplit:         p.Policy.NodeSplit,
		Alpha:             p.Policy.Alpha,
		Beta:              p.Policy.Beta,
		Gamma:             p.Policy.Gamma,
		Delta:             p.Policy.Delta,
		Epsilon:           p.Policy.Epsilon,
		Zeta:              p.Policy.Zeta,
		CBScale:           p.Policy.CBScale,
		CBMax:             p.Policy.CBMax,
		RSTScale:          p.Policy.RSTScale,
		AssetTag:          domain.AssetTag,
		RiskPolicies:      p.RiskPolicies,
		VerificationRules: p.VerificationRules,
	}, nil
}

func sortedDomainNames(graphs map[string]*domain.Graph) []string {
	names := make([]string, 0, len(graphs))
	for name := range graphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
