// Command lotoplanctl is the operator-facing entry point for the isolation
// planner: a non-interactive CLI that wraps internal/core's four external
// operations (plan, apply, run_stimuli, evaluate) plus the dual-approval
// gate, reading JSON off disk or stdin and writing JSON results to stdout.
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: LOTO_)
//  2. Config file (path from CONFIG_PATH, default ./config.yaml)
//  3. Default values (pkg/config/loader.go)
//
// # Subcommands
//
//	lotoplanctl plan          -graphs g.json [-rulepack rp.json] [-asset-tag T] [-user alice]
//	lotoplanctl apply         -plan p.json -graphs g.json
//	lotoplanctl run-stimuli   -graphs g.json -stimuli REMOTE_OPEN,LOCAL_OPEN [-seed 42]
//	lotoplanctl evaluate      -graphs g.json -impact impact.json
//	lotoplanctl approval open    -gate g1 -plan p1
//	lotoplanctl approval approve -gate g1 -user alice
//	lotoplanctl approval status  -gate g1
//
// Every subcommand writes its result as one JSON document to stdout and
// exits non-zero on failure, so lotoplanctl composes with jq in a pipeline
// the way the rest of this system's tooling does.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"loto/internal/approval"
	"loto/internal/core"
	"loto/internal/impact"
	"loto/migrations"
	"loto/pkg/audit"
	"loto/pkg/cache"
	"loto/pkg/config"
	"loto/pkg/database"
	"loto/pkg/domain"
	"loto/pkg/logger"
	"loto/pkg/metrics"
	"loto/pkg/rulepack"
	"loto/pkg/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// =========================================================================
	// Configuration Loading
	// =========================================================================
	//
	// Load() applies defaults, then an optional config file, then LOTO_*
	// environment variables, in that priority order (pkg/config/loader.go).
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lotoplanctl: load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Logger Initialization
	// =========================================================================
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// =========================================================================
	// Telemetry Initialization (OpenTelemetry)
	// =========================================================================
	//
	// Disabled by default for a short-lived CLI invocation; when an operator
	// points it at a collector (tracing.enabled=true) every plan/apply/
	// run_stimuli/evaluate call gets its own span, same as the long-running
	// service would produce.
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	// =========================================================================
	// Metrics Initialization (Prometheus)
	// =========================================================================
	//
	// A CLI invocation is too short-lived to usefully expose a scrape
	// endpoint, but the counters/histograms still accumulate in-process so
	// a wrapping script can read them off /metrics if it starts one, or
	// a test can assert on them directly.
	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)

	// =========================================================================
	// Plan Cache
	// =========================================================================
	var planCache *cache.PlanCache
	if cfg.Cache.Enabled {
		c, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("failed to init cache, continuing without one", "error", err)
		} else {
			planCache = cache.NewPlanCache(c)
		}
	}

	// =========================================================================
	// Audit Logger
	// =========================================================================
	auditCfg := &audit.Config{
		Enabled:        cfg.Audit.Enabled,
		Backend:        cfg.Audit.Backend,
		FilePath:       cfg.Audit.FilePath,
		BufferSize:     cfg.Audit.BufferSize,
		FlushPeriod:    cfg.Audit.FlushPeriod,
		ExcludeMethods: cfg.Audit.ExcludeMethods,
		IncludeRequest: cfg.Audit.IncludeRequest,
		MaskFields:     cfg.Audit.MaskFields,
	}
	auditLogger, err := audit.New(auditCfg)
	if err != nil {
		logger.Log.Warn("failed to init audit logger, falling back to stdout", "error", err)
		auditLogger = audit.NewStdoutLogger(auditCfg)
	}

	// =========================================================================
	// Durable Approval Store
	// =========================================================================
	//
	// Postgres backs the dual-approval gate's state machine so a Ready
	// decision survives past the process that recorded it (spec §4.8).
	// AutoMigrate runs the approval_gates schema up on startup; a deployment
	// that manages its own migrations out-of-band can turn it off.
	var store approval.Store = approval.NewMemoryStore()
	if db, err := database.NewPostgresDB(ctx, &cfg.Database); err != nil {
		logger.Log.Warn("failed to connect to postgres, approval gates will not persist across runs", "error", err)
	} else {
		defer db.Close()
		if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, migrations.FS, "."); err != nil {
			logger.Log.Warn("failed to run approval_gates migrations", "error", err)
		}
		store = approval.NewPostgresStore(db)
	}
	approvals := approval.NewManager(store)

	c := core.New(
		core.Config{KPaths: cfg.Stimuli.KPaths, DefaultSeed: cfg.Stimuli.DefaultSeed},
		core.WithPlanCache(planCache),
		core.WithAuditLogger(auditLogger, cfg.Audit.MaskFields),
		core.WithApprovals(approvals),
		core.WithMetrics(m),
	)
	defer auditLogger.Close()

	cmd, rest := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "plan":
		runErr = runPlan(ctx, c, rest)
	case "apply":
		runErr = runApply(ctx, c, rest)
	case "run-stimuli":
		runErr = runStimuli(ctx, c, rest)
	case "evaluate":
		runErr = runEvaluate(ctx, c, rest)
	case "approval":
		runErr = runApproval(ctx, c, rest)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "lotoplanctl: unknown subcommand %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "lotoplanctl: %v\n", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lotoplanctl <plan|apply|run-stimuli|evaluate|approval> [flags]

  plan        -graphs FILE [-rulepack FILE] [-asset-tag TAG] [-user NAME]
  apply       -plan FILE -graphs FILE
  run-stimuli -graphs FILE [-stimuli NAME,NAME,...] [-seed N] [-rulepack FILE]
  evaluate    -graphs FILE -impact FILE
  approval open    -gate ID -plan ID
  approval approve -gate ID -user NAME
  approval status  -gate ID`)
}

// graphsDoc is the on-disk shape of a multi-domain graph set: one entry
// per energy domain, keyed the same way internal/core's Graphs maps are.
type graphsDoc map[string]struct {
	Nodes []*domain.Node `json:"nodes"`
	Edges []*domain.Edge `json:"edges"`
}

func loadGraphs(path string) (map[string]*domain.Graph, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("read graphs: %w", err)
	}
	var doc graphsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse graphs: %w", err)
	}
	out := make(map[string]*domain.Graph, len(doc))
	for name, d := range doc {
		g := domain.NewGraph(name)
		for _, n := range d.Nodes {
			g.AddNode(n)
		}
		for _, e := range d.Edges {
			g.AddEdge(e)
		}
		out[name] = g
	}
	return out, nil
}

func loadRulePack(path string) (*rulepack.RulePack, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var rp rulepack.RulePack
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	if err := rulepack.Validate(&rp); err != nil {
		return nil, fmt.Errorf("invalid rule pack: %w", err)
	}
	return &rp, nil
}

func loadPlan(path string) (*domain.IsolationPlan, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan domain.IsolationPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &plan, nil
}

func loadImpactInput(path string) (impact.Input, error) {
	raw, err := readInput(path)
	if err != nil {
		return impact.Input{}, fmt.Errorf("read impact input: %w", err)
	}
	var in struct {
		AssetUnits map[string]string          `json:"asset_units"`
		UnitData   map[string]impact.UnitInfo `json:"unit_data"`
		UnitAreas  map[string]string          `json:"unit_areas"`
		Penalties  map[string]float64         `json:"penalties"`
		AssetAreas map[string]string          `json:"asset_areas"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return impact.Input{}, fmt.Errorf("parse impact input: %w", err)
	}
	return impact.Input{
		AssetUnits: in.AssetUnits,
		UnitData:   in.UnitData,
		UnitAreas:  in.UnitAreas,
		Penalties:  in.Penalties,
		AssetAreas: in.AssetAreas,
	}, nil
}

// readInput reads path, or stdin when path is "" or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPlan(ctx context.Context, c *core.Core, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	graphsPath := fs.String("graphs", "", "path to a graphs JSON document (required)")
	rulePackPath := fs.String("rulepack", "", "path to a rule pack JSON document")
	assetTag := fs.String("asset-tag", "", "override the default asset tag for this plan")
	user := fs.String("user", "", "user id for the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphsPath == "" {
		return fmt.Errorf("plan: -graphs is required")
	}

	graphs, err := loadGraphs(*graphsPath)
	if err != nil {
		return err
	}
	rp, err := loadRulePack(*rulePackPath)
	if err != nil {
		return err
	}

	plan, err := c.Plan(ctx, core.PlanInput{
		Graphs:   graphs,
		AssetTag: *assetTag,
		RulePack: rp,
		UserID:   *user,
	})
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	return emit(plan)
}

func runApply(ctx context.Context, c *core.Core, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	planPath := fs.String("plan", "", "path to an IsolationPlan JSON document (required)")
	graphsPath := fs.String("graphs", "", "path to a graphs JSON document (required)")
	user := fs.String("user", "", "user id for the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *planPath == "" || *graphsPath == "" {
		return fmt.Errorf("apply: -plan and -graphs are required")
	}

	plan, err := loadPlan(*planPath)
	if err != nil {
		return err
	}
	graphs, err := loadGraphs(*graphsPath)
	if err != nil {
		return err
	}

	out, err := c.Apply(ctx, core.ApplyInput{Plan: plan, Graphs: graphs, UserID: *user})
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	return emit(out)
}

func runStimuli(ctx context.Context, c *core.Core, args []string) error {
	fs := flag.NewFlagSet("run-stimuli", flag.ExitOnError)
	graphsPath := fs.String("graphs", "", "path to a post-apply graphs JSON document (required)")
	stimuliCSV := fs.String("stimuli", string(domain.StimulusRemoteOpen), "comma-separated stimulus names")
	rulePackPath := fs.String("rulepack", "", "path to a rule pack JSON document")
	seed := fs.Int64("seed", 0, "PRNG seed; 0 uses the configured default")
	user := fs.String("user", "", "user id for the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphsPath == "" {
		return fmt.Errorf("run-stimuli: -graphs is required")
	}

	graphs, err := loadGraphs(*graphsPath)
	if err != nil {
		return err
	}
	rp, err := loadRulePack(*rulePackPath)
	if err != nil {
		return err
	}

	var stimuli []domain.Stimulus
	for _, name := range strings.Split(*stimuliCSV, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			stimuli = append(stimuli, domain.Stimulus(name))
		}
	}

	in := core.RunStimuliInput{Graphs: graphs, Stimuli: stimuli, RulePack: rp, UserID: *user}
	if fs.Lookup("seed").Value.String() != "0" {
		in.Seed = seed
	}

	report, err := c.RunStimuli(ctx, in)
	if err != nil {
		return fmt.Errorf("run-stimuli: %w", err)
	}
	return emit(report)
}

func runEvaluate(ctx context.Context, c *core.Core, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	graphsPath := fs.String("graphs", "", "path to a post-apply graphs JSON document (required)")
	impactPath := fs.String("impact", "", "path to an impact-input JSON document (required)")
	user := fs.String("user", "", "user id for the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *graphsPath == "" || *impactPath == "" {
		return fmt.Errorf("evaluate: -graphs and -impact are required")
	}

	graphs, err := loadGraphs(*graphsPath)
	if err != nil {
		return err
	}
	in, err := loadImpactInput(*impactPath)
	if err != nil {
		return err
	}
	in.Graphs = graphs

	result, err := c.Evaluate(ctx, core.EvaluateInput{Input: in, UserID: *user})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return emit(result)
}

func runApproval(ctx context.Context, c *core.Core, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("approval: expected a sub-action (open|approve|status)")
	}
	action, rest := args[0], args[1:]

	fs := flag.NewFlagSet("approval "+action, flag.ExitOnError)
	gateID := fs.String("gate", "", "approval gate id (required)")
	planID := fs.String("plan", "", "plan id (required for open)")
	user := fs.String("user", "", "approver user id (required for approve)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *gateID == "" {
		return fmt.Errorf("approval %s: -gate is required", action)
	}

	switch action {
	case "open":
		if *planID == "" {
			return fmt.Errorf("approval open: -plan is required")
		}
		gate, err := c.OpenApprovalGate(ctx, *gateID, *planID)
		if err != nil {
			return fmt.Errorf("approval open: %w", err)
		}
		return emit(gate)
	case "approve":
		if *user == "" {
			return fmt.Errorf("approval approve: -user is required")
		}
		state, err := c.Approve(ctx, *gateID, *user)
		if err != nil {
			return fmt.Errorf("approval approve: %w", err)
		}
		return emit(map[string]any{"gate": *gateID, "state": state})
	case "status":
		ready, err := c.IsApprovalReady(ctx, *gateID)
		if err != nil {
			return fmt.Errorf("approval status: %w", err)
		}
		return emit(map[string]any{"gate": *gateID, "ready": ready})
	default:
		return fmt.Errorf("approval: unknown sub-action %q", action)
	}
}
