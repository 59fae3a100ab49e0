package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

// Researcher runs per-company research. Satisfied by research.Coordinator.
type Researcher interface {
	Start(ctx context.Context, profileID, companyName string) (*model.ResearchRun, error)
	Run(ctx context.Context, run *model.ResearchRun) error
}

// Coordinator steps a discovery run: generate queries, find companies,
// dispatch per-company research in batches, score fit, and synthesize a
// final narrative. Steps are re-entrant; the run carries all state.
type Coordinator struct {
	store     store.Store
	search    serper.Client
	llm       anthropic.Client
	cfg       *config.Config
	overrides config.WorkerOverrides
	research  Researcher
}

// NewCoordinator wires a discovery coordinator from its dependencies.
func NewCoordinator(st store.Store, search serper.Client, llm anthropic.Client, cfg *config.Config, overrides config.WorkerOverrides, research Researcher) *Coordinator {
	return &Coordinator{
		store:     st,
		search:    search,
		llm:       llm,
		cfg:       cfg,
		overrides: overrides,
		research:  research,
	}
}

// Start creates and persists a new discovery run for a profile.
func (c *Coordinator) Start(ctx context.Context, profileID string) (*model.DiscoveryRun, error) {
	if _, err := c.store.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}

	run := model.NewDiscoveryRun(profileID, c.cfg.Discovery.MaxCompanies, c.cfg.Discovery.ResearchBatchSize)
	if err := c.store.SaveDiscoveryRun(ctx, run); err != nil {
		return nil, err
	}
	zap.L().Info("discovery run started",
		zap.String("run_id", run.ID),
		zap.String("profile_id", profileID),
		zap.Int("max_companies", run.MaxCompanies))
	return run, nil
}

// Step advances the run by one unit of work and persists the result.
// Terminal runs are a no-op.
func (c *Coordinator) Step(ctx context.Context, run *model.DiscoveryRun) error {
	if run.Phase.Terminal() {
		return nil
	}

	var err error
	switch run.Phase {
	case model.DiscoveryInit:
		err = c.stepInit(ctx, run)
	case model.DiscoveryDiscovering:
		err = c.stepDiscovering(ctx, run)
	case model.DiscoveryResearching:
		err = c.stepResearching(ctx, run)
	case model.DiscoveryAnalyzing:
		err = c.stepAnalyzing(ctx, run)
	case model.DiscoverySynthesizing:
		err = c.stepSynthesizing(ctx, run)
	default:
		err = eris.Errorf("discovery: unknown phase %q", run.Phase)
	}

	if err != nil {
		run.Phase = model.DiscoveryError
		run.AddError(err.Error())
	}
	if saveErr := c.store.SaveDiscoveryRun(ctx, run); saveErr != nil {
		if err != nil {
			return err
		}
		return saveErr
	}
	return err
}

// Run steps the run to a terminal phase.
func (c *Coordinator) Run(ctx context.Context, run *model.DiscoveryRun) error {
	for !run.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			run.Phase = model.DiscoveryError
			run.AddError(err.Error())
			c.store.SaveDiscoveryRun(context.WithoutCancel(ctx), run) //nolint:errcheck
			return eris.Wrap(err, "discovery: run canceled")
		}
		if err := c.Step(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// stepInit generates the discovery queries. A failed or empty generation
// falls back to templated queries so discovery always has something to run.
func (c *Coordinator) stepInit(ctx context.Context, run *model.DiscoveryRun) error {
	profile, err := c.store.GetProfile(ctx, run.ProfileID)
	if err != nil {
		return err
	}

	queries, err := c.generateQueries(ctx, run, profile)
	if err != nil {
		zap.L().Warn("query generation failed, using templated queries",
			zap.String("run_id", run.ID), zap.Error(err))
		run.AddError(fmt.Sprintf("init: query generation: %v", err))
		queries = nil
	}
	if len(queries) == 0 {
		queries = fallbackQueries(profile)
	}

	run.Queries = queries
	run.Phase = model.DiscoveryDiscovering
	zap.L().Info("discovery queries ready",
		zap.String("run_id", run.ID),
		zap.Strings("queries", queries))
	return nil
}

func (c *Coordinator) generateQueries(ctx context.Context, run *model.DiscoveryRun, profile *model.SearchProfile) ([]string, error) {
	ov := c.override(ctx, config.RoleCompanyFinder)
	if !ov.IsEnabled() {
		return nil, nil
	}
	systemPrompt := queryGenerationSystemPrompt
	if ov.SystemPrompt != "" {
		systemPrompt = ov.SystemPrompt
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.HaikuModel,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: queryGenerationPrompt(profile)},
		},
	})
	run.APICalls++
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Anthropic.HaikuModel, "query_generation")

	var queries []string
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &queries); err != nil {
		return nil, eris.Wrap(err, "discovery: parse generated queries")
	}

	var cleaned []string
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	return cleaned, nil
}

func (c *Coordinator) override(ctx context.Context, role config.WorkerRole) config.WorkerOverride {
	o, err := c.store.GetWorkerConfig(ctx, role)
	if err != nil {
		zap.L().Warn("worker config lookup failed", zap.String("role", string(role)), zap.Error(err))
	}
	if o != nil {
		return *o
	}
	return c.overrides[role]
}

func formatResults(results []serper.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}
	return b.String()
}
