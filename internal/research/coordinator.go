package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/internal/urls"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

// Coordinator steps a per-company research run through signals, contacts,
// and synthesis. Steps are re-entrant: the run carries all state, so a
// resumed run continues where it stopped.
type Coordinator struct {
	store     store.Store
	search    serper.Client
	llm       anthropic.Client
	cfg       *config.Config
	overrides config.WorkerOverrides
	validator *urls.Validator
}

// NewCoordinator wires a research coordinator from its dependencies.
func NewCoordinator(st store.Store, search serper.Client, llm anthropic.Client, cfg *config.Config, overrides config.WorkerOverrides) *Coordinator {
	return &Coordinator{
		store:     st,
		search:    search,
		llm:       llm,
		cfg:       cfg,
		overrides: overrides,
		validator: urls.NewValidator(cfg.Validation, llm, cfg.Anthropic.HaikuModel),
	}
}

// Start creates and persists a new research run for a company.
func (c *Coordinator) Start(ctx context.Context, profileID, companyName string) (*model.ResearchRun, error) {
	if _, err := c.store.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, eris.New("research: company name is required")
	}

	run := model.NewResearchRun(profileID, strings.TrimSpace(companyName), nil)
	for _, cat := range model.SignalCategories {
		cc := c.cfg.Research.CategoryFor(string(cat))
		if !cc.Enabled {
			continue
		}
		st := &model.SignalIterationState{MaxIterations: cc.MaxIterations}
		st.Recompute(cc.MinSignals)
		run.Categories[cat] = st
	}
	run.Contacts = model.ContactIterationState{MaxIterations: c.cfg.Contacts.MaxIterations}

	if err := c.store.SaveResearchRun(ctx, run); err != nil {
		return nil, err
	}
	zap.L().Info("research run started",
		zap.String("run_id", run.ID),
		zap.String("company", run.CompanyName),
		zap.Int("categories", len(run.Categories)))
	return run, nil
}

// Step advances the run by one unit of work and persists the result.
// Terminal runs are a no-op.
func (c *Coordinator) Step(ctx context.Context, run *model.ResearchRun) error {
	if run.Phase.Terminal() {
		return nil
	}

	var err error
	switch run.Phase {
	case model.ResearchInit:
		if len(run.Categories) == 0 {
			run.Phase = model.ResearchContacts
		} else {
			run.Phase = model.ResearchSignals
		}
	case model.ResearchSignals:
		err = c.stepSignals(ctx, run)
	case model.ResearchContacts:
		err = c.stepContacts(ctx, run)
	case model.ResearchSynthesis:
		err = c.stepSynthesis(ctx, run)
	default:
		err = eris.Errorf("research: unknown phase %q", run.Phase)
	}

	if err != nil {
		run.Phase = model.ResearchError
		run.AddError(err.Error())
	}
	if saveErr := c.store.SaveResearchRun(ctx, run); saveErr != nil {
		if err != nil {
			return err
		}
		return saveErr
	}
	return err
}

// Run steps the run to a terminal phase.
func (c *Coordinator) Run(ctx context.Context, run *model.ResearchRun) error {
	for !run.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			run.Phase = model.ResearchError
			run.AddError(err.Error())
			c.store.SaveResearchRun(context.WithoutCancel(ctx), run) //nolint:errcheck
			return eris.Wrap(err, "research: run canceled")
		}
		if err := c.Step(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// override resolves a worker role's override: a store-level config wins over
// the workers file.
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

// formatResults renders search results as a numbered block for prompts.
func formatResults(results []serper.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		if r.Date != "" {
			fmt.Fprintf(&b, "   Date: %s\n", r.Date)
		}
	}
	return b.String()
}
