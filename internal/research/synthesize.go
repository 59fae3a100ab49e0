package research

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/internal/urls"
	"github.com/rcliao/companyscout/pkg/anthropic"
)

type synthesisAnswer struct {
	Summary string `json:"summary"`
	Score   int    `json:"score"`
}

// stepSynthesis fills URL gaps, validates the bundle, writes the research
// summary, and persists everything. Persistence failure is the one path
// that fails the run: partial writes would leave the company half-updated.
func (c *Coordinator) stepSynthesis(ctx context.Context, run *model.ResearchRun) error {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("company", run.CompanyName))

	c.fillURLGaps(ctx, run)

	validated, report := c.validator.Validate(ctx, run.CompanyName, run.URLs)
	run.APICalls += report.ModelCalls
	for cat, reason := range report.Rejected {
		run.AddError(fmt.Sprintf("urls/%s: %s", cat, reason))
	}
	if report.ModelCalls > 0 {
		report.Usage.LogCost(c.cfg.Anthropic.HaikuModel, "url_validation")
	}
	run.URLs = validated

	profile, err := c.store.GetProfile(ctx, run.ProfileID)
	if err != nil {
		log.Warn("profile lookup failed for synthesis", zap.Error(err))
		run.AddError(fmt.Sprintf("synthesis: profile: %v", err))
		profile = &model.SearchProfile{ID: run.ProfileID}
	}

	answer, err := c.synthesize(ctx, run, profile)
	if err != nil {
		log.Warn("synthesis model call failed, using deterministic score", zap.Error(err))
		run.AddError(fmt.Sprintf("synthesis: %v", err))
		answer = synthesisAnswer{Score: fallbackScore(run.Signals, c.cfg.Research)}
	}
	run.Summary = answer.Summary
	run.Score = model.ClampScore(answer.Score)

	if err := c.persist(ctx, run); err != nil {
		return err
	}

	run.Phase = model.ResearchComplete
	log.Info("research complete",
		zap.Int("signals", len(run.Signals)),
		zap.Int("contacts", len(run.People)),
		zap.Int("score", run.Score),
		zap.Int("api_calls", run.APICalls))
	return nil
}

// fillURLGaps issues one dedicated search per category the signal passes
// missed. Failures here only cost the category its URL.
func (c *Coordinator) fillURLGaps(ctx context.Context, run *model.ResearchRun) {
	classifier := urls.NewClassifier(run.CompanyName, run.Domain)
	for _, cat := range model.URLCategories {
		if run.URLs.Get(cat).URL != "" {
			continue
		}
		query := fmt.Sprintf(urlQueryTemplates[cat], run.CompanyName)
		results, err := c.search.Search(ctx, query)
		run.APICalls++
		if err != nil {
			run.AddError(fmt.Sprintf("urls/%s: search: %v", cat, err))
			continue
		}
		run.URLs = run.URLs.Merge(classifier.Classify(results))
	}
}

func (c *Coordinator) synthesize(ctx context.Context, run *model.ResearchRun, profile *model.SearchProfile) (synthesisAnswer, error) {
	systemPrompt := synthesisSystemPrompt
	if ov := c.override(ctx, config.RoleSynthesizer); ov.SystemPrompt != "" {
		systemPrompt = ov.SystemPrompt
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.SonnetModel,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: synthesisPrompt(run, profile)},
		},
	})
	run.APICalls++
	if err != nil {
		return synthesisAnswer{}, err
	}
	resp.Usage.LogCost(c.cfg.Anthropic.SonnetModel, "synthesis")

	var answer synthesisAnswer
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &answer); err != nil {
		return synthesisAnswer{}, err
	}
	return answer, nil
}

func synthesisPrompt(run *model.ResearchRun, profile *model.SearchProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Seeker profile:\n  Role: %s\n", profile.Role)
	if len(profile.Skills) > 0 {
		fmt.Fprintf(&b, "  Skills: %s\n", strings.Join(profile.Skills, ", "))
	}
	if len(profile.Industries) > 0 {
		fmt.Fprintf(&b, "  Industries: %s\n", strings.Join(profile.Industries, ", "))
	}
	if profile.Summary != "" {
		fmt.Fprintf(&b, "  Summary: %s\n", profile.Summary)
	}

	fmt.Fprintf(&b, "\nCompany: %s\n\nSignals:\n", run.CompanyName)
	for _, cat := range model.SignalCategories {
		sigs := run.SignalsFor(cat)
		if len(sigs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s:\n", cat)
		for _, s := range sigs {
			fmt.Fprintf(&b, "  - %s (confidence %d, %s)\n", s.Content, s.Confidence, s.Source)
		}
	}

	if len(run.People) > 0 {
		b.WriteString("\nContacts:\n")
		for _, p := range run.People {
			fmt.Fprintf(&b, "  - %s, %s (%s)\n", p.Name, p.Title, p.Type)
		}
	}
	return b.String()
}

// fallbackScore is the deterministic stand-in when the synthesis model is
// unavailable: the configured category weights applied to each category's
// mean signal confidence, rounded. No signals at all scores a neutral 5.
func fallbackScore(signals []model.Signal, cfg config.ResearchConfig) int {
	sums := make(map[model.SignalCategory]int)
	counts := make(map[model.SignalCategory]int)
	for _, s := range signals {
		sums[s.Category] += s.Confidence
		counts[s.Category]++
	}
	if len(counts) == 0 {
		return 5
	}

	var weighted, totalWeight float64
	for cat, n := range counts {
		weight := cfg.CategoryFor(string(cat)).Weight
		if weight == 0 {
			continue
		}
		weighted += weight * float64(sums[cat]) / float64(n)
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 5
	}
	return model.ClampScore(int(math.Round(weighted / totalWeight)))
}

// persist writes the completed research to the store and stamps the company.
func (c *Coordinator) persist(ctx context.Context, run *model.ResearchRun) error {
	company, err := c.store.GetOrCreateCompany(ctx, run.ProfileID, run.CompanyName)
	if err != nil {
		return err
	}
	run.CompanyID = company.ID

	if err := c.store.AppendSignals(ctx, company.ID, run.Signals); err != nil {
		return c.markFailed(ctx, company, err)
	}
	stored, err := c.store.UpsertContacts(ctx, company.ID, run.People)
	if err != nil {
		return c.markFailed(ctx, company, err)
	}
	if stored != nil {
		run.People = stored
	}

	company.URLs = company.URLs.Merge(run.URLs)
	company.FoundedYear = company.URLs.FoundedYear
	company.Score = run.Score
	company.Status = "complete"
	if run.Domain != "" {
		company.Domain = run.Domain
	}
	now := time.Now().UTC()
	company.LastResearched = &now
	if err := c.store.UpdateCompany(ctx, company); err != nil {
		return c.markFailed(ctx, company, err)
	}
	return nil
}

func (c *Coordinator) markFailed(ctx context.Context, company *store.Company, cause error) error {
	company.Status = "failed"
	if err := c.store.UpdateCompany(ctx, company); err != nil {
		zap.L().Warn("marking company failed did not stick", zap.String("company_id", company.ID), zap.Error(err))
	}
	return cause
}
