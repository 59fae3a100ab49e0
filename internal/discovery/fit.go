package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/pkg/anthropic"
)

type fitAnswer struct {
	CompanyName      string   `json:"company_name"`
	Criteria         int      `json:"criteria"`
	Culture          int      `json:"culture"`
	Opportunity      int      `json:"opportunity"`
	Location         int      `json:"location"`
	Analysis         string   `json:"analysis"`
	Strategy         string   `json:"strategy"`
	Contacts         []string `json:"contacts"`
	OutreachTemplate string   `json:"outreach_template"`
}

// dossier is the per-company material handed to the fit analyst.
type dossier struct {
	company  *store.Company
	signals  []model.Signal
	contacts []model.Contact
}

// stepAnalyzing scores fit for one batch of researched companies. A model
// failure degrades to deterministic analyses derived from the research
// score, so every researched company always ends up with an analysis.
func (c *Coordinator) stepAnalyzing(ctx context.Context, run *model.DiscoveryRun) error {
	analyzed := make(map[string]bool, len(run.Analyses))
	for _, a := range run.Analyses {
		analyzed[a.CompanyID] = true
	}

	var batch []model.DiscoveredCompany
	for _, company := range run.Companies {
		if company.ResearchComplete && company.CompanyID != "" && !analyzed[company.CompanyID] {
			batch = append(batch, company)
		}
	}
	if len(batch) == 0 {
		run.Phase = model.DiscoverySynthesizing
		return nil
	}
	if max := c.cfg.Discovery.FitBatchSize; max > 0 && len(batch) > max {
		batch = batch[:max]
	}

	log := zap.L().With(zap.String("run_id", run.ID))

	dossiers := make([]dossier, 0, len(batch))
	for _, company := range batch {
		d, err := c.loadDossier(ctx, company.CompanyID)
		if err != nil {
			return err
		}
		dossiers = append(dossiers, d)
	}

	profile, err := c.store.GetProfile(ctx, run.ProfileID)
	if err != nil {
		return err
	}

	analyses, err := c.analyzeFit(ctx, run, profile, dossiers)
	if err != nil {
		log.Warn("fit analysis model call failed, using research scores", zap.Error(err))
		run.AddError(fmt.Sprintf("analyzing: %v", err))
		analyses = fallbackAnalyses(dossiers)
	}

	for _, a := range analyses {
		if err := c.store.CreateFitAnalysis(ctx, run.ID, a); err != nil {
			return err
		}
	}
	run.Analyses = model.MergeFitAnalyses(run.Analyses, analyses)

	log.Info("fit batch analyzed",
		zap.Int("batch", len(batch)),
		zap.Int("total", len(run.Analyses)))
	return nil
}

func (c *Coordinator) loadDossier(ctx context.Context, companyID string) (dossier, error) {
	company, err := c.store.GetCompany(ctx, companyID)
	if err != nil {
		return dossier{}, err
	}
	signals, err := c.store.ListSignals(ctx, companyID)
	if err != nil {
		return dossier{}, err
	}
	contacts, err := c.store.ListContacts(ctx, companyID)
	if err != nil {
		return dossier{}, err
	}
	return dossier{company: company, signals: signals, contacts: contacts}, nil
}

func (c *Coordinator) analyzeFit(ctx context.Context, run *model.DiscoveryRun, profile *model.SearchProfile, dossiers []dossier) ([]model.FitAnalysis, error) {
	ov := c.override(ctx, config.RoleFitAnalyzer)
	if !ov.IsEnabled() {
		return fallbackAnalyses(dossiers), nil
	}
	systemPrompt := fitAnalysisSystemPrompt
	if ov.SystemPrompt != "" {
		systemPrompt = ov.SystemPrompt
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.SonnetModel,
		MaxTokens: 4096,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fitPrompt(profile, dossiers)},
		},
	})
	run.APICalls++
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Anthropic.SonnetModel, "fit_analysis")

	var answers []fitAnswer
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &answers); err != nil {
		return nil, err
	}

	byName := make(map[string]dossier, len(dossiers))
	for _, d := range dossiers {
		byName[strings.ToLower(d.company.Name)] = d
	}

	covered := make(map[string]bool, len(answers))
	var analyses []model.FitAnalysis
	for _, a := range answers {
		d, ok := byName[strings.ToLower(strings.TrimSpace(a.CompanyName))]
		if !ok {
			continue
		}
		covered[d.company.ID] = true
		analyses = append(analyses, model.FitAnalysis{
			CompanyID:        d.company.ID,
			CompanyName:      d.company.Name,
			Criteria:         model.ClampScore(a.Criteria),
			Culture:          model.ClampScore(a.Culture),
			Opportunity:      model.ClampScore(a.Opportunity),
			Location:         model.ClampScore(a.Location),
			Overall:          model.OverallFitScore(a.Criteria, a.Culture, a.Opportunity, a.Location),
			Analysis:         a.Analysis,
			Strategy:         a.Strategy,
			ContactIDs:       contactIDs(a.Contacts, d.contacts),
			OutreachTemplate: a.OutreachTemplate,
		})
	}

	// Companies the model skipped still get a deterministic analysis.
	for _, d := range dossiers {
		if !covered[d.company.ID] {
			analyses = append(analyses, fallbackAnalysis(d))
		}
	}
	return analyses, nil
}

// contactIDs maps the analyst's recommended contact names back to stored
// contact ids; unknown names are dropped.
func contactIDs(names []string, contacts []model.Contact) []string {
	byName := make(map[string]string, len(contacts))
	for _, c := range contacts {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	var ids []string
	for _, name := range names {
		if id, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func fallbackAnalyses(dossiers []dossier) []model.FitAnalysis {
	analyses := make([]model.FitAnalysis, 0, len(dossiers))
	for _, d := range dossiers {
		analyses = append(analyses, fallbackAnalysis(d))
	}
	return analyses
}

// fallbackAnalysis reuses the company's research score for every dimension.
func fallbackAnalysis(d dossier) model.FitAnalysis {
	score := d.company.Score
	if score == 0 {
		score = 5
	}
	score = model.ClampScore(score)
	return model.FitAnalysis{
		CompanyID:   d.company.ID,
		CompanyName: d.company.Name,
		Criteria:    score,
		Culture:     score,
		Opportunity: score,
		Location:    score,
		Overall:     model.OverallFitScore(score, score, score, score),
	}
}

func fitPrompt(profile *model.SearchProfile, dossiers []dossier) string {
	var b strings.Builder
	b.WriteString("Seeker profile:\n")
	b.WriteString(queryGenerationPrompt(profile))

	for _, d := range dossiers {
		fmt.Fprintf(&b, "\n--- Company: %s (research score %d) ---\n", d.company.Name, d.company.Score)
		for _, s := range d.signals {
			fmt.Fprintf(&b, "[%s] %s (confidence %d)\n", s.Category, s.Content, s.Confidence)
		}
		for _, p := range d.contacts {
			fmt.Fprintf(&b, "Contact: %s, %s (%s)\n", p.Name, p.Title, p.Type)
		}
	}
	return b.String()
}

// stepSynthesizing writes the final narrative over the top-scored companies
// and completes the run. A model failure falls back to a ranked listing.
func (c *Coordinator) stepSynthesizing(ctx context.Context, run *model.DiscoveryRun) error {
	top := make([]model.FitAnalysis, len(run.Analyses))
	copy(top, run.Analyses)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Overall > top[j].Overall })
	if n := c.cfg.Discovery.TopCompanies; n > 0 && len(top) > n {
		top = top[:n]
	}

	narrative, err := c.synthesizeNarrative(ctx, run, top)
	if err != nil {
		zap.L().Warn("narrative model call failed, using ranked listing",
			zap.String("run_id", run.ID), zap.Error(err))
		run.AddError(fmt.Sprintf("synthesizing: %v", err))
		narrative = fallbackNarrative(top)
	}

	run.Narrative = narrative
	run.Phase = model.DiscoveryComplete
	zap.L().Info("discovery complete",
		zap.String("run_id", run.ID),
		zap.Int("companies", len(run.Companies)),
		zap.Int("researched", run.Researched),
		zap.Int("analyses", len(run.Analyses)),
		zap.Int("api_calls", run.APICalls))
	return nil
}

func (c *Coordinator) synthesizeNarrative(ctx context.Context, run *model.DiscoveryRun, top []model.FitAnalysis) (string, error) {
	if len(top) == 0 {
		return "No companies were successfully researched in this run.", nil
	}

	ov := c.override(ctx, config.RoleSynthesizer)
	systemPrompt := narrativeSystemPrompt
	if ov.SystemPrompt != "" {
		systemPrompt = ov.SystemPrompt
	}

	var b strings.Builder
	for _, a := range top {
		fmt.Fprintf(&b, "%s: overall %d (criteria %d, culture %d, opportunity %d, location %d)\n",
			a.CompanyName, a.Overall, a.Criteria, a.Culture, a.Opportunity, a.Location)
		if a.Analysis != "" {
			fmt.Fprintf(&b, "  %s\n", a.Analysis)
		}
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.SonnetModel,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
	})
	run.APICalls++
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(c.cfg.Anthropic.SonnetModel, "narrative")

	var answer struct {
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &answer); err != nil {
		return "", err
	}
	if answer.Narrative == "" {
		return "", eris.New("discovery: empty narrative")
	}
	return answer.Narrative, nil
}

func fallbackNarrative(top []model.FitAnalysis) string {
	if len(top) == 0 {
		return "No companies were successfully researched in this run."
	}
	var b strings.Builder
	b.WriteString("Top matches by fit score:\n")
	for i, a := range top {
		fmt.Fprintf(&b, "%d. %s (overall %d)\n", i+1, a.CompanyName, a.Overall)
	}
	return b.String()
}
