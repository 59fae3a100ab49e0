package research

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/urls"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

type extractedSignal struct {
	Content     string `json:"content"`
	Confidence  int    `json:"confidence"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	PublishedAt string `json:"published_at"`
}

// stepSignals runs one search iteration for the next category still needing
// signals. Search and extraction failures degrade to a zero-signal iteration
// rather than failing the run; the iteration counter always advances so a
// flaky category cannot loop forever.
func (c *Coordinator) stepSignals(ctx context.Context, run *model.ResearchRun) error {
	ov := c.override(ctx, config.RoleSignalWorker)
	if !ov.IsEnabled() {
		run.Category = ""
		run.Phase = model.ResearchContacts
		return nil
	}

	cat, ok := run.NextCategory()
	if !ok {
		run.Category = ""
		run.Phase = model.ResearchContacts
		return nil
	}
	run.Category = cat

	cc := c.cfg.Research.CategoryFor(string(cat))
	st := run.Categories[cat]
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("company", run.CompanyName),
		zap.String("category", string(cat)),
		zap.Int("iteration", st.Iteration))

	finish := func(found int) {
		st.Found += found
		st.Iteration++
		st.Recompute(cc.MinSignals)
	}

	templates := signalQueryTemplates[cat]
	if len(ov.QueryTemplates) > 0 {
		templates = ov.QueryTemplates
	}
	query := fmt.Sprintf(templates[st.Iteration%len(templates)], run.CompanyName)
	st.Queries = append(st.Queries, query)

	opts := []serper.SearchOption{serper.WithMaxResults(c.cfg.Serper.MaxResults)}
	if cc.Recency != "" {
		opts = append(opts, serper.WithRecency(serper.Recency(cc.Recency)))
	}
	results, err := c.search.Search(ctx, query, opts...)
	run.APICalls++
	if err != nil {
		log.Warn("signal search failed", zap.String("query", query), zap.Error(err))
		run.AddError(fmt.Sprintf("signals/%s: search: %v", cat, err))
		finish(0)
		return nil
	}
	if len(results) == 0 {
		log.Debug("signal search returned nothing", zap.String("query", query))
		finish(0)
		return nil
	}

	// Search results often surface careers or review pages; classify them
	// opportunistically so synthesis has fewer gaps to fill.
	bundle := urls.NewClassifier(run.CompanyName, run.Domain).Classify(results)
	run.URLs = run.URLs.Merge(bundle)

	signals, usage, err := c.extractSignals(ctx, run.CompanyName, cat, results, ov.SystemPrompt)
	run.APICalls++
	if err != nil {
		log.Warn("signal extraction failed", zap.Error(err))
		run.AddError(fmt.Sprintf("signals/%s: extract: %v", cat, err))
		finish(0)
		return nil
	}
	usage.LogCost(c.cfg.Anthropic.HaikuModel, "signal_extraction")

	kept := 0
	for _, s := range signals {
		if s.Content == "" {
			continue
		}
		conf := model.ClampScore(s.Confidence)
		if conf < c.cfg.Research.ConfidenceThreshold {
			continue
		}
		run.Signals = append(run.Signals, model.Signal{
			Category:    cat,
			Content:     s.Content,
			Source:      s.Source,
			SourceURL:   s.SourceURL,
			Confidence:  conf,
			PublishedAt: s.PublishedAt,
		})
		kept++
	}
	finish(kept)

	log.Info("signal iteration done",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Int("extracted", len(signals)),
		zap.Int("kept", kept),
		zap.Bool("needs_more", st.NeedsMore))
	return nil
}

func (c *Coordinator) extractSignals(ctx context.Context, company string, cat model.SignalCategory, results []serper.Result, systemPrompt string) ([]extractedSignal, anthropic.TokenUsage, error) {
	if systemPrompt == "" {
		systemPrompt = signalExtractionSystemPrompt
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.HaikuModel,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: signalExtractionPrompt(company, cat, formatResults(results))},
		},
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, err
	}

	var signals []extractedSignal
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &signals); err != nil {
		// A malformed answer costs one iteration, nothing more.
		zap.L().Warn("unparseable signal extraction answer",
			zap.String("company", company),
			zap.String("category", string(cat)),
			zap.Error(err))
		return nil, resp.Usage, nil
	}
	return signals, resp.Usage, nil
}
