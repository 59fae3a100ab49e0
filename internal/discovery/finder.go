package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

type extractedCompany struct {
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// stepDiscovering executes one discovery query. Search and extraction
// failures cost the query, not the run; the run only fails when every
// query is spent and nothing was found.
func (c *Coordinator) stepDiscovering(ctx context.Context, run *model.DiscoveryRun) error {
	if run.QueriesExecuted >= len(run.Queries) || len(run.Companies) >= run.MaxCompanies {
		if len(run.Companies) == 0 {
			run.Phase = model.DiscoveryError
			run.AddError("discovering: no companies found across all queries")
			return nil
		}
		run.Phase = model.DiscoveryResearching
		return nil
	}

	query := run.Queries[run.QueriesExecuted]
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("query", query),
		zap.Int("query_index", run.QueriesExecuted))
	run.QueriesExecuted++

	results, err := c.search.Search(ctx, query)
	run.APICalls++
	if err != nil {
		log.Warn("discovery search failed", zap.Error(err))
		run.AddError(fmt.Sprintf("discovering: search: %v", err))
		return nil
	}
	if len(results) == 0 {
		log.Debug("discovery query returned nothing")
		return nil
	}

	extracted, err := c.extractCompanies(ctx, run, query, results)
	if err != nil {
		log.Warn("company extraction failed", zap.Error(err))
		run.AddError(fmt.Sprintf("discovering: extract: %v", err))
		return nil
	}

	var incoming []model.DiscoveredCompany
	for _, e := range extracted {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		incoming = append(incoming, model.DiscoveredCompany{
			Name:        name,
			SourceQuery: query,
			Snippet:     e.Snippet,
		})
	}

	before := len(run.Companies)
	run.Companies = model.MergeCompanies(run.Companies, incoming)
	for i := range run.Companies {
		if run.Companies[i].Rank == 0 {
			run.Companies[i].Rank = i + 1
		}
	}
	if len(run.Companies) > run.MaxCompanies {
		run.Companies = run.Companies[:run.MaxCompanies]
	}

	log.Info("discovery query done",
		zap.Int("results", len(results)),
		zap.Int("extracted", len(extracted)),
		zap.Int("new", len(run.Companies)-before),
		zap.Int("total", len(run.Companies)))
	return nil
}

func (c *Coordinator) extractCompanies(ctx context.Context, run *model.DiscoveryRun, query string, results []serper.Result) ([]extractedCompany, error) {
	exclude := make([]string, 0, len(run.Companies))
	for _, known := range run.Companies {
		exclude = append(exclude, known.Name)
	}

	ov := c.override(ctx, config.RoleCompanyFinder)
	systemPrompt := companyExtractionSystemPrompt
	if ov.SystemPrompt != "" {
		systemPrompt = ov.SystemPrompt
	}

	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.HaikuModel,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: companyExtractionPrompt(query, formatResults(results), exclude)},
		},
	})
	run.APICalls++
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.cfg.Anthropic.HaikuModel, "company_extraction")

	var extracted []extractedCompany
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &extracted); err != nil {
		return nil, err
	}
	return extracted, nil
}
