package research

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

type extractedContact struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	ProfileURL string `json:"profile_url"`
	Email      string `json:"email"`
	Relevance  int    `json:"relevance"`
}

// stepContacts runs one contact-discovery iteration. Unlike signal search,
// a failure here stops contact discovery outright: the phase moves on with
// whatever was found rather than burning the remaining iterations.
func (c *Coordinator) stepContacts(ctx context.Context, run *model.ResearchRun) error {
	ov := c.override(ctx, config.RoleContactWorker)
	st := &run.Contacts

	if !ov.IsEnabled() || st.Iteration >= st.MaxIterations || st.Found >= c.cfg.Contacts.MaxContacts {
		run.Phase = model.ResearchSynthesis
		return nil
	}

	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("company", run.CompanyName),
		zap.Int("iteration", st.Iteration))

	abort := func(msg string, err error) {
		log.Warn("contact discovery stopped", zap.String("stage", msg), zap.Error(err))
		run.AddError(fmt.Sprintf("contacts: %s: %v", msg, err))
		st.Iteration = st.MaxIterations
	}

	templates := contactQueryTemplates
	if len(ov.QueryTemplates) > 0 {
		templates = ov.QueryTemplates
	}
	query := fmt.Sprintf(templates[st.Iteration%len(templates)], run.CompanyName)

	results, err := c.search.Search(ctx, query, serper.WithMaxResults(c.cfg.Serper.MaxResults))
	run.APICalls++
	if err != nil {
		abort("search", err)
		return nil
	}
	if len(results) == 0 {
		st.Iteration++
		return nil
	}

	systemPrompt := ov.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = contactExtractionSystemPrompt
	}
	resp, err := c.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.HaikuModel,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: contactExtractionPrompt(run.CompanyName, formatResults(results))},
		},
	})
	run.APICalls++
	if err != nil {
		abort("extract", err)
		return nil
	}
	resp.Usage.LogCost(c.cfg.Anthropic.HaikuModel, "contact_extraction")

	var extracted []extractedContact
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &extracted); err != nil {
		log.Warn("unparseable contact extraction answer", zap.Error(err))
		st.Iteration++
		return nil
	}

	enabled := make(map[model.ContactType]bool, len(c.cfg.Contacts.EnabledTypes))
	for _, t := range c.cfg.Contacts.EnabledTypes {
		enabled[model.ContactType(t)] = true
	}

	var incoming []model.Contact
	for _, e := range extracted {
		ct := model.ContactType(e.Type)
		if e.Name == "" || !model.ValidContactType(ct) || !enabled[ct] {
			continue
		}
		incoming = append(incoming, model.Contact{
			Name:       e.Name,
			Title:      e.Title,
			Type:       ct,
			ProfileURL: e.ProfileURL,
			Email:      e.Email,
			Relevance:  model.ClampScore(e.Relevance),
		})
	}

	run.People = model.MergeContacts(run.People, incoming, c.cfg.Contacts.MaxContacts)
	st.Found = len(run.People)
	st.Iteration++

	log.Info("contact iteration done",
		zap.String("query", query),
		zap.Int("extracted", len(extracted)),
		zap.Int("total", st.Found))
	return nil
}
