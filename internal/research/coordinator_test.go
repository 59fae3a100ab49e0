package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/serper"
)

func TestStartSeedsEnabledCategories(t *testing.T) {
	cfg := testConfig()
	cfg.Research.Categories["culture"] = config.CategoryConfig{Enabled: false, MaxIterations: 2, MinSignals: 2}
	c, _, profileID := newTestHarness(t, cfg, &mockSearch{}, &mockLLM{})

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.ResearchInit, run.Phase)

	require.Contains(t, run.Categories, model.SignalGrowth)
	assert.True(t, run.Categories[model.SignalGrowth].NeedsMore)
	assert.NotContains(t, run.Categories, model.SignalCulture)

	_, err = c.Start(context.Background(), "missing-profile", "Acme")
	assert.Error(t, err)
	_, err = c.Start(context.Background(), profileID, "  ")
	assert.Error(t, err)
}

func TestStepSkipsSignalsWhenNoCategoryEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Research.Categories["growth"] = config.CategoryConfig{Enabled: false, MaxIterations: 3, MinSignals: 2}
	search := &mockSearch{}
	llm := &mockLLM{}
	c, _, profileID := newTestHarness(t, cfg, search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.Empty(t, run.Categories)

	require.NoError(t, c.Step(context.Background(), run))
	assert.Equal(t, model.ResearchContacts, run.Phase)
	assert.Empty(t, search.queries, "no signal searches without enabled categories")
}

func TestSignalsStopOnceMinimumReached(t *testing.T) {
	search := &mockSearch{respond: func(query string) ([]serper.Result, error) {
		if strings.Contains(query, "funding") || strings.Contains(query, "revenue") {
			return growthResults(), nil
		}
		return nil, nil
	}}
	// Each extraction yields one qualifying signal; two iterations reach the
	// minimum of two, so the third iteration never runs.
	llm := &mockLLM{responses: []mockLLMResponse{
		{text: `[{"content": "raised a $40M Series B", "confidence": 8, "source": "news.example.com"}]`},
		{text: `[{"content": "grew headcount 60% year over year", "confidence": 6, "source": "news.example.com"}]`},
	}}
	c, _, profileID := newTestHarness(t, testConfig(), search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run)) // init -> signals
	require.NoError(t, c.Step(context.Background(), run))
	require.NoError(t, c.Step(context.Background(), run))

	st := run.Categories[model.SignalGrowth]
	assert.Equal(t, 2, st.Iteration)
	assert.Equal(t, 2, st.Found)
	assert.False(t, st.NeedsMore)
	assert.Len(t, run.Signals, 2)

	require.NoError(t, c.Step(context.Background(), run))
	assert.Equal(t, model.ResearchContacts, run.Phase)
}

func TestSignalsLowConfidenceFilteredAndIterationCapped(t *testing.T) {
	search := &mockSearch{respond: func(string) ([]serper.Result, error) {
		return growthResults(), nil
	}}
	llm := &mockLLM{responses: []mockLLMResponse{
		{text: `[{"content": "vague rumor", "confidence": 2, "source": "forum"}]`},
		{text: `[{"content": "another rumor", "confidence": 3, "source": "forum"}]`},
		{text: `[]`},
	}}
	c, _, profileID := newTestHarness(t, testConfig(), search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Step(context.Background(), run))
	}

	st := run.Categories[model.SignalGrowth]
	assert.Equal(t, 3, st.Iteration)
	assert.Zero(t, st.Found)
	assert.False(t, st.NeedsMore, "iteration cap reached")
	assert.Empty(t, run.Signals)
}

func TestSignalSearchErrorCostsOneIteration(t *testing.T) {
	search := &mockSearch{respond: func(string) ([]serper.Result, error) {
		return nil, errors.New("serper: status 500")
	}}
	llm := &mockLLM{}
	c, _, profileID := newTestHarness(t, testConfig(), search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run))
	require.NoError(t, c.Step(context.Background(), run))

	st := run.Categories[model.SignalGrowth]
	assert.Equal(t, 1, st.Iteration)
	assert.True(t, st.NeedsMore)
	assert.NotEmpty(t, run.Errors)
	assert.NotEqual(t, model.ResearchError, run.Phase)
	assert.Zero(t, llm.calls(), "no extraction on failed search")
}

func TestSignalsZeroResultsSkipExtraction(t *testing.T) {
	search := &mockSearch{}
	llm := &mockLLM{}
	c, _, profileID := newTestHarness(t, testConfig(), search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run))
	require.NoError(t, c.Step(context.Background(), run))

	assert.Equal(t, 1, run.Categories[model.SignalGrowth].Iteration)
	assert.Zero(t, llm.calls())
}

func TestContactsDedupFilterAndCap(t *testing.T) {
	cfg := testConfig()
	cfg.Research.Categories = map[string]config.CategoryConfig{} // skip signals
	cfg.Contacts.MaxContacts = 2
	search := &mockSearch{respond: func(query string) ([]serper.Result, error) {
		if strings.Contains(query, "linkedin") {
			return []serper.Result{{Title: "Acme team", Link: "https://linkedin.com/company/acme"}}, nil
		}
		return nil, nil
	}}
	llm := &mockLLM{responses: []mockLLMResponse{
		{text: `[
			{"name": "Ana Founder", "title": "CEO", "type": "founder", "relevance": 9},
			{"name": "ana founder", "title": "ceo", "type": "founder", "relevance": 9},
			{"name": "Bob Eng", "title": "Staff Engineer", "type": "team_lead", "relevance": 7},
			{"name": "Cal Recruiter", "title": "Recruiter", "type": "recruiter", "relevance": 6},
			{"name": "Dee Exec", "title": "CTO", "type": "executive", "relevance": 8}
		]`},
	}}
	c, _, profileID := newTestHarness(t, cfg, search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run)) // init -> contacts
	require.NoError(t, c.Step(context.Background(), run))

	// The duplicate founder collapses, team_lead is not an enabled type,
	// and the cap of two drops the last extraction.
	require.Len(t, run.People, 2)
	assert.Equal(t, "Ana Founder", run.People[0].Name)
	assert.Equal(t, "Cal Recruiter", run.People[1].Name)

	require.Len(t, search.options, 1)
	assert.Equal(t, cfg.Serper.MaxResults, search.options[0].MaxResults,
		"contact search honors the configured result cap")
}

func TestContactSearchErrorStopsDiscovery(t *testing.T) {
	cfg := testConfig()
	cfg.Research.Categories = map[string]config.CategoryConfig{}
	cfg.Contacts.MaxIterations = 5
	search := &mockSearch{respond: func(query string) ([]serper.Result, error) {
		return nil, errors.New("serper: status 502")
	}}
	c, _, profileID := newTestHarness(t, cfg, search, &mockLLM{})

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run)) // init -> contacts
	require.NoError(t, c.Step(context.Background(), run))

	assert.Equal(t, 5, run.Contacts.Iteration, "remaining iterations are surrendered")
	require.NoError(t, c.Step(context.Background(), run))
	assert.Equal(t, model.ResearchSynthesis, run.Phase)
}

func TestSynthesisFallbackScoreOnModelFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Contacts.MaxIterations = 0
	search := &mockSearch{respond: func(query string) ([]serper.Result, error) {
		if strings.Contains(query, "funding") {
			return growthResults(), nil
		}
		return nil, nil
	}}
	llm := &mockLLM{responses: []mockLLMResponse{
		{text: `[
			{"content": "raised a $40M Series B", "confidence": 8, "source": "news.example.com"},
			{"content": "opened a second office", "confidence": 6, "source": "news.example.com"}
		]`},
		{err: errors.New("anthropic: overloaded")},
	}}
	c, st, profileID := newTestHarness(t, cfg, search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), run))

	assert.Equal(t, model.ResearchComplete, run.Phase)
	// Mean growth confidence (8+6)/2 = 7 is the whole weighted blend here.
	assert.Equal(t, 7, run.Score)
	assert.Empty(t, run.Summary)
	assert.NotEmpty(t, run.Errors)

	company, err := st.GetCompany(context.Background(), run.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, "complete", company.Status)
	assert.Equal(t, 7, company.Score)
	assert.NotNil(t, company.LastResearched)
}

func TestFallbackScore(t *testing.T) {
	cfg := config.ResearchConfig{Categories: map[string]config.CategoryConfig{
		"growth":     {Weight: 0.25},
		"tech_stack": {Weight: 0.20},
	}}

	tests := []struct {
		name    string
		signals []model.Signal
		want    int
	}{
		{"no signals is neutral", nil, 5},
		{
			"single category is its mean",
			[]model.Signal{
				{Category: model.SignalGrowth, Confidence: 8},
				{Category: model.SignalGrowth, Confidence: 7},
			},
			8, // mean 7.5 rounds up
		},
		{
			"weighted across categories",
			[]model.Signal{
				{Category: model.SignalGrowth, Confidence: 8},
				{Category: model.SignalTechStack, Confidence: 4},
			},
			6, // (0.25*8 + 0.20*4) / 0.45 = 6.22
		},
		{
			"unweighted categories are neutral",
			[]model.Signal{{Category: model.SignalCulture, Confidence: 9}},
			5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackScore(tt.signals, cfg))
		})
	}
}

func TestFullRunPersistsEverything(t *testing.T) {
	cfg := testConfig()
	search := &mockSearch{respond: func(query string) ([]serper.Result, error) {
		switch {
		case strings.Contains(query, "funding"), strings.Contains(query, "revenue"):
			return growthResults(), nil
		case strings.Contains(query, "linkedin"):
			return []serper.Result{{Title: "Acme leadership", Link: "https://linkedin.com/company/acme"}}, nil
		case strings.Contains(query, "careers"):
			return []serper.Result{{Title: "Careers at Acme", Link: "https://acme.dev/careers"}}, nil
		}
		return nil, nil
	}}
	llm := &mockLLM{responses: []mockLLMResponse{
		{text: `[
			{"content": "raised a $40M Series B", "confidence": 8, "source": "news.example.com", "source_url": "https://news.example.com/acme-series-b"},
			{"content": "grew headcount 60%", "confidence": 6, "source": "news.example.com"}
		]`},
		{text: `[{"name": "Ana Founder", "title": "CEO", "type": "founder", "relevance": 9}]`},
		{text: `{"summary": "Acme is growing fast and hiring Go engineers.", "score": 8}`},
	}}
	c, st, profileID := newTestHarness(t, cfg, search, llm)

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), run))

	assert.Equal(t, model.ResearchComplete, run.Phase)
	assert.Equal(t, 8, run.Score)
	assert.Equal(t, "Acme is growing fast and hiring Go engineers.", run.Summary)
	require.NotEmpty(t, run.CompanyID)
	assert.Positive(t, run.APICalls)

	// The run round-trips through the store.
	reloaded, err := st.GetResearchRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResearchComplete, reloaded.Phase)
	assert.Len(t, reloaded.Signals, 2)

	contacts, err := st.ListContacts(context.Background(), run.CompanyID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana Founder", contacts[0].Name)
	assert.NotEmpty(t, contacts[0].ID)

	company, err := st.GetCompany(context.Background(), run.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.dev/careers", company.URLs.Careers.URL)
}

func TestWorkerOverrideDisablesSignals(t *testing.T) {
	search := &mockSearch{}
	c, st, profileID := newTestHarness(t, testConfig(), search, &mockLLM{})

	disabled := false
	require.NoError(t, st.SetWorkerConfig(context.Background(), config.RoleSignalWorker, config.WorkerOverride{Enabled: &disabled}))

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run)) // init -> signals
	require.NoError(t, c.Step(context.Background(), run))

	assert.Equal(t, model.ResearchContacts, run.Phase)
	assert.Zero(t, search.calls())
	assert.Empty(t, run.Signals)
}

func TestWorkerOverrideQueryTemplates(t *testing.T) {
	search := &mockSearch{}
	c, st, profileID := newTestHarness(t, testConfig(), search, &mockLLM{})

	require.NoError(t, st.SetWorkerConfig(context.Background(), config.RoleSignalWorker, config.WorkerOverride{
		QueryTemplates: []string{"%s traction site:techcrunch.com"},
	}))

	run, err := c.Start(context.Background(), profileID, "Acme")
	require.NoError(t, err)
	require.NoError(t, c.Step(context.Background(), run))
	require.NoError(t, c.Step(context.Background(), run))

	require.NotEmpty(t, search.queries)
	assert.Equal(t, "Acme traction site:techcrunch.com", search.queries[0])
}
