package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/internal/store"
	"github.com/rcliao/companyscout/pkg/anthropic"
	"github.com/rcliao/companyscout/pkg/serper"
)

type mockSearch struct {
	mu      sync.Mutex
	queries []string
	respond func(query string) ([]serper.Result, error)
}

func (m *mockSearch) Search(_ context.Context, query string, _ ...serper.SearchOption) ([]serper.Result, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.respond == nil {
		return nil, nil
	}
	return m.respond(query)
}

// mockLLM dispatches on the request so tests can answer query generation,
// extraction, fit, and narrative calls independently.
type mockLLM struct {
	mu      sync.Mutex
	count   int
	respond func(req anthropic.MessageRequest) (string, error)
}

func (m *mockLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
	if m.respond == nil {
		return nil, errors.New("anthropic: no script")
	}
	text, err := m.respond(req)
	if err != nil {
		return nil, err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 200, OutputTokens: 100},
	}, nil
}

func systemText(req anthropic.MessageRequest) string {
	if len(req.System) == 0 {
		return ""
	}
	return req.System[0].Text
}

// mockResearcher completes or fails companies by name without running real
// research. Successful companies are persisted so the fit phase can load
// their dossiers.
type mockResearcher struct {
	mu      sync.Mutex
	st      store.Store
	fail    map[string]bool
	block   map[string]bool // wait for ctx cancellation, then fail
	started []string
	score   int
}

func (m *mockResearcher) Start(_ context.Context, profileID, companyName string) (*model.ResearchRun, error) {
	m.mu.Lock()
	m.started = append(m.started, companyName)
	m.mu.Unlock()
	run := model.NewResearchRun(profileID, companyName, nil)
	run.ID = "research-" + companyName
	return run, nil
}

func (m *mockResearcher) Run(ctx context.Context, run *model.ResearchRun) error {
	if m.block[run.CompanyName] {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.fail[run.CompanyName] {
		return errors.New("research failed")
	}

	company, err := m.st.GetOrCreateCompany(ctx, run.ProfileID, run.CompanyName)
	if err != nil {
		return err
	}
	score := m.score
	if score == 0 {
		score = 7
	}
	company.Score = score
	company.Status = "complete"
	if err := m.st.UpdateCompany(ctx, company); err != nil {
		return err
	}
	if err := m.st.AppendSignals(ctx, company.ID, []model.Signal{
		{Category: model.SignalGrowth, Content: run.CompanyName + " is growing", Source: "test", Confidence: score},
	}); err != nil {
		return err
	}
	stored, err := m.st.UpsertContacts(ctx, company.ID, []model.Contact{
		{Name: run.CompanyName + " Founder", Title: "CEO", Type: model.ContactFounder, Relevance: 9},
	})
	if err != nil {
		return err
	}

	run.CompanyID = company.ID
	run.People = stored
	run.Score = score
	run.Phase = model.ResearchComplete
	run.APICalls = 3
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			HaikuModel:  "claude-haiku-4-5-20251001",
			SonnetModel: "claude-sonnet-4-5-20250929",
		},
		Discovery: config.DiscoveryConfig{
			MaxCompanies:        10,
			ResearchBatchSize:   3,
			ResearchTimeoutSecs: 1,
			FitBatchSize:        3,
			TopCompanies:        5,
		},
	}
}

func newTestHarness(t *testing.T, cfg *config.Config, search *mockSearch, llm *mockLLM) (*Coordinator, store.Store, *mockResearcher, string) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	profile := &model.SearchProfile{
		Role:       "backend engineer",
		Industries: []string{"fintech"},
		Stages:     []string{"series-a"},
		Skills:     []string{"go"},
		Locations:  []string{"Seattle"},
	}
	require.NoError(t, st.SaveProfile(context.Background(), profile))

	researcher := &mockResearcher{st: st}
	return NewCoordinator(st, search, llm, cfg, nil, researcher), st, researcher, profile.ID
}

func discoveryResults() []serper.Result {
	return []serper.Result{
		{Title: "10 fintech startups to watch", Link: "https://news.example.com/fintech", Snippet: "Acme, Bolt, and Corp are hiring."},
	}
}
