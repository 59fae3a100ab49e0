package research

import (
	"context"
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

// mockSearch records queries and resolved options and answers via a
// pluggable respond func. The default answers every query with no results.
type mockSearch struct {
	mu      sync.Mutex
	queries []string
	options []serper.SearchOptions
	respond func(query string) ([]serper.Result, error)
}

func (m *mockSearch) Search(_ context.Context, query string, opts ...serper.SearchOption) ([]serper.Result, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.options = append(m.options, serper.BuildSearchOptions(opts...))
	m.mu.Unlock()
	if m.respond == nil {
		return nil, nil
	}
	return m.respond(query)
}

func (m *mockSearch) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockLLM pops scripted responses in call order.
type mockLLM struct {
	mu        sync.Mutex
	responses []mockLLMResponse
	callCount int
}

type mockLLMResponse struct {
	text string
	err  error
}

func (m *mockLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if len(m.responses) == 0 {
		return textResponse("[]"), nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return textResponse(next.text), nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// testConfig keeps only the growth category enabled so step counts stay
// predictable. Validation checks are off; the validator passes URLs through.
func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			HaikuModel:  "claude-haiku-4-5-20251001",
			SonnetModel: "claude-sonnet-4-5-20250929",
		},
		Serper: config.SerperConfig{MaxResults: 10},
		Research: config.ResearchConfig{
			ConfidenceThreshold: 5,
			Categories: map[string]config.CategoryConfig{
				"growth": {Enabled: true, MaxIterations: 3, MinSignals: 2, Weight: 0.25, Recency: "y"},
			},
		},
		Contacts: config.ContactsConfig{
			MaxContacts:   10,
			MaxIterations: 1,
			EnabledTypes:  []string{"founder", "executive", "recruiter"},
		},
	}
}

// newTestHarness wires a coordinator against a real SQLite store and returns
// the seeded profile ID alongside it.
func newTestHarness(t *testing.T, cfg *config.Config, search *mockSearch, llm *mockLLM) (*Coordinator, store.Store, string) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	profile := &model.SearchProfile{Role: "backend engineer", Skills: []string{"go"}}
	require.NoError(t, st.SaveProfile(context.Background(), profile))

	return NewCoordinator(st, search, llm, cfg, nil), st, profile.ID
}

func growthResults() []serper.Result {
	return []serper.Result{
		{Title: "Acme raises Series B", Link: "https://news.example.com/acme-series-b", Snippet: "Acme announced a $40M round.", Date: "Jan 2026"},
	}
}
