package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Discovery.ResearchBatchSize)
	assert.Equal(t, 300, cfg.Discovery.ResearchTimeoutSecs)
	assert.Equal(t, 5, cfg.Research.ConfidenceThreshold)
	assert.Equal(t, 10, cfg.Contacts.MaxContacts)
	assert.Len(t, cfg.Research.Categories, 5)

	growth := cfg.Research.CategoryFor("growth")
	assert.True(t, growth.Enabled)
	assert.Equal(t, "y", growth.Recency)
	assert.Equal(t, 3, growth.MaxIterations)

	assert.InDelta(t, 0.7, cfg.Validation.MinConfidence["glassdoor"], 1e-9)
	assert.InDelta(t, 0.6, cfg.Validation.MinConfidence["careers"], 1e-9)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
store:
  driver: postgres
  database_url: postgres://localhost/scout
discovery:
  max_companies: 2
research:
  confidence_threshold: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Discovery.MaxCompanies)
	assert.Equal(t, 7, cfg.Research.ConfidenceThreshold)
	// Untouched defaults survive.
	assert.Equal(t, 3, cfg.Discovery.ResearchBatchSize)
}

func TestCategoryForUnknown(t *testing.T) {
	cfg := ResearchConfig{Categories: map[string]CategoryConfig{}}
	got := cfg.CategoryFor("nonsense")
	assert.False(t, got.Enabled)
	assert.Zero(t, got.MaxIterations)
}

func TestLoadWorkerOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	content := `
signal_worker:
  system_prompt: "Focus on engineering culture."
  query_templates:
    - "%s engineering blog"
contact_worker:
  enabled: false
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	overrides, err := LoadWorkerOverrides(path)
	assert.NoError(t, err)
	assert.True(t, overrides[RoleSignalWorker].IsEnabled())
	assert.Equal(t, "Focus on engineering culture.", overrides[RoleSignalWorker].SystemPrompt)
	assert.False(t, overrides[RoleContactWorker].IsEnabled())

	missing, err := LoadWorkerOverrides(filepath.Join(dir, "absent.yaml"))
	assert.NoError(t, err)
	assert.Empty(t, missing)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
