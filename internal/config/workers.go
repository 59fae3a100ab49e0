package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WorkerRole names an agent role whose behavior can be overridden.
type WorkerRole string

const (
	RoleCompanyFinder WorkerRole = "company_finder"
	RoleSignalWorker  WorkerRole = "signal_worker"
	RoleContactWorker WorkerRole = "contact_worker"
	RoleSynthesizer   WorkerRole = "synthesizer"
	RoleFitAnalyzer   WorkerRole = "fit_analyzer"
)

// WorkerOverride customizes one worker role: disabling it entirely,
// replacing its system prompt, or replacing its query template rotation.
// Query templates use %s as the company-name placeholder.
type WorkerOverride struct {
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	SystemPrompt   string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	QueryTemplates []string `yaml:"query_templates,omitempty" json:"query_templates,omitempty"`
}

// IsEnabled treats a missing flag as enabled.
func (o WorkerOverride) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// WorkerOverrides maps role name to its override.
type WorkerOverrides map[WorkerRole]WorkerOverride

// LoadWorkerOverrides reads a workers.yaml file. A missing file is not an
// error; it yields an empty override set.
func LoadWorkerOverrides(path string) (WorkerOverrides, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return WorkerOverrides{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "config: read workers file")
	}

	var overrides WorkerOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal workers file")
	}
	if overrides == nil {
		overrides = WorkerOverrides{}
	}
	return overrides, nil
}
