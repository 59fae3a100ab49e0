package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Serper     SerperConfig     `yaml:"serper" mapstructure:"serper"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Contacts   ContactsConfig   `yaml:"contacts" mapstructure:"contacts"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// SerperConfig holds Serper.dev search API settings.
type SerperConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults     int     `yaml:"max_results" mapstructure:"max_results"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// DiscoveryConfig configures the top-level discovery coordinator.
type DiscoveryConfig struct {
	MaxCompanies        int `yaml:"max_companies" mapstructure:"max_companies"`
	ResearchBatchSize   int `yaml:"research_batch_size" mapstructure:"research_batch_size"`
	ResearchTimeoutSecs int `yaml:"research_timeout_secs" mapstructure:"research_timeout_secs"`
	FitBatchSize        int `yaml:"fit_batch_size" mapstructure:"fit_batch_size"`
	TopCompanies        int `yaml:"top_companies" mapstructure:"top_companies"` // final narrative covers this many
}

// CategoryConfig tunes one signal category. Recency, weight, and iteration
// bounds are hand-tuned deployment defaults, not invariants.
type CategoryConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	MinSignals    int     `yaml:"min_signals" mapstructure:"min_signals"`
	Weight        float64 `yaml:"weight" mapstructure:"weight"`
	Recency       string  `yaml:"recency" mapstructure:"recency"` // "", "h", "d", "w", "m", "y"
}

// ResearchConfig configures the per-company research coordinator.
type ResearchConfig struct {
	Categories          map[string]CategoryConfig `yaml:"categories" mapstructure:"categories"`
	ConfidenceThreshold int                       `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// CategoryFor returns the configuration for a named signal category,
// falling back to a disabled zero config for unknown names.
func (r ResearchConfig) CategoryFor(name string) CategoryConfig {
	if c, ok := r.Categories[name]; ok {
		return c
	}
	return CategoryConfig{}
}

// ContactsConfig configures contact discovery.
type ContactsConfig struct {
	MaxContacts   int      `yaml:"max_contacts" mapstructure:"max_contacts"`
	MaxIterations int      `yaml:"max_iterations" mapstructure:"max_iterations"`
	EnabledTypes  []string `yaml:"enabled_types" mapstructure:"enabled_types"`
}

// ValidationConfig configures URL validation.
type ValidationConfig struct {
	CheckReachability bool               `yaml:"check_reachability" mapstructure:"check_reachability"`
	UseModel          bool               `yaml:"use_model" mapstructure:"use_model"`
	FetchTimeoutSecs  int                `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MinConfidence     map[string]float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ServerConfig configures the serve-mode HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "companyscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serper.max_results", 10)
	v.SetDefault("serper.requests_per_sec", 5)
	v.SetDefault("discovery.max_companies", 10)
	v.SetDefault("discovery.research_batch_size", 3)
	v.SetDefault("discovery.research_timeout_secs", 300)
	v.SetDefault("discovery.fit_batch_size", 3)
	v.SetDefault("discovery.top_companies", 5)
	v.SetDefault("research.confidence_threshold", 5)
	v.SetDefault("research.categories", map[string]any{
		"growth":       map[string]any{"enabled": true, "max_iterations": 3, "min_signals": 2, "weight": 0.25, "recency": "y"},
		"culture":      map[string]any{"enabled": true, "max_iterations": 2, "min_signals": 2, "weight": 0.20, "recency": "w"},
		"tech_stack":   map[string]any{"enabled": true, "max_iterations": 2, "min_signals": 2, "weight": 0.20, "recency": "w"},
		"leadership":   map[string]any{"enabled": true, "max_iterations": 2, "min_signals": 1, "weight": 0.15, "recency": "w"},
		"job_openings": map[string]any{"enabled": true, "max_iterations": 3, "min_signals": 2, "weight": 0.20, "recency": "m"},
	})
	v.SetDefault("contacts.max_contacts", 10)
	v.SetDefault("contacts.max_iterations", 5)
	v.SetDefault("contacts.enabled_types", []string{
		"founder", "executive", "director", "manager", "team_lead", "hiring_manager", "recruiter",
	})
	v.SetDefault("validation.check_reachability", true)
	v.SetDefault("validation.use_model", true)
	v.SetDefault("validation.fetch_timeout_secs", 5)
	v.SetDefault("validation.min_confidence", map[string]any{
		"careers":    0.6,
		"culture":    0.6,
		"glassdoor":  0.7,
		"crunchbase": 0.7,
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
