package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
)

// Company is the persistent record for a researched company, scoped to a
// search profile.
type Company struct {
	ID              string          `json:"id"`
	ProfileID       string          `json:"profile_id"`
	Name            string          `json:"name"`
	Domain          string          `json:"domain,omitempty"`
	Industry        string          `json:"industry,omitempty"`
	URLs            model.URLBundle `json:"urls,omitzero"`
	FoundedYear     int             `json:"founded_year,omitempty"`
	Score           int             `json:"score,omitempty"`
	Status          string          `json:"status,omitempty"`
	LastResearched  *time.Time      `json:"last_researched,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DiscoveryLink records which run surfaced a company and how.
type DiscoveryLink struct {
	RunID       string `json:"run_id"`
	CompanyID   string `json:"company_id"`
	SourceQuery string `json:"source_query,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	Rank        int    `json:"rank"`
}

// Store defines the persistence interface for the discovery and research
// coordinators.
type Store interface {
	// Profiles
	GetProfile(ctx context.Context, id string) (*model.SearchProfile, error)
	SaveProfile(ctx context.Context, p *model.SearchProfile) error

	// Companies (scoped to a profile; name matching is case-insensitive)
	GetOrCreateCompany(ctx context.Context, profileID, name string) (*Company, error)
	UpdateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)

	// Research runs
	SaveResearchRun(ctx context.Context, run *model.ResearchRun) error
	GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error)

	// Signals and contacts
	AppendSignals(ctx context.Context, companyID string, signals []model.Signal) error
	// ListSignals returns a company's signals, most confident first.
	ListSignals(ctx context.Context, companyID string) ([]model.Signal, error)
	// UpsertContacts inserts or updates contacts by dedup key, preserving
	// the user-set outreach status and notes on updates. Returned contacts
	// carry their persistent ids.
	UpsertContacts(ctx context.Context, companyID string, contacts []model.Contact) ([]model.Contact, error)
	ListContacts(ctx context.Context, companyID string) ([]model.Contact, error)

	// Discovery runs
	SaveDiscoveryRun(ctx context.Context, run *model.DiscoveryRun) error
	GetDiscoveryRun(ctx context.Context, id string) (*model.DiscoveryRun, error)
	ListDiscoveryRuns(ctx context.Context, limit int) ([]model.DiscoveryRun, error)
	LinkDiscovery(ctx context.Context, runID, companyID, sourceQuery, snippet string, rank int) error
	ListDiscoveryLinks(ctx context.Context, runID string) ([]DiscoveryLink, error)
	CreateFitAnalysis(ctx context.Context, runID string, fa model.FitAnalysis) error

	// Worker role configuration. GetWorkerConfig returns (nil, nil) when no
	// override is stored for the role.
	GetWorkerConfig(ctx context.Context, role config.WorkerRole) (*config.WorkerOverride, error)
	SetWorkerConfig(ctx context.Context, role config.WorkerRole, o config.WorkerOverride) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
