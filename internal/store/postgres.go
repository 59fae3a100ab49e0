package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id              TEXT PRIMARY KEY,
	profile_id      TEXT NOT NULL,
	name            TEXT NOT NULL,
	name_key        TEXT NOT NULL,
	domain          TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	urls            JSONB,
	founded_year    INTEGER NOT NULL DEFAULT 0,
	score           INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT '',
	last_researched TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (profile_id, name_key)
);

CREATE TABLE IF NOT EXISTS research_runs (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL DEFAULT '',
	profile_id TEXT NOT NULL,
	phase      TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY,
	company_id   TEXT NOT NULL REFERENCES companies(id),
	category     TEXT NOT NULL,
	content      TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	source_url   TEXT,
	confidence   INTEGER NOT NULL,
	snippet      TEXT,
	published_at TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	company_id      TEXT NOT NULL REFERENCES companies(id),
	dedup_key       TEXT NOT NULL,
	name            TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	type            TEXT NOT NULL,
	profile_url     TEXT,
	email           TEXT,
	relevance       INTEGER NOT NULL DEFAULT 0,
	outreach_status TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, dedup_key)
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	phase      TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS discovery_links (
	run_id       TEXT NOT NULL REFERENCES discovery_runs(id),
	company_id   TEXT NOT NULL REFERENCES companies(id),
	source_query TEXT NOT NULL DEFAULT '',
	snippet      TEXT NOT NULL DEFAULT '',
	rank         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, company_id)
);

CREATE TABLE IF NOT EXISTS fit_analyses (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES discovery_runs(id),
	company_id TEXT NOT NULL REFERENCES companies(id),
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, company_id)
);

CREATE TABLE IF NOT EXISTS worker_configs (
	role       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_profile ON companies(profile_id);
CREATE INDEX IF NOT EXISTS idx_research_runs_company ON research_runs(company_id);
CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company_id, category);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_discovery_runs_profile ON discovery_runs(profile_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Profiles ---

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.SearchProfile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM profiles WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("profile not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}

	var p model.SearchProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	p.ID = id
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *model.SearchProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO profiles (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		p.ID, data,
	)
	return eris.Wrap(err, "postgres: save profile")
}

// --- Companies ---

func (s *PostgresStore) GetOrCreateCompany(ctx context.Context, profileID, name string) (*Company, error) {
	nameKey := strings.ToLower(strings.TrimSpace(name))
	if nameKey == "" {
		return nil, eris.New("postgres: company name is required")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE profile_id = $1 AND name_key = $2`,
		profileID, nameKey,
	)
	c, err := scanCompanyPg(row)
	if err == nil {
		return c, nil
	}
	if !eris.Is(err, errNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c = &Company{
		ID:        uuid.New().String(),
		ProfileID: profileID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (id, profile_id, name, name_key) VALUES ($1, $2, $3, $4)`,
		c.ID, c.ProfileID, c.Name, nameKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert company")
	}
	return c, nil
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, c *Company) error {
	urlsJSON, err := json.Marshal(c.URLs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal urls")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET domain = $1, industry = $2, urls = $3, founded_year = $4, score = $5,
		        status = $6, last_researched = $7, updated_at = now()
		 WHERE id = $8`,
		c.Domain, c.Industry, urlsJSON, c.FoundedYear, c.Score,
		c.Status, c.LastResearched, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id,
	)
	c, err := scanCompanyPg(row)
	if eris.Is(err, errNotFound) {
		return nil, eris.Errorf("company not found: %s", id)
	}
	return c, err
}

// --- Research runs ---

func (s *PostgresStore) SaveResearchRun(ctx context.Context, run *model.ResearchRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
		run.CreatedAt = time.Now().UTC()
	}
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal research run")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO research_runs (id, company_id, profile_id, phase, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   company_id = EXCLUDED.company_id, phase = EXCLUDED.phase,
		   data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		run.ID, run.CompanyID, run.ProfileID, string(run.Phase), data, run.CreatedAt, run.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save research run")
}

func (s *PostgresStore) GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM research_runs WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("research run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get research run")
	}

	var run model.ResearchRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal research run")
	}
	return &run, nil
}

// --- Signals and contacts ---

func (s *PostgresStore) AppendSignals(ctx context.Context, companyID string, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append signals")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, sig := range signals {
		_, err := tx.Exec(ctx,
			`INSERT INTO signals (id, company_id, category, content, source, source_url, confidence, snippet, published_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(), companyID, string(sig.Category), sig.Content, sig.Source,
			nullable(sig.SourceURL), sig.Confidence, nullable(sig.Snippet), nullable(sig.PublishedAt),
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert signal")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit append signals")
}

func (s *PostgresStore) ListSignals(ctx context.Context, companyID string) ([]model.Signal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, content, source, source_url, confidence, snippet, published_at
		 FROM signals WHERE company_id = $1
		 ORDER BY confidence DESC, created_at ASC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var sourceURL, snippet, publishedAt *string
		if err := rows.Scan(&sig.Category, &sig.Content, &sig.Source, &sourceURL, &sig.Confidence, &snippet, &publishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		if sourceURL != nil {
			sig.SourceURL = *sourceURL
		}
		if snippet != nil {
			sig.Snippet = *snippet
		}
		if publishedAt != nil {
			sig.PublishedAt = *publishedAt
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "postgres: list signals iterate")
}

func (s *PostgresStore) UpsertContacts(ctx context.Context, companyID string, contacts []model.Contact) ([]model.Contact, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin upsert contacts")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		key := c.DedupKey()
		stored := c
		// Outreach status and notes are user-owned; updates never touch them.
		err := tx.QueryRow(ctx,
			`INSERT INTO contacts (id, company_id, dedup_key, name, title, type, profile_url, email, relevance)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (company_id, dedup_key) DO UPDATE SET
			   name = EXCLUDED.name, title = EXCLUDED.title, type = EXCLUDED.type,
			   profile_url = EXCLUDED.profile_url, email = EXCLUDED.email,
			   relevance = EXCLUDED.relevance, updated_at = now()
			 RETURNING id, outreach_status, notes`,
			uuid.New().String(), companyID, key, c.Name, c.Title, string(c.Type),
			nullable(c.ProfileURL), nullable(c.Email), c.Relevance,
		).Scan(&stored.ID, &stored.OutreachStatus, &stored.Notes)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: upsert contact")
		}
		out = append(out, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit upsert contacts")
	}
	return out, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, companyID string) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, title, type, profile_url, email, relevance, outreach_status, notes
		 FROM contacts WHERE company_id = $1
		 ORDER BY relevance DESC, name ASC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var profileURL, email *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Title, &c.Type, &profileURL, &email, &c.Relevance, &c.OutreachStatus, &c.Notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		if profileURL != nil {
			c.ProfileURL = *profileURL
		}
		if email != nil {
			c.Email = *email
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

// --- Discovery runs ---

func (s *PostgresStore) SaveDiscoveryRun(ctx context.Context, run *model.DiscoveryRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
		run.CreatedAt = time.Now().UTC()
	}
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal discovery run")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_runs (id, profile_id, phase, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   phase = EXCLUDED.phase, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		run.ID, run.ProfileID, string(run.Phase), data, run.CreatedAt, run.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: save discovery run")
}

func (s *PostgresStore) GetDiscoveryRun(ctx context.Context, id string) (*model.DiscoveryRun, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM discovery_runs WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("discovery run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get discovery run")
	}

	var run model.DiscoveryRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal discovery run")
	}
	return &run, nil
}

func (s *PostgresStore) ListDiscoveryRuns(ctx context.Context, limit int) ([]model.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM discovery_runs ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list discovery runs")
	}
	defer rows.Close()

	var runs []model.DiscoveryRun
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan discovery run")
		}
		var run model.DiscoveryRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal discovery run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list discovery runs iterate")
}

func (s *PostgresStore) LinkDiscovery(ctx context.Context, runID, companyID, sourceQuery, snippet string, rank int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO discovery_links (run_id, company_id, source_query, snippet, rank) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, company_id) DO NOTHING`,
		runID, companyID, sourceQuery, snippet, rank,
	)
	return eris.Wrap(err, "postgres: link discovery")
}

func (s *PostgresStore) ListDiscoveryLinks(ctx context.Context, runID string) ([]DiscoveryLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, company_id, source_query, snippet, rank FROM discovery_links
		 WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list discovery links")
	}
	defer rows.Close()

	var links []DiscoveryLink
	for rows.Next() {
		var l DiscoveryLink
		if err := rows.Scan(&l.RunID, &l.CompanyID, &l.SourceQuery, &l.Snippet, &l.Rank); err != nil {
			return nil, eris.Wrap(err, "postgres: scan discovery link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: list discovery links iterate")
}

func (s *PostgresStore) CreateFitAnalysis(ctx context.Context, runID string, fa model.FitAnalysis) error {
	data, err := json.Marshal(fa)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fit analysis")
	}

	// Analyses are immutable: a second insert for the same pair is a no-op.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO fit_analyses (id, run_id, company_id, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, company_id) DO NOTHING`,
		uuid.New().String(), runID, fa.CompanyID, data,
	)
	return eris.Wrap(err, "postgres: create fit analysis")
}

// --- Worker config ---

func (s *PostgresStore) GetWorkerConfig(ctx context.Context, role config.WorkerRole) (*config.WorkerOverride, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM worker_configs WHERE role = $1`, string(role)).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get worker config")
	}

	var o config.WorkerOverride
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal worker config")
	}
	return &o, nil
}

func (s *PostgresStore) SetWorkerConfig(ctx context.Context, role config.WorkerRole, o config.WorkerOverride) error {
	data, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal worker config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO worker_configs (role, data) VALUES ($1, $2)
		 ON CONFLICT (role) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		string(role), data,
	)
	return eris.Wrap(err, "postgres: set worker config")
}

// --- helpers ---

func scanCompanyPg(row pgx.Row) (*Company, error) {
	var c Company
	var urlsJSON []byte
	var lastResearched *time.Time

	err := row.Scan(&c.ID, &c.ProfileID, &c.Name, &c.Domain, &c.Industry, &urlsJSON,
		&c.FoundedYear, &c.Score, &c.Status, &lastResearched, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan company")
	}

	if len(urlsJSON) > 0 {
		if err := json.Unmarshal(urlsJSON, &c.URLs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal company urls")
		}
	}
	c.LastResearched = lastResearched
	return &c, nil
}
