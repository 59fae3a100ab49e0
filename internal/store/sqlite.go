package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS companies (
	id              TEXT PRIMARY KEY,
	profile_id      TEXT NOT NULL,
	name            TEXT NOT NULL,
	name_key        TEXT NOT NULL,
	domain          TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	urls            TEXT,
	founded_year    INTEGER NOT NULL DEFAULT 0,
	score           INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT '',
	last_researched DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (profile_id, name_key)
);

CREATE TABLE IF NOT EXISTS research_runs (
	id         TEXT PRIMARY KEY,
	company_id TEXT NOT NULL DEFAULT '',
	profile_id TEXT NOT NULL,
	phase      TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, dedup_key)
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id         TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	phase      TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (run_id, company_id)
);

CREATE TABLE IF NOT EXISTS worker_configs (
	role       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_profile ON companies(profile_id);
CREATE INDEX IF NOT EXISTS idx_research_runs_company ON research_runs(company_id);
CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company_id, category);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_discovery_runs_profile ON discovery_runs(profile_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Profiles ---

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.SearchProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("profile not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}

	var p model.SearchProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	p.ID = id
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *model.SearchProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.ID, string(data), time.Now().UTC(), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save profile")
}

// --- Companies ---

const companyColumns = `id, profile_id, name, domain, industry, urls, founded_year, score, status, last_researched, created_at, updated_at`

func (s *SQLiteStore) GetOrCreateCompany(ctx context.Context, profileID, name string) (*Company, error) {
	nameKey := strings.ToLower(strings.TrimSpace(name))
	if nameKey == "" {
		return nil, eris.New("sqlite: company name is required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE profile_id = ? AND name_key = ?`,
		profileID, nameKey,
	)
	c, err := scanCompany(row)
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (id, profile_id, name, name_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProfileID, c.Name, nameKey, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert company")
	}
	return c, nil
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c *Company) error {
	urlsJSON, err := json.Marshal(c.URLs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal urls")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET domain = ?, industry = ?, urls = ?, founded_year = ?, score = ?,
		        status = ?, last_researched = ?, updated_at = ?
		 WHERE id = ?`,
		c.Domain, c.Industry, string(urlsJSON), c.FoundedYear, c.Score,
		c.Status, c.LastResearched, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s", c.ID)
	}
	return checkRowsAffected(res, "company", c.ID)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id,
	)
	c, err := scanCompany(row)
	if eris.Is(err, errNotFound) {
		return nil, eris.Errorf("company not found: %s", id)
	}
	return c, err
}

// --- Research runs ---

func (s *SQLiteStore) SaveResearchRun(ctx context.Context, run *model.ResearchRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
		run.CreatedAt = time.Now().UTC()
	}
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal research run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_runs (id, company_id, profile_id, phase, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   company_id = excluded.company_id, phase = excluded.phase,
		   data = excluded.data, updated_at = excluded.updated_at`,
		run.ID, run.CompanyID, run.ProfileID, string(run.Phase), string(data), run.CreatedAt, run.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save research run")
}

func (s *SQLiteStore) GetResearchRun(ctx context.Context, id string) (*model.ResearchRun, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM research_runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("research run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get research run")
	}

	var run model.ResearchRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal research run")
	}
	return &run, nil
}

// --- Signals and contacts ---

func (s *SQLiteStore) AppendSignals(ctx context.Context, companyID string, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append signals")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, sig := range signals {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO signals (id, company_id, category, content, source, source_url, confidence, snippet, published_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), companyID, string(sig.Category), sig.Content, sig.Source,
			nullable(sig.SourceURL), sig.Confidence, nullable(sig.Snippet), nullable(sig.PublishedAt),
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert signal")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append signals")
}

func (s *SQLiteStore) ListSignals(ctx context.Context, companyID string) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, content, source, source_url, confidence, snippet, published_at
		 FROM signals WHERE company_id = ?
		 ORDER BY confidence DESC, created_at ASC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var sourceURL, snippet, publishedAt sql.NullString
		if err := rows.Scan(&sig.Category, &sig.Content, &sig.Source, &sourceURL, &sig.Confidence, &snippet, &publishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal")
		}
		sig.SourceURL = sourceURL.String
		sig.Snippet = snippet.String
		sig.PublishedAt = publishedAt.String
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "sqlite: list signals iterate")
}

func (s *SQLiteStore) UpsertContacts(ctx context.Context, companyID string, contacts []model.Contact) ([]model.Contact, error) {
	if len(contacts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin upsert contacts")
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]model.Contact, 0, len(contacts))
	now := time.Now().UTC()
	for _, c := range contacts {
		key := c.DedupKey()
		// Outreach status and notes are user-owned; updates never touch them.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (id, company_id, dedup_key, name, title, type, profile_url, email, relevance, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(company_id, dedup_key) DO UPDATE SET
			   name = excluded.name, title = excluded.title, type = excluded.type,
			   profile_url = excluded.profile_url, email = excluded.email,
			   relevance = excluded.relevance, updated_at = excluded.updated_at`,
			uuid.New().String(), companyID, key, c.Name, c.Title, string(c.Type),
			nullable(c.ProfileURL), nullable(c.Email), c.Relevance, now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: upsert contact")
		}

		stored := c
		err = tx.QueryRowContext(ctx,
			`SELECT id, outreach_status, notes FROM contacts WHERE company_id = ? AND dedup_key = ?`,
			companyID, key,
		).Scan(&stored.ID, &stored.OutreachStatus, &stored.Notes)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: read back contact")
		}
		out = append(out, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit upsert contacts")
	}
	return out, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, companyID string) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, type, profile_url, email, relevance, outreach_status, notes
		 FROM contacts WHERE company_id = ?
		 ORDER BY relevance DESC, name ASC`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var profileURL, email sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Title, &c.Type, &profileURL, &email, &c.Relevance, &c.OutreachStatus, &c.Notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		c.ProfileURL = profileURL.String
		c.Email = email.String
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

// --- Discovery runs ---

func (s *SQLiteStore) SaveDiscoveryRun(ctx context.Context, run *model.DiscoveryRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
		run.CreatedAt = time.Now().UTC()
	}
	run.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal discovery run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_runs (id, profile_id, phase, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   phase = excluded.phase, data = excluded.data, updated_at = excluded.updated_at`,
		run.ID, run.ProfileID, string(run.Phase), string(data), run.CreatedAt, run.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: save discovery run")
}

func (s *SQLiteStore) GetDiscoveryRun(ctx context.Context, id string) (*model.DiscoveryRun, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM discovery_runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("discovery run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get discovery run")
	}

	var run model.DiscoveryRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal discovery run")
	}
	return &run, nil
}

func (s *SQLiteStore) ListDiscoveryRuns(ctx context.Context, limit int) ([]model.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM discovery_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list discovery runs")
	}
	defer rows.Close()

	var runs []model.DiscoveryRun
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan discovery run")
		}
		var run model.DiscoveryRun
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal discovery run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list discovery runs iterate")
}

func (s *SQLiteStore) LinkDiscovery(ctx context.Context, runID, companyID, sourceQuery, snippet string, rank int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discovery_links (run_id, company_id, source_query, snippet, rank) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, company_id) DO NOTHING`,
		runID, companyID, sourceQuery, snippet, rank,
	)
	return eris.Wrap(err, "sqlite: link discovery")
}

func (s *SQLiteStore) ListDiscoveryLinks(ctx context.Context, runID string) ([]DiscoveryLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, company_id, source_query, snippet, rank FROM discovery_links
		 WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list discovery links")
	}
	defer rows.Close()

	var links []DiscoveryLink
	for rows.Next() {
		var l DiscoveryLink
		if err := rows.Scan(&l.RunID, &l.CompanyID, &l.SourceQuery, &l.Snippet, &l.Rank); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan discovery link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: list discovery links iterate")
}

func (s *SQLiteStore) CreateFitAnalysis(ctx context.Context, runID string, fa model.FitAnalysis) error {
	data, err := json.Marshal(fa)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fit analysis")
	}

	// Analyses are immutable: a second insert for the same pair is a no-op.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fit_analyses (id, run_id, company_id, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, company_id) DO NOTHING`,
		uuid.New().String(), runID, fa.CompanyID, string(data),
	)
	return eris.Wrap(err, "sqlite: create fit analysis")
}

// --- Worker config ---

func (s *SQLiteStore) GetWorkerConfig(ctx context.Context, role config.WorkerRole) (*config.WorkerOverride, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM worker_configs WHERE role = ?`, string(role)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get worker config")
	}

	var o config.WorkerOverride
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal worker config")
	}
	return &o, nil
}

func (s *SQLiteStore) SetWorkerConfig(ctx context.Context, role config.WorkerRole, o config.WorkerOverride) error {
	data, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal worker config")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO worker_configs (role, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(role) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(role), string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set worker config")
}

// --- helpers ---

var errNotFound = eris.New("not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*Company, error) {
	var c Company
	var urlsJSON sql.NullString
	var lastResearched sql.NullTime

	err := row.Scan(&c.ID, &c.ProfileID, &c.Name, &c.Domain, &c.Industry, &urlsJSON,
		&c.FoundedYear, &c.Score, &c.Status, &lastResearched, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan company")
	}

	if urlsJSON.Valid && urlsJSON.String != "" {
		if err := json.Unmarshal([]byte(urlsJSON.String), &c.URLs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal company urls")
		}
	}
	if lastResearched.Valid {
		t := lastResearched.Time
		c.LastResearched = &t
	}
	return &c, nil
}
