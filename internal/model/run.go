package model

import "time"

// DiscoveryPhase is the current state of a discovery run's state machine.
type DiscoveryPhase string

const (
	DiscoveryInit         DiscoveryPhase = "init"
	DiscoveryDiscovering  DiscoveryPhase = "discovering"
	DiscoveryResearching  DiscoveryPhase = "researching"
	DiscoveryAnalyzing    DiscoveryPhase = "analyzing"
	DiscoverySynthesizing DiscoveryPhase = "synthesizing"
	DiscoveryComplete     DiscoveryPhase = "complete"
	DiscoveryError        DiscoveryPhase = "error"
)

// Terminal reports whether the phase is a terminal state.
func (p DiscoveryPhase) Terminal() bool {
	return p == DiscoveryComplete || p == DiscoveryError
}

// DiscoveredCompany is a candidate company accumulated during discovery.
// The dedup key is the case-insensitive name; the first-seen rank is
// preserved across merges.
type DiscoveredCompany struct {
	Name             string `json:"name"`
	SourceQuery      string `json:"source_query"`
	Snippet          string `json:"snippet,omitempty"`
	Rank             int    `json:"rank"`
	CompanyID        string `json:"company_id,omitempty"` // assigned once persisted
	ResearchComplete bool   `json:"research_complete"`
	ResearchFailed   bool   `json:"research_failed"`
}

// Pending reports whether the company has not yet been researched.
func (c DiscoveredCompany) Pending() bool {
	return !c.ResearchComplete && !c.ResearchFailed
}

// DiscoveryRun is the top-level state for one discovery workflow.
type DiscoveryRun struct {
	ID              string              `json:"id"`
	ProfileID       string              `json:"profile_id"`
	Phase           DiscoveryPhase      `json:"phase"`
	Queries         []string            `json:"queries,omitempty"`
	QueriesExecuted int                 `json:"queries_executed"`
	Companies       []DiscoveredCompany `json:"companies,omitempty"`
	Researched      int                 `json:"researched"`
	Analyses        []FitAnalysis       `json:"analyses,omitempty"`
	Narrative       string              `json:"narrative,omitempty"`
	Errors          []string            `json:"errors,omitempty"`
	APICalls        int                 `json:"api_calls"`
	MaxCompanies    int                 `json:"max_companies"`
	BatchSize       int                 `json:"batch_size"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewDiscoveryRun creates a discovery run in its initial phase.
func NewDiscoveryRun(profileID string, maxCompanies, batchSize int) *DiscoveryRun {
	return &DiscoveryRun{
		ProfileID:    profileID,
		Phase:        DiscoveryInit,
		MaxCompanies: maxCompanies,
		BatchSize:    batchSize,
	}
}

// PendingCompanies returns the companies not yet researched, in rank order.
func (r *DiscoveryRun) PendingCompanies() []DiscoveredCompany {
	var pending []DiscoveredCompany
	for _, c := range r.Companies {
		if c.Pending() {
			pending = append(pending, c)
		}
	}
	return pending
}

// AddError appends a step error to the run's observability list.
func (r *DiscoveryRun) AddError(msg string) {
	if msg != "" {
		r.Errors = append(r.Errors, msg)
	}
}

// ResearchPhase is the current state of a per-company research run.
type ResearchPhase string

const (
	ResearchInit      ResearchPhase = "init"
	ResearchSignals   ResearchPhase = "signals"
	ResearchContacts  ResearchPhase = "contacts"
	ResearchSynthesis ResearchPhase = "synthesis"
	ResearchComplete  ResearchPhase = "complete"
	ResearchError     ResearchPhase = "error"
)

// Terminal reports whether the phase is a terminal state.
func (p ResearchPhase) Terminal() bool {
	return p == ResearchComplete || p == ResearchError
}

// ResearchRun is the per-company research state, stepped by the research
// coordinator until a terminal phase.
type ResearchRun struct {
	ID          string                                   `json:"id"`
	CompanyID   string                                   `json:"company_id,omitempty"`
	CompanyName string                                   `json:"company_name"`
	Domain      string                                   `json:"domain,omitempty"`
	ProfileID   string                                   `json:"profile_id"`
	Phase       ResearchPhase                            `json:"phase"`
	Category    SignalCategory                           `json:"category,omitempty"` // currently selected
	Categories  map[SignalCategory]*SignalIterationState `json:"categories"`
	Contacts    ContactIterationState                    `json:"contacts"`
	Signals     []Signal                                 `json:"signals,omitempty"`
	People      []Contact                                `json:"people,omitempty"`
	URLs        URLBundle                                `json:"urls,omitzero"`
	Summary     string                                   `json:"summary,omitempty"`
	Score       int                                      `json:"score"`
	Errors      []string                                 `json:"errors,omitempty"`
	APICalls    int                                      `json:"api_calls"`
	CreatedAt   time.Time                                `json:"created_at"`
	UpdatedAt   time.Time                                `json:"updated_at"`
}

// NewResearchRun creates a research run in its initial phase. The category
// map may be nil; the coordinator seeds it from configuration on first step.
func NewResearchRun(profileID, companyName string, categories map[SignalCategory]*SignalIterationState) *ResearchRun {
	if categories == nil {
		categories = make(map[SignalCategory]*SignalIterationState)
	}
	return &ResearchRun{
		ProfileID:   profileID,
		CompanyName: companyName,
		Phase:       ResearchInit,
		Categories:  categories,
	}
}

// SignalsFor returns the accumulated signals for one category.
func (r *ResearchRun) SignalsFor(cat SignalCategory) []Signal {
	var out []Signal
	for _, s := range r.Signals {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// NextCategory scans the fixed category order for the first category still
// needing research. Returns ("", false) when none remain.
func (r *ResearchRun) NextCategory() (SignalCategory, bool) {
	for _, cat := range SignalCategories {
		if st, ok := r.Categories[cat]; ok && st.NeedsMore {
			return cat, true
		}
	}
	return "", false
}

// AddError appends a step error to the run's observability list.
func (r *ResearchRun) AddError(msg string) {
	if msg != "" {
		r.Errors = append(r.Errors, msg)
	}
}
