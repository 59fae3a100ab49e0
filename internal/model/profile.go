package model

// SearchProfile describes what the user is looking for. It drives discovery
// query generation and fit scoring.
type SearchProfile struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Industries []string `json:"industries,omitempty"`
	Stages     []string `json:"stages,omitempty"` // e.g. "seed", "series-a", "growth"
	Skills     []string `json:"skills,omitempty"`
	Locations  []string `json:"locations,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// TopIndustry returns the first listed industry, or "" when none.
func (p SearchProfile) TopIndustry() string {
	if len(p.Industries) == 0 {
		return ""
	}
	return p.Industries[0]
}

// TopStage returns the first listed company stage, or "" when none.
func (p SearchProfile) TopStage() string {
	if len(p.Stages) == 0 {
		return ""
	}
	return p.Stages[0]
}

// TopSkill returns the first listed skill, or "" when none.
func (p SearchProfile) TopSkill() string {
	if len(p.Skills) == 0 {
		return ""
	}
	return p.Skills[0]
}
