package model

import "math"

// Fixed weights for the overall fit score blend: criteria 30%, culture 25%,
// opportunity 25%, location 20%.
const (
	fitWeightCriteria    = 0.30
	fitWeightCulture     = 0.25
	fitWeightOpportunity = 0.25
	fitWeightLocation    = 0.20
)

// FitAnalysis scores how well a company matches the search profile.
// Created once per (company, discovery run) pair; immutable after creation.
type FitAnalysis struct {
	CompanyID        string   `json:"company_id"`
	CompanyName      string   `json:"company_name"`
	Criteria         int      `json:"criteria"`
	Culture          int      `json:"culture"`
	Opportunity      int      `json:"opportunity"`
	Location         int      `json:"location"`
	Overall          int      `json:"overall"`
	Analysis         string   `json:"analysis,omitempty"`
	Strategy         string   `json:"strategy,omitempty"`
	ContactIDs       []string `json:"contact_ids,omitempty"`
	OutreachTemplate string   `json:"outreach_template,omitempty"`
}

// OverallFitScore blends the four sub-scores with the fixed 30/25/25/20
// weights and rounds to a 1-10 integer.
func OverallFitScore(criteria, culture, opportunity, location int) int {
	blended := fitWeightCriteria*float64(ClampScore(criteria)) +
		fitWeightCulture*float64(ClampScore(culture)) +
		fitWeightOpportunity*float64(ClampScore(opportunity)) +
		fitWeightLocation*float64(ClampScore(location))
	return ClampScore(int(math.Round(blended)))
}
