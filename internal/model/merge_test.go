package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCompaniesDedup(t *testing.T) {
	existing := []DiscoveredCompany{
		{Name: "Acme Robotics", SourceQuery: "q1", Rank: 1},
		{Name: "Beta Labs", SourceQuery: "q1", Rank: 2},
	}

	merged := MergeCompanies(existing, []DiscoveredCompany{
		{Name: "ACME Robotics", SourceQuery: "q2", Rank: 7, CompanyID: "c-1"},
		{Name: "Gamma AI", SourceQuery: "q2", Rank: 3},
	})

	assert.Len(t, merged, 3)
	assert.Equal(t, 1, merged[0].Rank, "first-seen rank preserved")
	assert.Equal(t, "q1", merged[0].SourceQuery, "first-seen source preserved")
	assert.Equal(t, "c-1", merged[0].CompanyID, "persistent id updated")
	assert.Equal(t, "Gamma AI", merged[2].Name)
}

func TestMergeCompaniesFlags(t *testing.T) {
	tests := []struct {
		name         string
		incoming     DiscoveredCompany
		wantComplete bool
		wantFailed   bool
	}{
		{
			name:         "failure marks failed",
			incoming:     DiscoveredCompany{Name: "Acme", ResearchFailed: true},
			wantComplete: false,
			wantFailed:   true,
		},
		{
			name:         "completion wins over earlier failure",
			incoming:     DiscoveredCompany{Name: "Acme", ResearchComplete: true},
			wantComplete: true,
			wantFailed:   false,
		},
		{
			name:         "pending update leaves flags alone",
			incoming:     DiscoveredCompany{Name: "Acme"},
			wantComplete: false,
			wantFailed:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			merged := MergeCompanies([]DiscoveredCompany{{Name: "Acme", Rank: 1}}, []DiscoveredCompany{tc.incoming})
			assert.Len(t, merged, 1)
			assert.Equal(t, tc.wantComplete, merged[0].ResearchComplete)
			assert.Equal(t, tc.wantFailed, merged[0].ResearchFailed)
		})
	}
}

func TestMergeCompaniesCommutative(t *testing.T) {
	batchA := []DiscoveredCompany{{Name: "Acme", Rank: 1, ResearchComplete: true}}
	batchB := []DiscoveredCompany{{Name: "Beta", Rank: 2, ResearchFailed: true}}

	ab := MergeCompanies(MergeCompanies(nil, batchA), batchB)
	ba := MergeCompanies(MergeCompanies(nil, batchB), batchA)

	assert.ElementsMatch(t, ab, ba)
}

func TestMergeFitAnalysesImmutable(t *testing.T) {
	existing := []FitAnalysis{{CompanyID: "c-1", Overall: 8}}

	merged := MergeFitAnalyses(existing, []FitAnalysis{
		{CompanyID: "c-1", Overall: 3}, // duplicate, ignored
		{CompanyID: "c-2", Overall: 6},
		{CompanyID: "", Overall: 9}, // unpersisted, ignored
	})

	assert.Len(t, merged, 2)
	assert.Equal(t, 8, merged[0].Overall)
	assert.Equal(t, "c-2", merged[1].CompanyID)
}

func TestMergeContacts(t *testing.T) {
	existing := []Contact{
		{Name: "Jane Doe", Title: "CTO", ProfileURL: "https://linkedin.com/in/janedoe"},
	}

	merged := MergeContacts(existing, []Contact{
		{Name: "Jane R. Doe", Title: "CTO", ProfileURL: "https://linkedin.com/in/janedoe/"}, // same link
		{Name: "jane doe", Title: "cto"},       // no link, but the existing entry has one so this is a new key
		{Name: "Sam Smith", Title: "Recruiter"},
		{Name: "", Title: "Ghost"},
	}, 3)

	assert.Len(t, merged, 3, "capped at limit")
	assert.Equal(t, "Jane Doe", merged[0].Name)
}

func TestMergeContactsCap(t *testing.T) {
	var incoming []Contact
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		incoming = append(incoming, Contact{Name: n, Title: "Engineer"})
	}

	merged := MergeContacts(nil, incoming, 2)
	assert.Len(t, merged, 2)

	merged = MergeContacts(merged, incoming, 2)
	assert.Len(t, merged, 2, "never exceeds cap on re-merge")
}
