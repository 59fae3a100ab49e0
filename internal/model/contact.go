package model

import "strings"

// ContactType classifies a discovered contact by role.
type ContactType string

const (
	ContactFounder       ContactType = "founder"
	ContactExecutive     ContactType = "executive"
	ContactDirector      ContactType = "director"
	ContactManager       ContactType = "manager"
	ContactTeamLead      ContactType = "team_lead"
	ContactHiringManager ContactType = "hiring_manager"
	ContactRecruiter     ContactType = "recruiter"
)

// ContactTypes lists every valid contact type.
var ContactTypes = []ContactType{
	ContactFounder,
	ContactExecutive,
	ContactDirector,
	ContactManager,
	ContactTeamLead,
	ContactHiringManager,
	ContactRecruiter,
}

// ValidContactType reports whether t is a known contact type.
func ValidContactType(t ContactType) bool {
	for _, known := range ContactTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Contact is a person associated with a company, tagged with a role type
// and a 1-10 networking-relevance score.
type Contact struct {
	ID             string      `json:"id,omitempty"` // assigned by the store
	Name           string      `json:"name"`
	Title          string      `json:"title"`
	Type           ContactType `json:"type"`
	ProfileURL     string      `json:"profile_url,omitempty"`
	Email          string      `json:"email,omitempty"`
	Relevance      int         `json:"relevance"`
	OutreachStatus string      `json:"outreach_status,omitempty"` // user-set, preserved on upsert
	Notes          string      `json:"notes,omitempty"`           // user-set, preserved on upsert
}

// DedupKey returns the identity used for contact deduplication: the profile
// link when present, otherwise the (name, title) pair. Case-insensitive.
func (c Contact) DedupKey() string {
	if c.ProfileURL != "" {
		return strings.ToLower(strings.TrimRight(c.ProfileURL, "/"))
	}
	return strings.ToLower(c.Name) + "|" + strings.ToLower(c.Title)
}
