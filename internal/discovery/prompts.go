package discovery

import (
	"fmt"
	"strings"

	"github.com/rcliao/companyscout/internal/model"
)

const queryGenerationSystemPrompt = `You generate web search queries for discovering companies a job seeker should consider.

Given the seeker's profile, produce 3 to 5 distinct search queries that would surface currently-hiring companies matching the profile. Make them concrete: combine role, industry, stage, location, and skills rather than repeating the same phrasing.

Respond with a JSON array of query strings only, no prose:
["query one", "query two"]`

const companyExtractionSystemPrompt = `You extract company names from web search results.

Given search results from a company-discovery query, list the employers the results actually mention. Skip publishers, job boards, and listicle sites themselves; a result titled "10 fintech startups to watch" contributes the startups it names, not the site that ranked them. Skip any company on the exclusion list.

Respond with a JSON array only, no prose:
[{"name": "Company Name", "snippet": "one line on why it appeared"}]

Return [] when the results name no new companies.`

const fitAnalysisSystemPrompt = `You are a career fit analyst. For each company dossier, score how well the company matches the seeker's profile on four dimensions, each 1-10:

- criteria: match against the seeker's stated role, skills, industries, and stage preferences
- culture: how well the company's culture signals align with the seeker
- opportunity: strength of current hiring and growth signals for the seeker's role
- location: fit against the seeker's location preferences (score 5 when unknown)

Also write a short analysis, an application strategy, the names of the most useful contacts from the dossier, and a brief outreach message template.

Respond with a JSON array only, one entry per company, no prose:
[{"company_name": "...", "criteria": 7, "culture": 6, "opportunity": 8, "location": 5, "analysis": "...", "strategy": "...", "contacts": ["Name One"], "outreach_template": "..."}]`

const narrativeSystemPrompt = `You are a career research analyst. Given fit analyses for a job seeker's discovered companies, write a final narrative (2-3 paragraphs) comparing the strongest options and recommending where to focus first and why.

Respond with JSON only, no prose:
{"narrative": "..."}`

// fallbackQueries builds templated discovery queries when query generation
// is unavailable. It always yields at least one query.
func fallbackQueries(p *model.SearchProfile) []string {
	role := p.Role
	if role == "" {
		role = "software engineer"
	}

	var queries []string
	if industry := p.TopIndustry(); industry != "" {
		queries = append(queries, fmt.Sprintf("%s companies hiring %s", industry, role))
	}
	if stage := p.TopStage(); stage != "" {
		queries = append(queries, fmt.Sprintf("%s startups hiring %s", stage, role))
	}
	if skill := p.TopSkill(); skill != "" {
		queries = append(queries, fmt.Sprintf("companies hiring %s %s", skill, role))
	}
	if len(p.Locations) > 0 {
		queries = append(queries, fmt.Sprintf("companies hiring %s in %s", role, p.Locations[0]))
	}
	if len(queries) == 0 {
		queries = append(queries, fmt.Sprintf("companies hiring %s", role))
	}
	return queries
}

func queryGenerationPrompt(p *model.SearchProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", p.Role)
	if len(p.Industries) > 0 {
		fmt.Fprintf(&b, "Industries: %s\n", strings.Join(p.Industries, ", "))
	}
	if len(p.Stages) > 0 {
		fmt.Fprintf(&b, "Stages: %s\n", strings.Join(p.Stages, ", "))
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	if len(p.Locations) > 0 {
		fmt.Fprintf(&b, "Locations: %s\n", strings.Join(p.Locations, ", "))
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
	}
	return b.String()
}

func companyExtractionPrompt(query, results string, exclude []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "Exclusion list: %s\n", strings.Join(exclude, ", "))
	}
	fmt.Fprintf(&b, "\nSearch results:\n%s", results)
	return b.String()
}
