package research

import (
	"fmt"

	"github.com/rcliao/companyscout/internal/model"
)

// Query templates rotate per iteration so repeated passes over a category
// cover different ground. %s is the company name.
var signalQueryTemplates = map[model.SignalCategory][]string{
	model.SignalGrowth: {
		"%s funding round announcement",
		"%s revenue growth expansion",
		"%s new office headcount growth",
	},
	model.SignalCulture: {
		"%s engineering culture values",
		"%s employee reviews working at",
		"%s remote work policy benefits",
	},
	model.SignalTechStack: {
		"%s engineering blog tech stack",
		"%s software architecture infrastructure",
		"%s open source github",
	},
	model.SignalLeadership: {
		"%s CTO VP engineering leadership",
		"%s founders executive team",
	},
	model.SignalJobOpenings: {
		"%s careers software engineer openings",
		"%s hiring backend engineer jobs",
		"%s job postings engineering",
	},
}

var contactQueryTemplates = []string{
	"%s CTO founder linkedin",
	"%s VP engineering linkedin",
	"%s engineering manager linkedin",
	"%s technical recruiter linkedin",
	"%s hiring manager engineering linkedin",
}

// Dedicated URL-discovery queries for categories the signal passes did not
// surface organically.
var urlQueryTemplates = map[model.URLCategory]string{
	model.URLCareers:    "%s careers jobs page",
	model.URLCulture:    "%s engineering culture team page",
	model.URLGlassdoor:  "site:glassdoor.com %s reviews",
	model.URLCrunchbase: "site:crunchbase.com %s",
}

const signalExtractionSystemPrompt = `You extract company research signals from web search results.

Given search results about a company, extract factual signals for the requested category. Only extract facts actually supported by the results; never invent or embellish. Rate each signal's confidence 1-10 based on source quality and how directly the result supports the fact.

Respond with a JSON array only, no prose:
[{"content": "one-sentence factual signal", "confidence": 7, "source": "publisher or page name", "source_url": "https://...", "published_at": "2026-01-15"}]

Omit published_at when the result has no date. Return [] when nothing in the results is relevant to the category.`

const contactExtractionSystemPrompt = `You extract people from web search results about a company.

Given search results, identify individuals who work at the company and would be relevant for a job seeker's networking outreach. Classify each person's type as one of: founder, executive, director, manager, team_lead, hiring_manager, recruiter. Rate networking relevance 1-10. Only include people the results actually name; never invent.

Respond with a JSON array only, no prose:
[{"name": "Full Name", "title": "VP of Engineering", "type": "executive", "profile_url": "https://linkedin.com/in/...", "relevance": 8}]

Return [] when the results name nobody at the company.`

const synthesisSystemPrompt = `You are a company research analyst helping a job seeker evaluate an employer.

Given the seeker's profile and the researched signals and contacts for one company, write a concise research summary (3-5 sentences covering growth trajectory, culture, technology, and hiring) and rate the company's overall promise for this seeker 1-10.

Respond with JSON only, no prose:
{"summary": "...", "score": 7}`

func signalExtractionPrompt(company string, category model.SignalCategory, results string) string {
	return fmt.Sprintf("Company: %s\nCategory: %s\n\nSearch results:\n%s", company, category, results)
}

func contactExtractionPrompt(company, results string) string {
	return fmt.Sprintf("Company: %s\n\nSearch results:\n%s", company, results)
}
