package urls

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/serper"
)

func TestBlocked(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.google.com/search?q=acme", true},
		{"https://www.google.com/url?q=https://acme.com", true},
		{"https://webcache.googleusercontent.com/search?q=cache:acme.com", true},
		{"https://bit.ly/3xYzAbc", true},
		{"https://translate.google.com/translate?u=acme.com", true},
		{"https://duckduckgo.com/l/?uddg=acme", true},
		{"https://acme.com/careers", false},
		{"https://www.glassdoor.com/Reviews/acme-reviews", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.want, Blocked(tc.url))
		})
	}
}

func TestBelongsConfidence(t *testing.T) {
	c := NewClassifier("Acme Robotics, Inc.", "acme.com")

	tests := []struct {
		name     string
		link     string
		title    string
		wantConf float64
	}{
		{"company domain", "https://www.acme.com/careers", "Careers", 0.95},
		{"subdomain", "https://jobs.acme.com/careers", "Open roles", 0.95},
		{"name in path", "https://example.org/acme-robotics/careers", "Open roles", 0.7},
		{"name in title only", "https://example.org/company/12345/careers", "Acme Robotics | Careers", 0.6},
		{"no match", "https://example.org/other/careers", "Other Co Careers", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bundle := c.Classify([]serper.Result{{Link: tc.link, Title: tc.title}})
			if tc.wantConf == 0 {
				assert.Empty(t, bundle.Careers.URL)
				return
			}
			assert.Equal(t, tc.link, bundle.Careers.URL)
			assert.InDelta(t, tc.wantConf, bundle.Careers.Confidence, 1e-9)
		})
	}
}

func TestClassifyCareersRejectsJobBoards(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://www.indeed.com/cmp/acme-robotics/jobs", Title: "Acme Robotics Careers"},
		{Link: "https://www.ziprecruiter.com/co/acme-robotics/jobs", Title: "Acme Robotics Jobs"},
		{Link: "https://www.linkedin.com/company/acme-robotics/jobs", Title: "Acme Robotics hiring"},
	})

	assert.Empty(t, bundle.Careers.URL)
}

func TestClassifyCultureRejectsGenericSites(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://en.wikipedia.org/wiki/Acme_Robotics", Title: "Acme Robotics culture"},
		{Link: "https://www.youtube.com/watch?v=abc", Title: "Life at Acme Robotics"},
		{Link: "https://acme.com/about/values", Title: "Our Values"},
	})

	assert.Equal(t, "https://acme.com/about/values", bundle.Culture.URL)
}

func TestClassifyGlassdoor(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	tests := []struct {
		name    string
		results []serper.Result
		wantURL string
	}{
		{
			name: "glassdoor domain with name in path",
			results: []serper.Result{
				{Link: "https://www.glassdoor.com/Reviews/acme-robotics-reviews-E12345.htm", Title: "Reviews"},
			},
			wantURL: "https://www.glassdoor.com/Reviews/acme-robotics-reviews-E12345.htm",
		},
		{
			name: "glassdoor domain without name match",
			results: []serper.Result{
				{Link: "https://www.glassdoor.com/Reviews/other-co-reviews-E9.htm", Title: "Other Co Reviews"},
			},
			wantURL: "",
		},
		{
			name: "name match on wrong domain",
			results: []serper.Result{
				{Link: "https://reviews.example.com/acme-robotics", Title: "Acme Robotics reviews"},
			},
			wantURL: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bundle := c.Classify(tc.results)
			assert.Equal(t, tc.wantURL, bundle.Glassdoor.URL)
		})
	}
}

func TestClassifyCrunchbase(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://www.crunchbase.com/organization/acme-robotics", Title: "Acme Robotics - Crunchbase"},
		{Link: "https://www.crunchbase.com/search/funding_rounds", Title: "Funding rounds"},
	})

	assert.Equal(t, "https://www.crunchbase.com/organization/acme-robotics", bundle.Crunchbase.URL)
	assert.InDelta(t, 0.7, bundle.Crunchbase.Confidence, 1e-9)
}

func TestClassifyKeepsAlternates(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://example.org/acme-robotics/careers", Title: "Acme Robotics Careers"},
		{Link: "https://acme.com/careers", Title: "Careers"},
	})

	assert.Equal(t, "https://acme.com/careers", bundle.Careers.URL)
	assert.Contains(t, bundle.Alternates[model.URLCareers], "https://example.org/acme-robotics/careers")
}

func TestClassifyDuplicateResultIsNotItsOwnAlternate(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://acme.com/careers", Title: "Acme Robotics Careers"},
		{Link: "https://acme.com/careers", Title: "Careers at Acme Robotics"},
	})

	assert.Equal(t, "https://acme.com/careers", bundle.Careers.URL)
	assert.NotContains(t, bundle.Alternates[model.URLCareers], "https://acme.com/careers")
}

func TestClassifyNeverKeepsBlockedLinks(t *testing.T) {
	// Adversarial results: blocklisted links dressed up as highly relevant.
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://www.google.com/url?q=https://acme.com/careers", Title: "Acme Robotics Careers"},
		{Link: "https://bit.ly/acme-careers", Title: "Careers at Acme Robotics"},
	})

	assert.Empty(t, bundle.Careers.URL)
	assert.Empty(t, bundle.Alternates)
}

func TestParseFoundedYear(t *testing.T) {
	now := time.Now().Year()

	tests := []struct {
		snippet string
		want    int
	}{
		{"Acme Robotics was founded in 2015 by two engineers.", 2015},
		{"Established 1987, the company has grown steadily.", 1987},
		{"The firm started in 2003 as a consultancy.", 2003},
		{"Founded in 1750 as a trading post.", 0}, // before 1800
		{fmt.Sprintf("founded in %d", now + 1), 0},
		{"No year here at all.", 0},
	}

	for _, tc := range tests {
		t.Run(tc.snippet, func(t *testing.T) {
			assert.Equal(t, tc.want, parseFoundedYear(tc.snippet))
		})
	}
}

func TestClassifyFoundedYearRequiresNameMention(t *testing.T) {
	c := NewClassifier("Acme Robotics", "acme.com")

	bundle := c.Classify([]serper.Result{
		{Link: "https://example.org/history", Title: "History", Snippet: "Founded in 1999 by someone else."},
		{Link: "https://example.org/acme", Title: "About", Snippet: "Acme Robotics, founded in 2015, builds arms."},
	})

	assert.Equal(t, 2015, bundle.FoundedYear)
}
