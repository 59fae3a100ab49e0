package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLBundleMerge(t *testing.T) {
	a := URLBundle{
		Careers:     CategoryURL{URL: "https://acme.com/careers", Confidence: 0.95},
		Glassdoor:   CategoryURL{URL: "https://www.glassdoor.com/Overview/acme", Confidence: 0.6},
		FoundedYear: 2015,
	}
	b := URLBundle{
		Careers:   CategoryURL{URL: "https://jobs.acme.com", Confidence: 0.7},
		Glassdoor: CategoryURL{URL: "https://www.glassdoor.com/Reviews/acme", Confidence: 0.8},
		Culture:   CategoryURL{URL: "https://acme.com/about", Confidence: 0.7},
	}

	merged := a.Merge(b)

	assert.Equal(t, "https://acme.com/careers", merged.Careers.URL, "higher confidence wins")
	assert.InDelta(t, 0.95, merged.Careers.Confidence, 1e-9, "confidence maxed, not summed")
	assert.Contains(t, merged.Alternates[URLCareers], "https://jobs.acme.com")

	assert.Equal(t, "https://www.glassdoor.com/Reviews/acme", merged.Glassdoor.URL)
	assert.Equal(t, "https://acme.com/about", merged.Culture.URL)
	assert.Equal(t, 2015, merged.FoundedYear)
}

func TestURLBundleMergeFoundedYearFromOther(t *testing.T) {
	merged := URLBundle{}.Merge(URLBundle{FoundedYear: 1999})
	assert.Equal(t, 1999, merged.FoundedYear)
}

func TestURLBundleAddAlternateDedup(t *testing.T) {
	var b URLBundle
	b.AddAlternate(URLCareers, "https://x.com/jobs")
	b.AddAlternate(URLCareers, "https://x.com/jobs")
	b.AddAlternate(URLCareers, "")

	assert.Len(t, b.Alternates[URLCareers], 1)
}
