// Package urls extracts and validates official company page URLs from
// search results.
package urls

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/serper"
)

// searchEngineFragments are substrings of search-engine, redirect, shortener,
// and cache/translate proxy URLs. Links matching any of these must never be
// persisted, regardless of how relevant the search ranked them.
var searchEngineFragments = []string{
	"google.com/search",
	"google.com/url",
	"googleusercontent.com",
	"translate.google.",
	"bing.com/search",
	"bing.com/ck/",
	"duckduckgo.com/?q",
	"duckduckgo.com/l/",
	"search.yahoo.com",
	"r.search.yahoo.com",
	"yandex.com/search",
	"baidu.com/link",
	"facebook.com/l.php",
	"youtube.com/redirect",
	"bit.ly/",
	"tinyurl.com/",
	"goo.gl/",
	"t.co/",
	"lnkd.in/",
	"ow.ly/",
	"rb.gy/",
}

// jobBoardDomains are third-party job aggregators. A careers link on one of
// these is not the company's own careers page.
var jobBoardDomains = []string{
	"indeed.com",
	"ziprecruiter.com",
	"monster.com",
	"careerbuilder.com",
	"simplyhired.com",
	"dice.com",
	"snagajob.com",
	"adzuna.com",
	"talent.com",
	"jooble.org",
	"glassdoor.com",
	"linkedin.com",
	"wellfound.com",
	"builtin.com",
}

// genericSiteDomains host user-generated or encyclopedic content, never a
// company's own culture page.
var genericSiteDomains = []string{
	"linkedin.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"tiktok.com",
	"reddit.com",
	"wikipedia.org",
	"wikimedia.org",
	"youtube.com",
	"vimeo.com",
	"pinterest.com",
	"quora.com",
}

// careersPathPatterns match careers-like URL paths or result titles.
var careersPathPatterns = []string{
	"careers", "jobs", "join-us", "joinus", "join us", "work-with-us",
	"work with us", "open positions", "open-positions", "vacancies",
	"hiring", "opportunities",
}

// culturePathPatterns match culture-like URL paths or result titles.
var culturePathPatterns = []string{
	"culture", "values", "about", "team", "life-at", "life at",
	"who-we-are", "mission", "benefits", "diversity", "people",
}

// suffixPattern matches common business entity suffixes for name
// normalization.
var suffixPattern = regexp.MustCompile(`(?i),?\s*(inc\.?|llc\.?|ltd\.?|co\.?|corp\.?|corporation|company|gmbh|labs|technologies|ai)$`)

// foundedPattern captures a founding year near "founded"/"established"/"started".
var foundedPattern = regexp.MustCompile(`(?i)\b(?:founded|established|started)(?:\s+in)?\s+(\d{4})\b`)

// Classifier scores candidate links from search results for one company.
type Classifier struct {
	name     string
	domain   string
	variants []string
}

// NewClassifier creates a classifier for a company. The domain may be empty
// when not yet known; matching then falls back to name variants.
func NewClassifier(name, domain string) *Classifier {
	return &Classifier{
		name:     name,
		domain:   strings.ToLower(strings.TrimPrefix(domain, "www.")),
		variants: nameVariants(name),
	}
}

// nameVariants builds the normalized name forms checked against URLs and
// titles: suffix-stripped, space-stripped, and hyphenated.
func nameVariants(name string) []string {
	base := strings.ToLower(strings.TrimSpace(suffixPattern.ReplaceAllString(strings.TrimSpace(name), "")))
	if base == "" {
		base = strings.ToLower(strings.TrimSpace(name))
	}
	if base == "" {
		return nil
	}

	variants := []string{base}
	if squeezed := strings.ReplaceAll(base, " ", ""); squeezed != base {
		variants = append(variants, squeezed)
	}
	if hyphenated := strings.ReplaceAll(base, " ", "-"); hyphenated != base {
		variants = append(variants, hyphenated)
	}
	return variants
}

// Blocked reports whether a link matches the search-engine/redirect
// blocklist.
func Blocked(link string) bool {
	lower := strings.ToLower(link)
	for _, fragment := range searchEngineFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// hostMatches reports whether the link's host is the domain itself or a
// subdomain of it.
func hostMatches(host, domain string) bool {
	if domain == "" {
		return false
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func hostInList(host string, domains []string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func (c *Classifier) variantIn(s string) bool {
	lower := strings.ToLower(s)
	for _, v := range c.variants {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// belongsConfidence scores how likely the link belongs to the company:
// 0.95 when the host is on the company's known domain, 0.7 when a name
// variant appears in the URL path, 0.6 when one appears in the title.
func (c *Classifier) belongsConfidence(parsed *url.URL, title string) float64 {
	switch {
	case hostMatches(parsed.Host, c.domain):
		return 0.95
	case c.variantIn(parsed.Path):
		return 0.7
	case c.variantIn(title):
		return 0.6
	default:
		return 0
	}
}

// Classify scans search results and builds a URL bundle: the best candidate
// per category, rejected candidates as alternates, and an opportunistically
// parsed founding year.
func (c *Classifier) Classify(results []serper.Result) model.URLBundle {
	var bundle model.URLBundle

	for _, r := range results {
		if r.Link == "" || Blocked(r.Link) {
			continue
		}
		parsed, err := url.Parse(r.Link)
		if err != nil || parsed.Host == "" {
			continue
		}

		belongs := c.belongsConfidence(parsed, r.Title)
		lowerPath := strings.ToLower(parsed.Path)
		lowerTitle := strings.ToLower(r.Title)

		if cu, ok := c.careersCandidate(parsed, lowerPath, lowerTitle, belongs); ok {
			consider(&bundle, model.URLCareers, cu)
		}
		if cu, ok := c.cultureCandidate(parsed, lowerPath, lowerTitle, belongs); ok {
			consider(&bundle, model.URLCulture, cu)
		}
		if cu, ok := c.glassdoorCandidate(parsed, r.Title); ok {
			consider(&bundle, model.URLGlassdoor, cu)
		}
		if cu, ok := c.crunchbaseCandidate(parsed, r.Title); ok {
			consider(&bundle, model.URLCrunchbase, cu)
		}

		if bundle.FoundedYear == 0 && c.variantIn(r.Snippet) {
			bundle.FoundedYear = parseFoundedYear(r.Snippet)
		}
	}

	return bundle
}

// consider keeps the highest-confidence candidate per category and retains
// the rest as alternates.
func consider(bundle *model.URLBundle, cat model.URLCategory, cu model.CategoryURL) {
	current := bundle.Get(cat)
	if cu.Confidence > current.Confidence {
		if current.URL != "" && current.URL != cu.URL {
			bundle.AddAlternate(cat, current.URL)
		}
		bundle.Set(cat, cu)
		return
	}
	if cu.URL != current.URL {
		bundle.AddAlternate(cat, cu.URL)
	}
}

func (c *Classifier) careersCandidate(parsed *url.URL, lowerPath, lowerTitle string, belongs float64) (model.CategoryURL, bool) {
	if hostInList(parsed.Host, jobBoardDomains) {
		return model.CategoryURL{}, false
	}
	if belongs < 0.6 {
		return model.CategoryURL{}, false
	}
	if !containsAny(lowerPath, careersPathPatterns) && !containsAny(lowerTitle, careersPathPatterns) {
		return model.CategoryURL{}, false
	}
	return model.CategoryURL{URL: parsed.String(), Confidence: belongs}, true
}

func (c *Classifier) cultureCandidate(parsed *url.URL, lowerPath, lowerTitle string, belongs float64) (model.CategoryURL, bool) {
	if hostInList(parsed.Host, genericSiteDomains) {
		return model.CategoryURL{}, false
	}
	if belongs < 0.6 {
		return model.CategoryURL{}, false
	}
	if !containsAny(lowerPath, culturePathPatterns) && !containsAny(lowerTitle, culturePathPatterns) {
		return model.CategoryURL{}, false
	}
	return model.CategoryURL{URL: parsed.String(), Confidence: belongs}, true
}

// glassdoorCandidate requires the glassdoor domain and a name-variant match
// in the path or title.
func (c *Classifier) glassdoorCandidate(parsed *url.URL, title string) (model.CategoryURL, bool) {
	if !hostInList(parsed.Host, []string{"glassdoor.com"}) {
		return model.CategoryURL{}, false
	}
	conf := 0.0
	switch {
	case c.variantIn(parsed.Path):
		conf = 0.7
	case c.variantIn(title):
		conf = 0.6
	default:
		return model.CategoryURL{}, false
	}
	return model.CategoryURL{URL: parsed.String(), Confidence: conf}, true
}

// crunchbaseCandidate requires an organization-profile path and a
// name-variant match.
func (c *Classifier) crunchbaseCandidate(parsed *url.URL, title string) (model.CategoryURL, bool) {
	if !strings.Contains(strings.ToLower(parsed.Path), "/organization/") {
		return model.CategoryURL{}, false
	}
	conf := 0.0
	switch {
	case c.variantIn(parsed.Path):
		conf = 0.7
	case c.variantIn(title):
		conf = 0.6
	default:
		return model.CategoryURL{}, false
	}
	return model.CategoryURL{URL: parsed.String(), Confidence: conf}, true
}

// parseFoundedYear extracts a founding year from a snippet, accepting only
// years between 1800 and the current year.
func parseFoundedYear(snippet string) int {
	m := foundedPattern.FindStringSubmatch(snippet)
	if len(m) != 2 {
		return 0
	}
	year := 0
	for _, ch := range m[1] {
		year = year*10 + int(ch-'0')
	}
	if year < 1800 || year > time.Now().Year() {
		return 0
	}
	return year
}
