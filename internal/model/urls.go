package model

// URLCategory identifies one of the four company page categories tracked
// by URL extraction.
type URLCategory string

const (
	URLCareers    URLCategory = "careers"
	URLCulture    URLCategory = "culture"
	URLGlassdoor  URLCategory = "glassdoor"
	URLCrunchbase URLCategory = "crunchbase"
)

// URLCategories lists the four categories in display order.
var URLCategories = []URLCategory{URLCareers, URLCulture, URLGlassdoor, URLCrunchbase}

// CategoryURL is a candidate URL with the heuristic confidence it was
// extracted at. A zero-value CategoryURL means "not found".
type CategoryURL struct {
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// URLBundle holds the best URL per category plus rejected alternates and an
// optional founding year parsed from search snippets.
type URLBundle struct {
	Careers     CategoryURL                `json:"careers,omitzero"`
	Culture     CategoryURL                `json:"culture,omitzero"`
	Glassdoor   CategoryURL                `json:"glassdoor,omitzero"`
	Crunchbase  CategoryURL                `json:"crunchbase,omitzero"`
	Alternates  map[URLCategory][]string   `json:"alternates,omitempty"`
	FoundedYear int                        `json:"founded_year,omitempty"`
}

// Get returns the bundle's entry for a category.
func (b URLBundle) Get(cat URLCategory) CategoryURL {
	switch cat {
	case URLCareers:
		return b.Careers
	case URLCulture:
		return b.Culture
	case URLGlassdoor:
		return b.Glassdoor
	case URLCrunchbase:
		return b.Crunchbase
	}
	return CategoryURL{}
}

// Set replaces the bundle's entry for a category.
func (b *URLBundle) Set(cat URLCategory, cu CategoryURL) {
	switch cat {
	case URLCareers:
		b.Careers = cu
	case URLCulture:
		b.Culture = cu
	case URLGlassdoor:
		b.Glassdoor = cu
	case URLCrunchbase:
		b.Crunchbase = cu
	}
}

// AddAlternate records a rejected candidate URL for a category, skipping
// duplicates.
func (b *URLBundle) AddAlternate(cat URLCategory, url string) {
	if url == "" {
		return
	}
	if b.Alternates == nil {
		b.Alternates = make(map[URLCategory][]string)
	}
	for _, existing := range b.Alternates[cat] {
		if existing == url {
			return
		}
	}
	b.Alternates[cat] = append(b.Alternates[cat], url)
}

// Merge combines two bundles. Per category the URL with the higher
// confidence wins and the confidence is the max of the two, never a sum.
// The loser is kept as an alternate. Founding year keeps the first
// non-zero value.
func (b URLBundle) Merge(other URLBundle) URLBundle {
	out := URLBundle{FoundedYear: b.FoundedYear}
	if out.FoundedYear == 0 {
		out.FoundedYear = other.FoundedYear
	}

	for _, cat := range URLCategories {
		a, o := b.Get(cat), other.Get(cat)
		winner, loser := a, o
		if o.Confidence > a.Confidence {
			winner, loser = o, a
		}
		out.Set(cat, winner)
		if loser.URL != "" && loser.URL != winner.URL {
			out.AddAlternate(cat, loser.URL)
		}
	}

	for _, src := range []URLBundle{b, other} {
		for cat, urls := range src.Alternates {
			for _, u := range urls {
				if u != out.Get(cat).URL {
					out.AddAlternate(cat, u)
				}
			}
		}
	}

	return out
}
