package model

// SignalCategory identifies one of the fixed research signal categories.
type SignalCategory string

const (
	SignalGrowth      SignalCategory = "growth"
	SignalCulture     SignalCategory = "culture"
	SignalTechStack   SignalCategory = "tech_stack"
	SignalLeadership  SignalCategory = "leadership"
	SignalJobOpenings SignalCategory = "job_openings"
)

// SignalCategories is the fixed category order used when scanning for the
// next category that still needs research.
var SignalCategories = []SignalCategory{
	SignalGrowth,
	SignalCulture,
	SignalTechStack,
	SignalLeadership,
	SignalJobOpenings,
}

// ValidSignalCategory reports whether c is one of the five fixed categories.
func ValidSignalCategory(c SignalCategory) bool {
	for _, known := range SignalCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Signal is a single extracted fact about a company, tagged with a category,
// a 1-10 confidence, and its source.
type Signal struct {
	Category    SignalCategory `json:"category"`
	Content     string         `json:"content"`
	Source      string         `json:"source"`
	SourceURL   string         `json:"source_url,omitempty"`
	Confidence  int            `json:"confidence"`
	Snippet     string         `json:"snippet,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"` // ISO date
}

// SignalIterationState tracks per-category search bookkeeping for a
// research run.
type SignalIterationState struct {
	Iteration     int      `json:"iteration"`
	MaxIterations int      `json:"max_iterations"`
	Queries       []string `json:"queries,omitempty"`
	Found         int      `json:"found"`
	NeedsMore     bool     `json:"needs_more"`
}

// Recompute refreshes NeedsMore from the current iteration count and the
// number of qualifying signals found so far. It must be called after every
// signal worker step so the flag is never stale.
func (s *SignalIterationState) Recompute(minRequired int) {
	s.NeedsMore = s.Iteration < s.MaxIterations && s.Found < minRequired
}

// ContactIterationState tracks contact-discovery bookkeeping for a
// research run.
type ContactIterationState struct {
	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`
	Found         int `json:"found"`
}

// ClampScore bounds a 1-10 integer score.
func ClampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
