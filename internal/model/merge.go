package model

import "strings"

// MergeCompanies folds incoming discoveries into the accumulated set.
// Companies deduplicate by case-insensitive name: a repeated name updates
// the research flags and persistent id of the first-seen entry but never
// its discovery rank, source query, or snippet. The merge is commutative
// by key, so batch results can be applied in any order.
func MergeCompanies(existing, incoming []DiscoveredCompany) []DiscoveredCompany {
	out := make([]DiscoveredCompany, len(existing))
	copy(out, existing)

	index := make(map[string]int, len(out))
	for i, c := range out {
		index[strings.ToLower(c.Name)] = i
	}

	for _, c := range incoming {
		key := strings.ToLower(c.Name)
		if key == "" {
			continue
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, c)
			continue
		}
		if c.CompanyID != "" {
			out[i].CompanyID = c.CompanyID
		}
		if c.ResearchComplete {
			out[i].ResearchComplete = true
			out[i].ResearchFailed = false
		} else if c.ResearchFailed && !out[i].ResearchComplete {
			out[i].ResearchFailed = true
		}
	}

	return out
}

// MergeFitAnalyses folds incoming analyses into the accumulated set,
// deduplicating by company id. Analyses are immutable once created, so the
// first entry for a company wins.
func MergeFitAnalyses(existing, incoming []FitAnalysis) []FitAnalysis {
	out := make([]FitAnalysis, len(existing))
	copy(out, existing)

	seen := make(map[string]bool, len(out))
	for _, a := range out {
		seen[a.CompanyID] = true
	}

	for _, a := range incoming {
		if a.CompanyID == "" || seen[a.CompanyID] {
			continue
		}
		seen[a.CompanyID] = true
		out = append(out, a)
	}

	return out
}

// MergeContacts appends incoming contacts that are not already present,
// deduplicating by Contact.DedupKey, and truncates the result at limit
// (limit <= 0 means unlimited). It never drops an existing contact.
func MergeContacts(existing, incoming []Contact, limit int) []Contact {
	out := make([]Contact, len(existing))
	copy(out, existing)

	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c.DedupKey()] = true
	}

	for _, c := range incoming {
		if limit > 0 && len(out) >= limit {
			break
		}
		key := c.DedupKey()
		if c.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	return out
}
