package vault

import "strings"

// Filter selects entries by category, usecase and free-text search.
// All three predicates are AND-combined.
type Filter struct {
	Category Category
	// Usecase is a concrete usecase or UsecaseAll. The empty value also matches all.
	Usecase Usecase
	// Search is matched case-insensitively against username and remark.
	Search string
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e Entry) bool {
	if e.Category != f.Category {
		return false
	}

	if f.Usecase != "" && f.Usecase != UsecaseAll && e.Usecase != f.Usecase {
		return false
	}

	if f.Search == "" {
		return true
	}

	needle := strings.ToLower(f.Search)

	return strings.Contains(strings.ToLower(e.Username), needle) ||
		strings.Contains(strings.ToLower(e.Remark), needle)
}
