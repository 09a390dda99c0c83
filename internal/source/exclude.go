package source

import "strings"

// Exclusions is a set of process names hidden from listings.
// Matching is exact and case-insensitive.
type Exclusions map[string]struct{}

// NewExclusions normalizes names into a set; blank entries are dropped.
func NewExclusions(names ...string) Exclusions {
	set := make(Exclusions, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Has reports whether name is excluded.
func (e Exclusions) Has(name string) bool {
	if len(e) == 0 {
		return false
	}
	_, ok := e[strings.ToLower(name)]
	return ok
}
