// Package discovery - filter.go screens out obviously-non-company tokens
// before any paid vendor call.
package discovery

import (
	"strings"
	"unicode"
)

// genericWords are single tokens that show up in search snippets but are
// never company names on their own. Multi-word names containing these are
// fine ("Best Buy" passes, "best" alone does not).
var genericWords = map[string]bool{
	"about": true, "alternatives": true, "best": true, "blog": true,
	"careers": true, "companies": true, "company": true, "comparison": true,
	"competitors": true, "guide": true, "hiring": true, "home": true,
	"jobs": true, "list": true, "more": true, "news": true, "overview": true,
	"platform": true, "pricing": true, "products": true, "review": true,
	"reviews": true, "software": true, "solutions": true, "startup": true,
	"startups": true, "team": true, "the": true, "tools": true, "top": true,
	"vs": true, "website": true,
}

// LooksLikeCompany applies cheap heuristics to reject tokens that are
// clearly not company names. It errs on the side of keeping: a false
// positive costs one vendor lookup, a false negative loses a lead.
func LooksLikeCompany(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if len(name) < 2 || len(name) > 80 {
		return false
	}

	// Must contain at least one letter
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}

	words := strings.Fields(name)
	if len(words) == 1 {
		// Single generic dictionary words are never companies
		if genericWords[strings.ToLower(words[0])] {
			return false
		}
		// Single all-lowercase short words are usually snippet noise;
		// real single-word company names are capitalized or branded
		w := words[0]
		if len(w) <= 3 && w == strings.ToLower(w) {
			return false
		}
	}

	// Reject sentence fragments masquerading as names
	if len(words) > 8 {
		return false
	}

	return true
}

// FilterNames applies LooksLikeCompany to a list, preserving order.
func FilterNames(names []string) []string {
	var kept []string
	for _, name := range names {
		if LooksLikeCompany(name) {
			kept = append(kept, strings.TrimSpace(name))
		}
	}
	return kept
}
