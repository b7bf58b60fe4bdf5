// Package observability provides formatted output utilities for verbose CLI
// mode and human-readable session artifacts.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/talent-sourcer/internal/collection"
	"github.com/jonathan/talent-sourcer/internal/discovery"
	"github.com/jonathan/talent-sourcer/internal/evaluation"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCompanies outputs a summary of discovered companies.
func (p *Printer) PrintCompanies(companies []discovery.Company) {
	p.printBox("DISCOVERED COMPANIES", FormatCompanies(companies))
}

// PrintHydration outputs a summary of one load-more call.
func (p *Printer) PrintHydration(result *collection.HydrationResult) {
	p.printBox("COLLECTED CANDIDATES", FormatHydration(result))
}

// PrintScoredCandidates outputs ranked candidates after evaluation.
func (p *Printer) PrintScoredCandidates(candidates []evaluation.Candidate) {
	p.printBox("RANKED CANDIDATES", FormatScoredCandidates(candidates))
}

// FormatCompanies renders a company list as plain text, one line per
// company, resolution status included.
func FormatCompanies(companies []discovery.Company) string {
	if len(companies) == 0 {
		return "No companies discovered."
	}

	var sb strings.Builder
	searchable := 0
	for _, c := range companies {
		if c.Searchable {
			searchable++
		}
	}
	sb.WriteString(fmt.Sprintf("Total: %d (%d searchable)\n\n", len(companies), searchable))

	for _, c := range companies {
		status := "unresolved"
		if c.Searchable {
			status = fmt.Sprintf("id=%s via %s", c.VendorID, c.MatchTier)
		}
		sb.WriteString(fmt.Sprintf("  • %s [%s] %s", c.Name, c.Method, status))
		if c.Score > 0 {
			sb.WriteString(fmt.Sprintf(" - score %.1f", c.Score))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatHydration renders a hydration result as plain text with the cost
// counters up front.
func FormatHydration(result *collection.HydrationResult) string {
	if result == nil {
		return "No hydration result."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profiles: %d (cache hits: %d, paid fetches: %d)\n",
		len(result.Candidates), result.CacheHits, result.FreshFetches))
	sb.WriteString(fmt.Sprintf("Cursor: %d", result.NewOffset))
	if result.Exhausted {
		sb.WriteString(" (exhausted)")
	}
	sb.WriteString("\n")

	count := min(len(result.Candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := result.Candidates[i]
		source := "fetched"
		if c.FromCache {
			source = "cached"
			if c.RefreshRecommended {
				source = "cached, refresh recommended"
			}
		}
		sb.WriteString(fmt.Sprintf("  • %s - %s (%s)\n", c.Profile.FullName, c.Profile.Headline, source))
	}
	if len(result.Candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Candidates)-maxItemsToShow))
	}

	for _, f := range result.Failed {
		sb.WriteString(fmt.Sprintf("  ✗ %s: %s\n", f.VendorID, f.Error))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatScoredCandidates renders ranked candidates as plain text.
func FormatScoredCandidates(candidates []evaluation.Candidate) string {
	if len(candidates) == 0 {
		return "No candidates scored."
	}

	var sb strings.Builder
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("%2d. [%.1f] %s", i+1, c.Score, c.Profile.FullName))
		if c.Profile.Headline != "" {
			sb.WriteString(" - " + c.Profile.Headline)
		}
		sb.WriteString("\n")
		if c.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("     %s\n", c.Reasoning))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
