package discovery

import (
	"context"
	"log"
	"strings"

	"github.com/jonathan/talent-sourcer/internal/fetch"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/prompts"
)

const (
	// enrichMaxCompanies caps page fetches per discovery run.
	enrichMaxCompanies = 5

	// enrichTextLimit truncates page text before it enters the prompt.
	enrichTextLimit = 4000
)

// PageFetcher is the page-retrieval surface enrichment needs.
// *fetch.CachedFetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, urlStr string) (*fetch.CachedResult, error)
}

// WithFetcher enables website enrichment for companies discovered without a
// description. Returns the stage for chaining.
func (s *Stage) WithFetcher(fetcher PageFetcher) *Stage {
	s.fetcher = fetcher
	return s
}

// EnrichDescriptions fills in missing descriptions by fetching each
// company's website and summarizing the page text. At most
// enrichMaxCompanies pages are fetched per run; every failure is logged and
// leaves the company unchanged.
func (s *Stage) EnrichDescriptions(ctx context.Context, companies []Company) []Company {
	if s.fetcher == nil {
		return companies
	}

	fetched := 0
	for i := range companies {
		if fetched >= enrichMaxCompanies {
			break
		}
		c := companies[i]
		if c.Website == "" || c.Description != "" {
			continue
		}

		fetched++
		desc, err := s.describeWebsite(ctx, c.Name, c.Website)
		if err != nil {
			log.Printf("[DISCOVERY] enrichment failed for %s (%s): %v", c.Name, c.Website, err)
			continue
		}
		companies[i].Description = desc
	}
	return companies
}

// describeWebsite fetches one page and asks the lite model for a one-line
// description.
func (s *Stage) describeWebsite(ctx context.Context, name, website string) (string, error) {
	url := website
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	result, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	text := result.Text
	if len(text) > enrichTextLimit {
		text = text[:enrichTextLimit]
	}

	template := prompts.MustGet("discovery.json", "enrich-company")
	prompt := prompts.Format(template, map[string]string{
		"Name":     name,
		"PageText": text,
	})

	s.pace(ctx)
	desc, err := s.llm.Complete(ctx, prompt, llm.TierLite)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(desc), nil
}
