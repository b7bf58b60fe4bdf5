package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jonathan/talent-sourcer/internal/db"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/prompts"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

const (
	// MaxSeeds caps how many seed companies get competitor-expansion queries.
	MaxSeeds = 5

	// llmPacing is the fixed delay between consecutive LLM calls within one
	// discovery run, to smooth out bursts against the provider's rate limit.
	llmPacing = 200 * time.Millisecond

	// resultsPerQuery is how many web search hits to request per query.
	resultsPerQuery = 10
)

// seedQueryVariants are the competitor-expansion query templates run per seed.
var seedQueryVariants = []string{
	"%s competitors",
	"%s alternatives",
	"companies like %s",
}

// Request holds the inputs for one discovery run.
type Request struct {
	// Domain is the target domain string, e.g. "applied ML infrastructure".
	Domain string

	// MentionedCompanies are names the user named explicitly. They bypass
	// the heuristic filter and always appear in the output.
	MentionedCompanies []string

	// SeedCompanies are expanded into competitor queries, up to MaxSeeds.
	SeedCompanies []string

	// DisableSeedExpansion skips the competitor queries even when seeds
	// are present.
	DisableSeedExpansion bool

	// DisableDomainSearch skips the direct domain web search.
	DisableDomainSearch bool
}

// Stage runs company discovery.
type Stage struct {
	searcher websearch.Searcher
	llm      llm.Client
	resolver Resolver
	db       *db.DB

	// fetcher, when set via WithFetcher, enables website enrichment.
	fetcher PageFetcher

	// pace is swapped out in tests to avoid real sleeps.
	pace func(ctx context.Context)
}

// NewStage wires a discovery stage. db may be nil, which disables caching.
func NewStage(searcher websearch.Searcher, llmClient llm.Client, resolver Resolver, database *db.DB) *Stage {
	return &Stage{
		searcher: searcher,
		llm:      llmClient,
		resolver: resolver,
		db:       database,
		pace: func(ctx context.Context) {
			select {
			case <-time.After(llmPacing):
			case <-ctx.Done():
			}
		},
	}
}

// extractedCompany is the JSON shape the extraction prompt asks for.
type extractedCompany struct {
	Name        string `json:"name"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

// Discover produces the deduplicated company list for the request. No
// discovered name is ever dropped: names that fail vendor resolution come
// back with Searchable=false. Failed web searches for individual queries
// are logged and skipped; only a fully-empty run is an error.
func (s *Stage) Discover(ctx context.Context, req Request) ([]Company, error) {
	if req.Domain == "" && len(req.MentionedCompanies) == 0 {
		return nil, fmt.Errorf("discovery requires a domain or mentioned companies")
	}

	var companies []Company
	seen := make(map[string]bool)

	add := func(c Company) {
		key := db.NormalizeName(c.Name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		companies = append(companies, c)
	}

	// Mentioned companies enter first so they win dedup ties.
	for _, name := range req.MentionedCompanies {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		add(Company{Name: name, Method: MethodMentioned})
	}

	// Direct domain search.
	if !req.DisableDomainSearch && req.Domain != "" {
		query := fmt.Sprintf("top %s companies", req.Domain)
		for _, c := range s.searchAndExtract(ctx, query, req.Domain, MethodWebSearch) {
			add(c)
		}
	}

	// Seed competitor expansion, up to MaxSeeds seeds and three query
	// variants each. Competitor lists per seed are cached for 7 days.
	if !req.DisableSeedExpansion {
		seeds := req.SeedCompanies
		if len(seeds) > MaxSeeds {
			seeds = seeds[:MaxSeeds]
		}
		for _, seed := range seeds {
			for _, c := range s.expandSeed(ctx, seed, req.Domain) {
				add(c)
			}
		}
	}

	// Resolve every surviving name to a vendor id. Failures keep the
	// company in the list with Searchable=false.
	for i := range companies {
		companies[i] = Resolve(ctx, s.resolver, companies[i])
	}

	return companies, nil
}

// expandSeed runs the competitor query variants for one seed, serving from
// the per-company competitor cache when fresh.
func (s *Stage) expandSeed(ctx context.Context, seed, domain string) []Company {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil
	}

	if s.db != nil {
		entry, err := s.db.GetCompanyCache(ctx, seed, db.CompanyCacheCompetitors, db.CompetitorListTTL)
		if err != nil {
			log.Printf("[DISCOVERY] competitor cache read failed for %s: %v", seed, err)
		} else if entry != nil {
			var cached []Company
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				return cached
			}
		}
	}

	var found []Company
	seen := make(map[string]bool)
	for _, variant := range seedQueryVariants {
		query := fmt.Sprintf(variant, seed)
		for _, c := range s.searchAndExtract(ctx, query, domain, MethodSeedExpansion) {
			key := db.NormalizeName(c.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			found = append(found, c)
		}
	}

	// Cache writes are best-effort.
	if s.db != nil && len(found) > 0 {
		if err := s.db.PutCompanyCache(ctx, seed, db.CompanyCacheCompetitors, found); err != nil {
			log.Printf("[DISCOVERY] competitor cache write failed for %s: %v", seed, err)
		}
	}

	return found
}

// searchAndExtract runs one web search query and extracts company names from
// the hits. A failed search is logged and yields nothing; a failed LLM
// extraction falls back to treating result titles as candidate names.
func (s *Stage) searchAndExtract(ctx context.Context, query, domain string, method Method) []Company {
	results, err := s.cachedSearch(ctx, query)
	if err != nil {
		log.Printf("[DISCOVERY] web search failed for %q: %v", query, err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	extracted, err := s.extractCompanies(ctx, results, domain)
	if err != nil {
		log.Printf("[DISCOVERY] extraction failed for %q, falling back to titles: %v", query, err)
		extracted = titleFallback(results)
	}

	var companies []Company
	for _, e := range extracted {
		if !LooksLikeCompany(e.Name) {
			continue
		}
		companies = append(companies, Company{
			Name:        strings.TrimSpace(e.Name),
			Website:     e.Website,
			Description: e.Description,
			Method:      method,
		})
	}
	return companies
}

// cachedSearch serves web search results from the 7-day query cache when
// possible, hitting the search API otherwise.
func (s *Stage) cachedSearch(ctx context.Context, query string) ([]websearch.Result, error) {
	hash := db.QueryHash(map[string]string{"q": query}, nil)

	if s.db != nil {
		cached, err := s.db.GetSearchResult(ctx, hash, db.SearchResultCacheTTL)
		if err != nil {
			log.Printf("[DISCOVERY] search cache read failed for %q: %v", query, err)
		} else if cached != nil {
			var results []websearch.Result
			if err := json.Unmarshal(cached.Snapshot, &results); err == nil {
				return results, nil
			}
		}
	}

	results, err := s.searcher.Search(ctx, query, resultsPerQuery)
	if err != nil {
		return nil, err
	}

	if s.db != nil {
		if err := s.db.PutSearchResult(ctx, hash, results); err != nil {
			log.Printf("[DISCOVERY] search cache write failed for %q: %v", query, err)
		}
	}

	return results, nil
}

// extractCompanies asks the LLM to pull company names out of raw search hits.
func (s *Stage) extractCompanies(ctx context.Context, results []websearch.Result, domain string) ([]extractedCompany, error) {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nSnippet: %s\n\n", r.Title, r.Link, r.Snippet)
	}

	template := prompts.MustGet("discovery.json", "extract-companies")
	prompt := prompts.Format(template, map[string]string{
		"Domain":  domain,
		"Results": sb.String(),
	})

	s.pace(ctx)

	resp, err := s.llm.CompleteJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, err
	}
	resp = llm.CleanJSONBlock(resp)

	var extracted []extractedCompany
	if err := json.Unmarshal([]byte(resp), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w (content: %s)", err, resp)
	}
	return extracted, nil
}

// titleFallback treats each search hit's title as a single candidate name.
func titleFallback(results []websearch.Result) []extractedCompany {
	var out []extractedCompany
	for _, r := range results {
		name := strings.TrimSpace(r.Title)
		if name == "" {
			name = strings.TrimSpace(r.Snippet)
		}
		if name == "" {
			continue
		}
		out = append(out, extractedCompany{Name: name, Website: r.Link})
	}
	return out
}
