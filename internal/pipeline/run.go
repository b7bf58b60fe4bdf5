// Package pipeline provides the high-level orchestration for a sourcing run:
// company discovery, candidate collection, and evaluation, with every
// stage's output recorded as a session artifact.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jonathan/talent-sourcer/internal/collection"
	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
	"github.com/jonathan/talent-sourcer/internal/discovery"
	"github.com/jonathan/talent-sourcer/internal/evaluation"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/observability"
	"github.com/jonathan/talent-sourcer/internal/session"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

// VendorGateway is the full vendor surface the pipeline needs. The
// coresignal client satisfies it.
type VendorGateway interface {
	discovery.Resolver
	collection.Gateway
}

// Deps are the external collaborators for one run. DB is optional; without
// it, session state lives in memory and caching is disabled.
type Deps struct {
	DB       *db.DB
	LLM      llm.Client
	Searcher websearch.Searcher
	Vendor   VendorGateway

	// Fetcher enables website enrichment of discovered companies when set.
	Fetcher discovery.PageFetcher
}

// RunOptions holds configuration for running the pipeline.
type RunOptions struct {
	// Discovery inputs
	Domain               string
	MentionedCompanies   []string
	SeedCompanies        []string
	DisableSeedExpansion bool

	// Query shaping
	Keywords        []string
	KeywordOperator string
	Location        string

	// SearchContext is the job-description context records are scored
	// against. Defaults to Domain when empty.
	SearchContext string

	// CandidateCount is how many profiles to hydrate in the first batch.
	CandidateCount int

	ArtifactsDir string
	Verbose      bool
}

// Result is the outcome of one full run.
type Result struct {
	SessionID    uuid.UUID             `json:"session_id"`
	Companies    []discovery.Company   `json:"companies"`
	Candidates   []evaluation.Candidate `json:"candidates"`
	CacheHits    int                   `json:"cache_hits"`
	FreshFetches int                   `json:"fresh_fetches"`
}

const defaultCandidateCount = 20

// Run executes the full pipeline. Partial results are preferred over no
// results throughout: unresolvable companies stay in the output, failed
// hydrations are skipped, and scoring failures default rather than abort.
func Run(ctx context.Context, deps Deps, opts RunOptions) (*Result, error) {
	printer := observability.NewPrinter(os.Stdout)

	if opts.SearchContext == "" {
		opts.SearchContext = opts.Domain
	}
	if opts.CandidateCount <= 0 {
		opts.CandidateCount = defaultCandidateCount
	}

	// Session bookkeeping. Without a database the session lives in memory
	// and load-more across restarts is unavailable.
	var sessionID uuid.UUID
	var store collection.Store
	if deps.DB != nil {
		var err error
		sessionID, err = deps.DB.CreateSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		store = deps.DB
	} else {
		sessionID = uuid.New()
		store = newMemStore(sessionID)
	}

	recorder := session.NewRecorder(opts.ArtifactsDir, sessionID, deps.DB)

	// Stage 1: discovery.
	fmt.Printf("Stage 1/3: Discovering companies for %q...\n", opts.Domain)
	discoveryStage := discovery.NewStage(deps.Searcher, deps.LLM, deps.Vendor, deps.DB)
	if deps.Fetcher != nil {
		discoveryStage.WithFetcher(deps.Fetcher)
	}
	companies, err := discoveryStage.Discover(ctx, discovery.Request{
		Domain:               opts.Domain,
		MentionedCompanies:   opts.MentionedCompanies,
		SeedCompanies:        opts.SeedCompanies,
		DisableSeedExpansion: opts.DisableSeedExpansion,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	companies = discoveryStage.EnrichDescriptions(ctx, companies)

	evalStage, err := evaluation.NewStage(deps.LLM)
	if err != nil {
		return nil, err
	}

	companies = evalStage.Categorize(ctx, opts.Domain, companies)
	companies = evalStage.ScoreCompanies(ctx, opts.SearchContext, companies)

	recorder.Record(ctx, session.StageDiscovery, companies, observability.FormatCompanies(companies))
	if opts.Verbose {
		printer.PrintCompanies(companies)
	}

	var companyIDs []string
	for _, c := range companies {
		if c.Searchable {
			companyIDs = append(companyIDs, c.VendorID)
		}
	}
	if len(companyIDs) == 0 {
		// Still a useful result: the caller gets the unresolved list.
		recorder.Record(ctx, session.StageCollection, "no searchable companies", "")
		return &Result{SessionID: sessionID, Companies: companies}, nil
	}

	// Stage 2: identifier collection and hydration.
	fmt.Printf("Stage 2/3: Collecting candidates from %d companies...\n", len(companyIDs))
	collectionStage := collection.NewStage(deps.Vendor, store)

	queryOpts := coresignal.QueryOptions{
		Keywords:        opts.Keywords,
		KeywordOperator: opts.KeywordOperator,
		Location:        opts.Location,
	}

	searchResult, err := collectionStage.Search(ctx, sessionID, companyIDs, queryOpts)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}
	recorder.Record(ctx, session.StagePreview, searchResult, "")

	hydration, err := collectionStage.LoadMore(ctx, sessionID, opts.CandidateCount)
	if err != nil {
		return nil, fmt.Errorf("candidate hydration failed: %w", err)
	}
	recorder.Record(ctx, session.StageCollection, hydration, observability.FormatHydration(hydration))
	if opts.Verbose {
		printer.PrintHydration(hydration)
	}

	// Stage 3: evaluation.
	fmt.Printf("Stage 3/3: Scoring %d candidates...\n", len(hydration.Candidates))
	profiles := make([]*coresignal.EmployeeProfile, 0, len(hydration.Candidates))
	for _, c := range hydration.Candidates {
		profiles = append(profiles, c.Profile)
	}
	scored := evalStage.ScoreCandidates(ctx, opts.SearchContext, profiles)

	recorder.Record(ctx, session.StageEvaluation, scored, observability.FormatScoredCandidates(scored))
	if opts.Verbose {
		printer.PrintScoredCandidates(scored)
	}

	return &Result{
		SessionID:    sessionID,
		Companies:    companies,
		Candidates:   scored,
		CacheHits:    hydration.CacheHits,
		FreshFetches: hydration.FreshFetches,
	}, nil
}
