package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/talent-sourcer/internal/observability"
	"github.com/jonathan/talent-sourcer/internal/pipeline"
)

var searchOpts struct {
	domain          string
	companies       []string
	seeds           []string
	noSeedExpansion bool
	keywords        []string
	keywordOperator string
	location        string
	searchContext   string
	count           int
	artifactsDir    string
	verbose         bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the full sourcing pipeline once",
	Long: `Run discovery, collection, and evaluation as a single one-shot pipeline.
Provide a domain to discover companies from the web, name companies directly,
or both. Without DATABASE_URL the run uses an in-memory session and skips
caching.`,
	RunE: runSearch,
}

func init() {
	flags := searchCmd.Flags()
	flags.StringVar(&searchOpts.domain, "domain", "", "Target domain, e.g. \"payments infrastructure\"")
	flags.StringSliceVar(&searchOpts.companies, "company", nil, "Company to include directly (repeatable)")
	flags.StringSliceVar(&searchOpts.seeds, "seed", nil, "Seed company to expand competitors from (repeatable)")
	flags.BoolVar(&searchOpts.noSeedExpansion, "no-seed-expansion", false, "Skip competitor expansion of seed companies")
	flags.StringSliceVar(&searchOpts.keywords, "keyword", nil, "Keyword filter for candidate search (repeatable)")
	flags.StringVar(&searchOpts.keywordOperator, "operator", "OR", "Keyword combination: OR or AND")
	flags.StringVar(&searchOpts.location, "location", "", "Candidate location filter")
	flags.StringVar(&searchOpts.searchContext, "context", "", "Scoring context, e.g. a role description (defaults to domain)")
	flags.IntVar(&searchOpts.count, "count", 20, "Number of candidate profiles to hydrate")
	flags.StringVar(&searchOpts.artifactsDir, "artifacts", "", "Directory for per-stage artifact files")
	flags.BoolVar(&searchOpts.verbose, "verbose", false, "Print detailed progress")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	if searchOpts.domain == "" && len(searchOpts.companies) == 0 {
		return fmt.Errorf("provide --domain or at least one --company")
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	deps, cleanup, err := buildDeps(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	artifactsDir := searchOpts.artifactsDir
	if artifactsDir == "" {
		artifactsDir = cfg.ArtifactsDir
	}

	result, err := pipeline.Run(cmd.Context(), deps, pipeline.RunOptions{
		Domain:               searchOpts.domain,
		MentionedCompanies:   searchOpts.companies,
		SeedCompanies:        searchOpts.seeds,
		DisableSeedExpansion: searchOpts.noSeedExpansion,
		Keywords:             searchOpts.keywords,
		KeywordOperator:      searchOpts.keywordOperator,
		Location:             searchOpts.location,
		SearchContext:        searchOpts.searchContext,
		CandidateCount:       searchOpts.count,
		ArtifactsDir:         artifactsDir,
		Verbose:              searchOpts.verbose || cfg.Verbose,
	})
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintCompanies(result.Companies)
	if len(result.Candidates) > 0 {
		printer.PrintScoredCandidates(result.Candidates)
	}
	fmt.Printf("\nSession: %s  (cache hits: %d, fresh fetches: %d)\n",
		result.SessionID, result.CacheHits, result.FreshFetches)
	return nil
}
