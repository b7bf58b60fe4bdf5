package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-sourcer/internal/config"
	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
	"github.com/jonathan/talent-sourcer/internal/fetch"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/pipeline"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

// buildDeps constructs the pipeline dependencies from configuration. The
// database is optional: without DATABASE_URL caching is skipped and sessions
// live in memory. The returned cleanup closes whatever was opened.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	var deps pipeline.Deps

	if cfg.CoreSignalAPIKey == "" {
		return deps, nil, fmt.Errorf("CORESIGNAL_API_KEY is required")
	}
	var vendorOpts []coresignal.Option
	if cfg.CoreSignalBaseURL != "" {
		vendorOpts = append(vendorOpts, coresignal.WithBaseURL(cfg.CoreSignalBaseURL))
	}
	vendor, err := coresignal.NewClient(cfg.CoreSignalAPIKey, vendorOpts...)
	if err != nil {
		return deps, nil, fmt.Errorf("failed to create vendor client: %w", err)
	}
	deps.Vendor = vendor

	apiKey := cfg.LLMAPIKey()
	if apiKey == "" {
		return deps, nil, fmt.Errorf("an LLM API key is required (GEMINI_API_KEY, OPENAI_API_KEY, or ANTHROPIC_API_KEY)")
	}
	llmClient, err := llm.NewClient(ctx, llm.ConfigForProvider(cfg.LLMProvider), apiKey)
	if err != nil {
		return deps, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	deps.LLM = llmClient

	if cfg.SearchAPIKey == "" || cfg.SearchCX == "" {
		llmClient.Close() //nolint:errcheck
		return deps, nil, fmt.Errorf("SEARCH_API_KEY and SEARCH_CX are required")
	}
	searcher, err := websearch.NewClient(ctx, cfg.SearchAPIKey, cfg.SearchCX)
	if err != nil {
		llmClient.Close() //nolint:errcheck
		return deps, nil, fmt.Errorf("failed to create search client: %w", err)
	}
	deps.Searcher = searcher

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			llmClient.Close() //nolint:errcheck
			return deps, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.DB = database
	}

	fetchCfg := fetch.DefaultCachedFetcherConfig()
	fetchCfg.UseBrowser = cfg.UseBrowser
	deps.Fetcher = fetch.NewCachedFetcher(deps.DB, fetchCfg)

	cleanup := func() {
		llmClient.Close() //nolint:errcheck
		if deps.DB != nil {
			deps.DB.Close()
		}
	}
	return deps, cleanup, nil
}
