// Package discovery produces the deduplicated list of target companies for a
// sourcing run. It combines explicitly mentioned companies with web-search
// expansion from seed companies, extracts names with an LLM, filters
// obviously-non-company tokens before any paid call, and resolves survivors
// to vendor company ids through a tiered fallback match.
package discovery

import (
	"context"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
)

// Method records how a company entered the discovery set.
type Method string

const (
	MethodMentioned     Method = "mentioned"
	MethodSeedExpansion Method = "seed-expansion"
	MethodWebSearch     Method = "web-search"
)

// MatchTier records which resolution tier produced the vendor id.
type MatchTier string

const (
	MatchWebsite MatchTier = "website"
	MatchExact   MatchTier = "exact-name"
	MatchFuzzy   MatchTier = "fuzzy-name"
	MatchNone    MatchTier = ""
)

// Category classifies a company relative to the target domain. Assigned
// during evaluation, empty until then.
type Category string

const (
	CategoryDirectCompetitor Category = "direct_competitor"
	CategoryAdjacent         Category = "adjacent"
	CategorySameStage        Category = "same_stage"
	CategoryTalentPool       Category = "talent_pool"
)

// Company is one discovered employer. Companies that fail vendor resolution
// are retained with Searchable=false rather than dropped, so the caller can
// surface them for manual follow-up.
type Company struct {
	Name        string    `json:"name"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	VendorID    string    `json:"vendor_id,omitempty"`
	Searchable  bool      `json:"searchable"`
	Method      Method    `json:"discovery_method"`
	MatchTier   MatchTier `json:"match_tier,omitempty"`
	Category    Category  `json:"category,omitempty"`

	// Enrichment from the vendor record, when resolution succeeded.
	Industry     string `json:"industry,omitempty"`
	SizeRange    string `json:"size_range,omitempty"`
	Location     string `json:"location,omitempty"`
	FundingStage string `json:"funding_stage,omitempty"`

	// Evaluation output.
	Score     float64 `json:"score,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Resolver is the subset of the vendor gateway discovery needs. The
// coresignal client satisfies it.
type Resolver interface {
	SearchCompaniesByName(ctx context.Context, name string, limit int) ([]coresignal.Company, error)
	SearchCompaniesByWebsite(ctx context.Context, website string) ([]coresignal.Company, error)
}
