// Package discovery - resolver.go maps discovered company names to vendor
// company ids through an ordered fallback: website match, exact name match,
// fuzzy name match. Tiers short-circuit; the first hit wins.
package discovery

import (
	"context"
	"log"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
)

// nameSearchLimit bounds the vendor name search so resolution never pages.
const nameSearchLimit = 10

// Resolve fills in VendorID, MatchTier, Searchable, and enrichment fields
// on the company from the first resolution tier that succeeds. A company
// that fails every tier is returned unchanged with Searchable=false; errors
// from individual tiers are logged and treated as misses so one flaky
// vendor call never drops a lead.
func Resolve(ctx context.Context, resolver Resolver, company Company) Company {
	// Tier 1: exact website match, when we have a website
	if company.Website != "" {
		matches, err := resolver.SearchCompaniesByWebsite(ctx, company.Website)
		if err != nil {
			log.Printf("[DISCOVERY] website lookup failed for %s: %v", company.Name, err)
		} else if len(matches) > 0 {
			return applyMatch(company, matches[0], MatchWebsite)
		}
	}

	// Tiers 2 and 3 share one limited name search
	matches, err := resolver.SearchCompaniesByName(ctx, company.Name, nameSearchLimit)
	if err != nil {
		log.Printf("[DISCOVERY] name lookup failed for %s: %v", company.Name, err)
		return company
	}

	// Tier 2: exact match on normalized name
	want := db.NormalizeName(company.Name)
	for _, m := range matches {
		if db.NormalizeName(m.Name) == want {
			return applyMatch(company, m, MatchExact)
		}
	}

	// Tier 3: best fuzzy match above the threshold
	var best coresignal.Company
	bestScore := 0.0
	for _, m := range matches {
		if s := NameSimilarity(company.Name, m.Name); s > bestScore {
			bestScore = s
			best = m
		}
	}
	if bestScore >= FuzzyThreshold {
		return applyMatch(company, best, MatchFuzzy)
	}

	return company
}

func applyMatch(company Company, match coresignal.Company, tier MatchTier) Company {
	company.VendorID = match.ID
	company.Searchable = true
	company.MatchTier = tier
	if company.Website == "" {
		company.Website = match.Website
	}
	company.Industry = match.Industry
	company.SizeRange = match.SizeRange
	company.Location = match.HQLocation
	company.FundingStage = match.FundingStage
	return company
}
