// Package collection retrieves candidate identifiers for resolved companies
// and hydrates them into full profiles on demand. The vendor caps each
// search query at 100 results, so identifier collection issues independent
// queries over small company batches and merges the results. Hydration is
// billed per profile, so it is cache-first and tracked with hit/fetch
// counters for cost reporting.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
)

const (
	// CompanyBatchSize is how many companies share one vendor search query.
	// Small batches keep each query under the per-query result cap, so the
	// merged list can exceed what a single query could ever return.
	CompanyBatchSize = 5

	// hydrateConcurrency bounds in-flight collect calls per load-more.
	hydrateConcurrency = 4
)

// Gateway is the subset of the vendor client this stage needs.
type Gateway interface {
	SearchEmployees(ctx context.Context, query map[string]any) ([]string, error)
	PreviewEmployees(ctx context.Context, query map[string]any) ([]coresignal.EmployeePreview, error)
	CollectEmployee(ctx context.Context, id string) (*coresignal.EmployeeProfile, error)
}

// Store is the session and candidate-cache persistence this stage needs.
// *db.DB satisfies it.
type Store interface {
	GetSession(ctx context.Context, id uuid.UUID) (*db.SessionRow, error)
	SaveSessionQuery(ctx context.Context, id uuid.UUID, query any) error
	SetSessionCandidates(ctx context.Context, id uuid.UUID, candidateIDs []string, batchIndex int) error
	AdvanceCursor(ctx context.Context, id uuid.UUID, newOffset int, fetchedIDs []string) error
	GetCandidate(ctx context.Context, vendorID string) (*db.CandidateCacheEntry, db.Freshness, error)
	PutCandidate(ctx context.Context, vendorID string, payload any) error
}

// Stage runs identifier collection and profile hydration.
type Stage struct {
	gateway Gateway
	store   Store
}

// NewStage wires a collection stage.
func NewStage(gateway Gateway, store Store) *Stage {
	return &Stage{gateway: gateway, store: store}
}

// SearchResult summarizes one identifier-collection run.
type SearchResult struct {
	SessionID       uuid.UUID `json:"session_id"`
	TotalCandidates int       `json:"total_candidates"`
	Batches         int       `json:"batches"`
	FailedBatches   int       `json:"failed_batches"`
}

// Search collects candidate identifiers for the given company ids and stores
// the merged, deduplicated list on the session with the cursor reset. One
// failed batch query is logged and skipped; the merge continues with the
// remaining batches.
func (s *Stage) Search(ctx context.Context, sessionID uuid.UUID, companyIDs []string, opts coresignal.QueryOptions) (*SearchResult, error) {
	if len(companyIDs) == 0 {
		return nil, fmt.Errorf("search requires at least one company id")
	}

	var merged []string
	seen := make(map[string]bool)
	batches := 0
	failed := 0

	for start := 0; start < len(companyIDs); start += CompanyBatchSize {
		end := start + CompanyBatchSize
		if end > len(companyIDs) {
			end = len(companyIDs)
		}
		batches++

		batchOpts := opts
		batchOpts.CompanyIDs = companyIDs[start:end]
		query := coresignal.BuildEmployeeQuery(batchOpts)

		ids, err := s.gateway.SearchEmployees(ctx, query)
		if err != nil {
			log.Printf("[COLLECTION] batch %d search failed: %v", batches, err)
			failed++
			continue
		}

		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}

	if failed == batches {
		return nil, fmt.Errorf("all %d search batches failed", batches)
	}

	// The stored query is the unbatched form, for observability and replay.
	fullOpts := opts
	fullOpts.CompanyIDs = companyIDs
	fullQuery := coresignal.BuildEmployeeQuery(fullOpts)
	if err := s.store.SaveSessionQuery(ctx, sessionID, fullQuery); err != nil {
		return nil, err
	}
	if err := s.store.SetSessionCandidates(ctx, sessionID, merged, batches); err != nil {
		return nil, err
	}

	return &SearchResult{
		SessionID:       sessionID,
		TotalCandidates: len(merged),
		Batches:         batches,
		FailedBatches:   failed,
	}, nil
}

// Preview returns abbreviated candidate records for the given companies
// without spending collection credits.
func (s *Stage) Preview(ctx context.Context, companyIDs []string, opts coresignal.QueryOptions, limit int) ([]coresignal.EmployeePreview, error) {
	if len(companyIDs) == 0 {
		return nil, fmt.Errorf("preview requires at least one company id")
	}

	previewOpts := opts
	previewOpts.CompanyIDs = companyIDs
	query := coresignal.BuildEmployeeQuery(previewOpts)
	if limit > 0 {
		query["size"] = limit
	}

	return s.gateway.PreviewEmployees(ctx, query)
}

// HydratedCandidate is one profile returned by LoadMore, with its cache
// provenance.
type HydratedCandidate struct {
	Profile            *coresignal.EmployeeProfile `json:"profile"`
	FromCache          bool                        `json:"from_cache"`
	RefreshRecommended bool                        `json:"refresh_recommended,omitempty"`
}

// FailedHydration records one identifier whose collect call failed.
type FailedHydration struct {
	VendorID string `json:"vendor_id"`
	Error    string `json:"error"`
}

// HydrationResult is the outcome of one LoadMore call.
type HydrationResult struct {
	Candidates   []HydratedCandidate `json:"candidates"`
	Failed       []FailedHydration   `json:"failed,omitempty"`
	CacheHits    int                 `json:"cache_hits"`
	FreshFetches int                 `json:"fresh_fetches"`
	NewOffset    int                 `json:"new_offset"`
	Exhausted    bool                `json:"exhausted"`
}

// LoadMore advances the session cursor by up to count identifiers and
// hydrates the newly-reached ones. Fresh cached profiles are served without
// a paid call; misses are collected with bounded concurrency. A failed
// collect for one identifier is recorded and skipped, never fatal.
//
// The cursor is monotonic. Concurrent LoadMore calls against the same
// session must be serialized by the caller.
func (s *Stage) LoadMore(ctx context.Context, sessionID uuid.UUID, count int) (*HydrationResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if !session.Active {
		return nil, fmt.Errorf("session %s is no longer active", sessionID)
	}

	start := session.CursorOffset
	end := start + count
	if end > len(session.CandidateIDs) {
		end = len(session.CandidateIDs)
	}
	if start >= end {
		return &HydrationResult{NewOffset: start, Exhausted: true}, nil
	}

	alreadyFetched := make(map[string]bool, len(session.FetchedIDs))
	for _, id := range session.FetchedIDs {
		alreadyFetched[id] = true
	}

	result := &HydrationResult{NewOffset: end, Exhausted: end >= len(session.CandidateIDs)}
	var toFetch []string

	// Cache pass first: only actual misses cost credits.
	for _, id := range session.CandidateIDs[start:end] {
		if alreadyFetched[id] {
			continue
		}

		entry, freshness, err := s.store.GetCandidate(ctx, id)
		if err != nil {
			log.Printf("[COLLECTION] candidate cache read failed for %s: %v", id, err)
			freshness = db.FreshnessMiss
		}
		if entry == nil || freshness == db.FreshnessMiss {
			toFetch = append(toFetch, id)
			continue
		}

		var profile coresignal.EmployeeProfile
		if err := json.Unmarshal(entry.Payload, &profile); err != nil {
			toFetch = append(toFetch, id)
			continue
		}

		result.CacheHits++
		result.Candidates = append(result.Candidates, HydratedCandidate{
			Profile:            &profile,
			FromCache:          true,
			RefreshRecommended: freshness == db.FreshnessRefreshRecommended,
		})
	}

	// Paid pass for misses, bounded concurrency, partial-failure tolerant.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)

	for _, id := range toFetch {
		g.Go(func() error {
			profile, err := s.gateway.CollectEmployee(gctx, id)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Failed = append(result.Failed, FailedHydration{VendorID: id, Error: err.Error()})
				return nil
			}
			if profile == nil {
				result.Failed = append(result.Failed, FailedHydration{VendorID: id, Error: "profile not found"})
				return nil
			}

			result.FreshFetches++
			result.Candidates = append(result.Candidates, HydratedCandidate{Profile: profile})

			if err := s.store.PutCandidate(gctx, id, profile); err != nil {
				log.Printf("[COLLECTION] candidate cache write failed for %s: %v", id, err)
			}
			return nil
		})
	}
	// Group functions never return errors; Wait only propagates ctx issues.
	_ = g.Wait()

	// Fresh fetches land in completion order; restore the id-list order so
	// pages are deterministic.
	position := make(map[string]int, end-start)
	for i, id := range session.CandidateIDs[start:end] {
		position[id] = i
	}
	sort.Slice(result.Candidates, func(i, j int) bool {
		return position[result.Candidates[i].Profile.ID] < position[result.Candidates[j].Profile.ID]
	})

	fetchedNow := make([]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		fetchedNow = append(fetchedNow, c.Profile.ID)
	}
	if err := s.store.AdvanceCursor(ctx, sessionID, end, fetchedNow); err != nil {
		return nil, err
	}

	return result, nil
}
