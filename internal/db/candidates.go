package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Candidate Cache Methods
// -----------------------------------------------------------------------------

// GetCandidate retrieves a cached vendor profile and its freshness bucket.
// Entries past CandidateMaxTTL are reported as misses but not deleted.
func (db *DB) GetCandidate(ctx context.Context, vendorID string) (*CandidateCacheEntry, Freshness, error) {
	var e CandidateCacheEntry
	err := db.pool.QueryRow(ctx,
		`SELECT vendor_id, payload, fetched_at
		 FROM candidate_cache WHERE vendor_id = $1`,
		vendorID,
	).Scan(&e.VendorID, &e.Payload, &e.FetchedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, FreshnessMiss, nil
		}
		return nil, FreshnessMiss, fmt.Errorf("failed to get candidate: %w", err)
	}

	freshness := e.Classify(time.Now())
	if freshness == FreshnessMiss {
		return nil, FreshnessMiss, nil
	}
	return &e, freshness, nil
}

// PutCandidate stores a hydrated profile, overwriting any expired entry.
func (db *DB) PutCandidate(ctx context.Context, vendorID string, payload any) error {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate payload: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO candidate_cache (vendor_id, payload, fetched_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (vendor_id) DO UPDATE SET payload = $2, fetched_at = NOW()`,
		vendorID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to put candidate: %w", err)
	}
	return nil
}
