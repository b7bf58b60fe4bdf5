package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Search Result Cache
// -----------------------------------------------------------------------------

// GetSearchResult retrieves a cached search snapshot if it is younger than
// maxAge. Expired rows are treated as misses and left in place.
func (db *DB) GetSearchResult(ctx context.Context, queryHash string, maxAge time.Duration) (*CachedSearchResult, error) {
	var r CachedSearchResult
	err := db.pool.QueryRow(ctx,
		`SELECT query_hash, snapshot, created_at
		 FROM search_result_cache WHERE query_hash = $1`,
		queryHash,
	).Scan(&r.QueryHash, &r.Snapshot, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get search result: %w", err)
	}

	if time.Since(r.CreatedAt) > maxAge {
		return nil, nil // Stale, caller should recompute
	}
	return &r, nil
}

// PutSearchResult stores a frozen snapshot for a query hash, replacing any
// previous snapshot. Snapshots are never updated in place.
func (db *DB) PutSearchResult(ctx context.Context, queryHash string, snapshot any) error {
	jsonBytes, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO search_result_cache (query_hash, snapshot, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (query_hash) DO UPDATE SET snapshot = $2, created_at = NOW()`,
		queryHash, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to put search result: %w", err)
	}
	return nil
}
