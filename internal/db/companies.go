package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Company Cache Methods
// -----------------------------------------------------------------------------

// GetCompanyCache retrieves a cached company payload by normalized name and
// kind, honoring maxAge. Stale entries are misses.
func (db *DB) GetCompanyCache(ctx context.Context, name, kind string, maxAge time.Duration) (*CompanyCacheEntry, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("company name cannot be empty")
	}

	var e CompanyCacheEntry
	err := db.pool.QueryRow(ctx,
		`SELECT name_normalized, kind, payload, created_at, updated_at
		 FROM company_cache WHERE name_normalized = $1 AND kind = $2`,
		normalized, kind,
	).Scan(&e.NameNormalized, &e.Kind, &e.Payload, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company cache: %w", err)
	}

	if time.Since(e.UpdatedAt) > maxAge {
		return nil, nil
	}
	return &e, nil
}

// PutCompanyCache upserts a company payload under its normalized name.
func (db *DB) PutCompanyCache(ctx context.Context, name, kind string, payload any) error {
	normalized := NormalizeName(name)
	if normalized == "" {
		return fmt.Errorf("company name cannot be empty")
	}

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal company payload: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO company_cache (name_normalized, kind, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name_normalized, kind) DO UPDATE SET payload = $3, updated_at = NOW()`,
		normalized, kind, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to put company cache: %w", err)
	}
	return nil
}

// TTLForCompanyKind returns the freshness window for a company cache kind.
func TTLForCompanyKind(kind string) time.Duration {
	if kind == CompanyCacheProfile {
		return CompanyProfileTTL
	}
	return CompetitorListTTL
}
