package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Crawled Page Methods
// -----------------------------------------------------------------------------

// GetCrawledPageByURL retrieves a cached page by URL
func (db *DB) GetCrawledPageByURL(ctx context.Context, pageURL string) (*CrawledPage, error) {
	var p CrawledPage
	err := db.pool.QueryRow(ctx,
		`SELECT id, url, page_type, raw_html, parsed_text, http_status,
		        fetch_status, error_message, is_permanent_failure, retry_count, retry_after,
		        fetched_at, expires_at, created_at, updated_at
		 FROM crawled_pages WHERE url = $1`,
		pageURL,
	).Scan(&p.ID, &p.URL, &p.PageType, &p.RawHTML, &p.ParsedText, &p.HTTPStatus,
		&p.FetchStatus, &p.ErrorMessage, &p.IsPermanentFailure, &p.RetryCount, &p.RetryAfter,
		&p.FetchedAt, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crawled page: %w", err)
	}
	return &p, nil
}

// GetFreshCrawledPage retrieves a page only if it's not stale and was successful
func (db *DB) GetFreshCrawledPage(ctx context.Context, pageURL string, maxAge time.Duration) (*CrawledPage, error) {
	page, err := db.GetCrawledPageByURL(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}

	if !page.IsFresh(maxAge) {
		return nil, nil // Stale, should re-fetch
	}

	// Only return successful pages from cache
	if page.FetchStatus != FetchStatusSuccess {
		return nil, nil
	}

	return page, nil
}

// ShouldSkipURL checks if a URL should be skipped due to previous permanent failure
func (db *DB) ShouldSkipURL(ctx context.Context, pageURL string) (bool, string, error) {
	page, err := db.GetCrawledPageByURL(ctx, pageURL)
	if err != nil {
		return false, "", err
	}
	if page == nil {
		return false, "", nil // Never tried, don't skip
	}

	// Skip permanently failed pages forever
	if page.IsPermanentFailure {
		reason := "permanent failure"
		if page.ErrorMessage != nil {
			reason = *page.ErrorMessage
		}
		return true, reason, nil
	}

	// Skip pages with retry_after in the future
	if page.RetryAfter != nil && time.Now().Before(*page.RetryAfter) {
		return true, "retry backoff", nil
	}

	return false, "", nil
}

// UpsertCrawledPage inserts or updates a crawled page (for successful fetches)
func (db *DB) UpsertCrawledPage(ctx context.Context, page *CrawledPage) error {
	// Set default TTL if not provided
	expiresAt := page.ExpiresAt
	if expiresAt == nil {
		t := time.Now().Add(DefaultPageCacheTTL)
		expiresAt = &t
	}

	// Default to success status
	fetchStatus := page.FetchStatus
	if fetchStatus == "" {
		fetchStatus = FetchStatusSuccess
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO crawled_pages (url, page_type, raw_html, parsed_text, http_status,
		                            fetch_status, error_message, is_permanent_failure,
		                            retry_count, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), $9)
		 ON CONFLICT (url) DO UPDATE SET
		     page_type = COALESCE($2, crawled_pages.page_type),
		     raw_html = $3,
		     parsed_text = $4,
		     http_status = $5,
		     fetch_status = $6,
		     error_message = $7,
		     is_permanent_failure = $8,
		     retry_count = 0,
		     retry_after = NULL,
		     fetched_at = NOW(),
		     expires_at = $9,
		     updated_at = NOW()
		 RETURNING id, fetched_at, created_at, updated_at`,
		page.URL, page.PageType, page.RawHTML, page.ParsedText, page.HTTPStatus,
		fetchStatus, page.ErrorMessage, page.IsPermanentFailure, expiresAt,
	).Scan(&page.ID, &page.FetchedAt, &page.CreatedAt, &page.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert crawled page: %w", err)
	}
	return nil
}

// RecordFailedFetch records a failed fetch attempt with exponential backoff.
// Schedule: 1 min → 5 min → 25 min → 2 hours (capped). For permanent failures
// retry_after is NULL (never retry).
func (db *DB) RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error {
	fetchStatus := FetchStatusFromHTTP(httpStatus)
	isPermanent := IsPermanentHTTPStatus(httpStatus)

	_, err := db.pool.Exec(ctx,
		`INSERT INTO crawled_pages (url, http_status, fetch_status, error_message, is_permanent_failure, retry_count, retry_after, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, 1,
		         CASE WHEN $5 THEN NULL ELSE NOW() + INTERVAL '1 minute' END,
		         NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     http_status = $2,
		     fetch_status = $3,
		     error_message = $4,
		     is_permanent_failure = $5 OR crawled_pages.is_permanent_failure,
		     retry_count = crawled_pages.retry_count + 1,
		     retry_after = CASE
		         WHEN $5 OR crawled_pages.is_permanent_failure THEN NULL
		         ELSE NOW() + LEAST(
		             INTERVAL '1 minute' * POWER(5, LEAST(crawled_pages.retry_count, 3)),
		             INTERVAL '2 hours'
		         )
		     END,
		     fetched_at = NOW(),
		     updated_at = NOW()`,
		pageURL, httpStatus, fetchStatus, errorMsg, isPermanent,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed fetch: %w", err)
	}
	return nil
}
