package db

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cache TTLs per namespace. Expired rows are treated as misses but are not
// deleted inline; cleanup is an out-of-band batch job.
const (
	// SearchResultCacheTTL is how long a frozen search snapshot stays fresh
	SearchResultCacheTTL = 7 * 24 * time.Hour
	// CompetitorListTTL is how long a cached competitor list stays fresh
	CompetitorListTTL = 7 * 24 * time.Hour
	// CompanyProfileTTL is how long an enriched company profile stays fresh
	CompanyProfileTTL = 30 * 24 * time.Hour
	// CandidateFreshTTL is the window in which a cached profile is served as-is
	CandidateFreshTTL = 3 * 24 * time.Hour
	// CandidateMaxTTL is the hard ceiling past which a cached profile is a miss
	CandidateMaxTTL = 90 * 24 * time.Hour
	// DefaultPageCacheTTL is the default time-to-live for cached pages (7 days)
	DefaultPageCacheTTL = 7 * 24 * time.Hour
)

// CachedSearchResult maps a normalized-parameter hash to a frozen snapshot of
// discovery/preview results. Rows are replaced, never updated in place.
type CachedSearchResult struct {
	QueryHash string          `json:"query_hash"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
}

// CompanyCacheEntry is a cached payload keyed by normalized company name.
// Kind distinguishes competitor lists (7 day TTL) from enriched profiles
// (30 day TTL).
type CompanyCacheEntry struct {
	NameNormalized string          `json:"name_normalized"`
	Kind           string          `json:"kind"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Company cache kinds
const (
	CompanyCacheCompetitors = "competitors"
	CompanyCacheProfile     = "profile"
)

// CandidateCacheEntry is a cached vendor profile keyed by vendor id.
// Hydration is billed, so hits here directly save credits.
type CandidateCacheEntry struct {
	VendorID  string          `json:"vendor_id"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Freshness classifies a candidate cache read.
type Freshness string

const (
	// FreshnessFresh means the entry is within CandidateFreshTTL
	FreshnessFresh Freshness = "fresh"
	// FreshnessRefreshRecommended means the entry is usable but aging (3-90 days)
	FreshnessRefreshRecommended Freshness = "refresh_recommended"
	// FreshnessMiss means no usable entry exists
	FreshnessMiss Freshness = "miss"
)

// Classify returns the freshness bucket for the entry at time now.
func (e *CandidateCacheEntry) Classify(now time.Time) Freshness {
	age := now.Sub(e.FetchedAt)
	switch {
	case age <= CandidateFreshTTL:
		return FreshnessFresh
	case age <= CandidateMaxTTL:
		return FreshnessRefreshRecommended
	default:
		return FreshnessMiss
	}
}

// SessionRow is the stored cursor for one user-initiated search. The
// identifier list and offset are monotonically read-forward; ids are never
// removed, only marked fetched.
type SessionRow struct {
	ID           uuid.UUID       `json:"id"`
	Query        json.RawMessage `json:"query,omitempty"`
	CandidateIDs []string        `json:"candidate_ids"`
	CursorOffset int             `json:"cursor_offset"`
	BatchIndex   int             `json:"batch_index"`
	FetchedIDs   []string        `json:"fetched_ids"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// EvidenceRecord is one append-only discovery/evaluation log row.
type EvidenceRecord struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Stage     string          `json:"stage"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CrawledPage represents a cached web page used for discovery enrichment.
type CrawledPage struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	PageType   *string   `json:"page_type,omitempty"`
	RawHTML    *string   `json:"-"` // Don't serialize (large)
	ParsedText *string   `json:"parsed_text,omitempty"`
	HTTPStatus *int      `json:"http_status,omitempty"`
	// Error tracking
	FetchStatus        string     `json:"fetch_status"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	IsPermanentFailure bool       `json:"is_permanent_failure"`
	RetryCount         int        `json:"retry_count"`
	RetryAfter         *time.Time `json:"retry_after,omitempty"`
	// Timestamps
	FetchedAt time.Time  `json:"fetched_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FetchStatus constants for crawled pages
const (
	FetchStatusSuccess  = "success"   // Page fetched successfully
	FetchStatusError    = "error"     // Generic error (may retry)
	FetchStatusNotFound = "not_found" // 404/410 - permanent failure
	FetchStatusTimeout  = "timeout"   // Request timed out (may retry)
	FetchStatusBlocked  = "blocked"   // 403/429 - blocked by server
)

// IsPermanentHTTPStatus returns true for status codes that indicate permanent failure
func IsPermanentHTTPStatus(status int) bool {
	switch status {
	case 404, 410, 451: // Not Found, Gone, Unavailable for Legal Reasons
		return true
	default:
		return false
	}
}

// FetchStatusFromHTTP determines fetch status from HTTP status code
func FetchStatusFromHTTP(status int) string {
	switch {
	case status >= 200 && status < 300:
		return FetchStatusSuccess
	case status == 404 || status == 410:
		return FetchStatusNotFound
	case status == 403 || status == 429:
		return FetchStatusBlocked
	default:
		return FetchStatusError
	}
}

// IsExpired returns true if the page cache has expired
func (p *CrawledPage) IsExpired() bool {
	if p.ExpiresAt == nil {
		return false // No expiry set, never expires
	}
	return time.Now().After(*p.ExpiresAt)
}

// IsFresh returns true if the page was fetched within maxAge
func (p *CrawledPage) IsFresh(maxAge time.Duration) bool {
	return time.Since(p.FetchedAt) < maxAge
}

// NormalizeName converts a company name to a normalized form for matching
// Example: "Affirm, Inc." -> "affirminc"
func NormalizeName(name string) string {
	// Lowercase
	normalized := strings.ToLower(name)
	// Remove non-alphanumeric characters
	reg := regexp.MustCompile(`[^a-z0-9]`)
	normalized = reg.ReplaceAllString(normalized, "")
	return normalized
}

// HashContent computes SHA-256 hash of content for change detection
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// QueryHash computes a stable hash for a set of search parameters.
// Values are normalized (lowercased, trimmed) and sorted so semantically
// identical searches hash identically regardless of input order.
func QueryHash(params map[string]string, lists map[string][]string) string {
	var sb strings.Builder

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strings.ToLower(strings.TrimSpace(params[k])))
		sb.WriteString(";")
	}

	listKeys := make([]string, 0, len(lists))
	for k := range lists {
		listKeys = append(listKeys, k)
	}
	sort.Strings(listKeys)
	for _, k := range listKeys {
		values := make([]string, 0, len(lists[k]))
		for _, v := range lists[k] {
			values = append(values, strings.ToLower(strings.TrimSpace(v)))
		}
		sort.Strings(values)
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strings.Join(values, ","))
		sb.WriteString(";")
	}

	return HashContent(sb.String())
}
