package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple name", "Acme", "acme"},
		{"With suffix", "Affirm, Inc.", "affirminc"},
		{"Mixed case and spaces", "Widget Co", "widgetco"},
		{"Special characters", "Foo & Bar!", "foobar"},
		{"Numbers kept", "A16z", "a16z"},
		{"Empty", "", ""},
		{"Only punctuation", "---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestQueryHash_StableUnderOrderAndCase(t *testing.T) {
	a := QueryHash(
		map[string]string{"domain": "Fintech", "location": "NYC"},
		map[string][]string{"companies": {"Acme", "Widgetco"}},
	)
	b := QueryHash(
		map[string]string{"location": " nyc ", "domain": "fintech"},
		map[string][]string{"companies": {"widgetco", "ACME"}},
	)

	assert.Equal(t, a, b)
}

func TestQueryHash_DistinctParams(t *testing.T) {
	a := QueryHash(map[string]string{"domain": "fintech"}, nil)
	b := QueryHash(map[string]string{"domain": "healthtech"}, nil)
	c := QueryHash(map[string]string{"domain": "fintech"}, map[string][]string{"companies": {"acme"}})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCandidateClassify(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		age      time.Duration
		expected Freshness
	}{
		{"one hour old", time.Hour, FreshnessFresh},
		{"just under fresh ttl", CandidateFreshTTL - time.Minute, FreshnessFresh},
		{"one week old", 7 * 24 * time.Hour, FreshnessRefreshRecommended},
		{"just under max ttl", CandidateMaxTTL - time.Hour, FreshnessRefreshRecommended},
		{"past max ttl", CandidateMaxTTL + time.Hour, FreshnessMiss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CandidateCacheEntry{VendorID: "x", FetchedAt: now.Add(-tt.age)}
			assert.Equal(t, tt.expected, entry.Classify(now))
		})
	}
}

func TestFetchStatusFromHTTP(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{200, FetchStatusSuccess},
		{204, FetchStatusSuccess},
		{404, FetchStatusNotFound},
		{410, FetchStatusNotFound},
		{403, FetchStatusBlocked},
		{429, FetchStatusBlocked},
		{500, FetchStatusError},
		{0, FetchStatusError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FetchStatusFromHTTP(tt.status), "status %d", tt.status)
	}
}

func TestIsPermanentHTTPStatus(t *testing.T) {
	assert.True(t, IsPermanentHTTPStatus(404))
	assert.True(t, IsPermanentHTTPStatus(410))
	assert.True(t, IsPermanentHTTPStatus(451))
	assert.False(t, IsPermanentHTTPStatus(500))
	assert.False(t, IsPermanentHTTPStatus(429))
}

func TestCrawledPageFreshness(t *testing.T) {
	page := &CrawledPage{FetchedAt: time.Now().Add(-time.Hour)}
	assert.True(t, page.IsFresh(2*time.Hour))
	assert.False(t, page.IsFresh(30*time.Minute))

	assert.False(t, page.IsExpired()) // no expiry set

	past := time.Now().Add(-time.Minute)
	page.ExpiresAt = &past
	assert.True(t, page.IsExpired())
}

func TestHashContent(t *testing.T) {
	a := HashContent("hello")
	b := HashContent("hello")
	c := HashContent("world")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}
