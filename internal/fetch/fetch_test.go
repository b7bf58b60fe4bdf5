package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><main>Company page</main></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, result.StatusCode)
	assert.Contains(t, result.HTML, "Company page")
}

func TestURL_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "example.com"},
		{"garbage", "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := URL(context.Background(), tt.url, nil)
			require.Error(t, err)

			var fetchErr *Error
			assert.ErrorAs(t, err, &fetchErr)
		})
	}
}

func TestURL_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	// Result is still returned so callers can record the status
	require.NotNil(t, result)
	assert.Equal(t, 404, result.StatusCode)
}

func TestExtractMainText(t *testing.T) {
	html := `<html><body>
		<nav>Navigation junk</nav>
		<main>  About Acme.
		We build widgets.  </main>
		<footer>Footer junk</footer>
	</body></html>`

	text, err := ExtractMainText(html, DefaultTextSelectors())
	require.NoError(t, err)
	assert.Contains(t, text, "About Acme.")
	assert.Contains(t, text, "We build widgets.")
	assert.NotContains(t, text, "Navigation junk")
	assert.NotContains(t, text, "Footer junk")
}

func TestExtractMainText_FallsBackToBody(t *testing.T) {
	html := `<html><body><div>Plain content</div></body></html>`

	text, err := ExtractMainText(html, []string{".does-not-exist"})
	require.NoError(t, err)
	assert.Contains(t, text, "Plain content")
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser(""))
	assert.True(t, ShouldUseBrowser("short shell"))
	assert.False(t, ShouldUseBrowser(strings.Repeat("long content ", 100)))
}

func TestCleanWhitespace(t *testing.T) {
	input := "  line one  \n\n\n   line two   \n"
	assert.Equal(t, "line one\nline two", cleanWhitespace(input))
}

func TestNewCachedFetcher_Defaults(t *testing.T) {
	fetcher := NewCachedFetcher(nil, nil)

	require.NotNil(t, fetcher)
	assert.NotZero(t, fetcher.cacheTTL)
	assert.NotNil(t, fetcher.options)
	assert.False(t, fetcher.skipCache)
}

func TestCachedFetcher_NoDatabase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><main>cached me</main></body></html>"))
	}))
	defer server.Close()

	fetcher := NewCachedFetcher(nil, nil)
	result, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Contains(t, result.Text, "cached me")
}
