// Package websearch wraps the web search API used as an input source for
// company discovery. Results feed the LLM extraction step; no ranking logic
// lives here.
package websearch

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Result is one ranked web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher is the capability the discovery stage depends on. The concrete
// implementation talks to Google Custom Search; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Client implements Searcher over Google Custom Search.
type Client struct {
	svc *customsearch.Service
	cx  string
}

// NewClient creates a web search client.
func NewClient(ctx context.Context, apiKey string, cx string) (*Client, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Client{svc: svc, cx: cx}, nil
}

// Search runs one query and returns up to n results.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	call := c.svc.Cse.List().Cx(c.cx).Q(query)
	if n > 0 {
		call = call.Num(int64(n))
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
