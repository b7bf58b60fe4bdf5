package coresignal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.coresignal.com/cdapi/v2"

// DefaultTimeout bounds every vendor call.
const DefaultTimeout = 30 * time.Second

// Client issues requests against the CoreSignal API. Calls are not retried
// here: collect is billed per record and a blind retry risks double-billing.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (for tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a gateway client with a static API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchEmployees runs an employee search and returns raw identifiers
// (up to SearchCap per query).
func (c *Client) SearchEmployees(ctx context.Context, query map[string]any) ([]string, error) {
	var ids []string
	if err := c.post(ctx, "employee_base/search/es_dsl", query, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// PreviewEmployees runs an employee search and returns abbreviated records.
func (c *Client) PreviewEmployees(ctx context.Context, query map[string]any) ([]EmployeePreview, error) {
	var previews []EmployeePreview
	if err := c.post(ctx, "employee_base/search/es_dsl/preview", query, &previews); err != nil {
		return nil, err
	}
	return previews, nil
}

// CollectEmployee hydrates one identifier into a full profile. Billed per
// record. Returns (nil, nil) when the id is unknown to the vendor.
func (c *Client) CollectEmployee(ctx context.Context, id string) (*EmployeeProfile, error) {
	var profile EmployeeProfile
	found, err := c.get(ctx, "employee_base/collect/"+id, &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// SearchCompaniesByName searches companies by name, capped at limit records.
func (c *Client) SearchCompaniesByName(ctx context.Context, name string, limit int) ([]Company, error) {
	query := BuildCompanyNameQuery(name)
	if limit > 0 {
		query["size"] = limit
	}
	var companies []Company
	if err := c.post(ctx, "company_base/search/es_dsl/preview", query, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// SearchCompaniesByWebsite searches companies by exact website.
func (c *Client) SearchCompaniesByWebsite(ctx context.Context, website string) ([]Company, error) {
	var companies []Company
	if err := c.post(ctx, "company_base/search/es_dsl/preview", BuildCompanyWebsiteQuery(website), &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// CollectCompany hydrates one company id. Returns (nil, nil) when unknown.
func (c *Client) CollectCompany(ctx context.Context, id string) (*Company, error) {
	var company Company
	found, err := c.get(ctx, "company_base/collect/"+id, &company)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &company, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &Error{Op: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// get performs a GET; the second return value is false for 404 (not-found is
// a valid-but-empty condition, not an error).
func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return false, &Error{Op: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return true, nil
}
