package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// claudeAPIURL is the Claude Messages API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient implements Client for the Anthropic Messages API.
// Anthropic has no JSON response-format flag, so CompleteJSON relies on
// prompt instructions plus code-fence cleanup.
type ClaudeClient struct {
	apiKey     string
	config     *Config
	httpClient *http.Client
}

// NewClaudeClient creates a new Anthropic client
func NewClaudeClient(config *Config, apiKey string) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		config:     config,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete generates text content using the specified model tier
func (c *ClaudeClient) Complete(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier)
}

// CompleteJSON generates JSON content using the specified model tier
func (c *ClaudeClient) CompleteJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *ClaudeClient) generate(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	reqBody := claudeRequest{
		Model:     modelName,
		MaxTokens: 4096,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	return withRetry(ctx, c.config.Retry, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("calling Claude API: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			body, _ := io.ReadAll(resp.Body)
			return "", &RateLimitError{
				Provider: ProviderAnthropic,
				Cause:    fmt.Errorf("Claude API returned 429: %s", string(body)),
			}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
		}

		var cResp claudeResponse
		if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
			return "", fmt.Errorf("decoding Claude response: %w", err)
		}

		for _, block := range cResp.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", fmt.Errorf("no text content in Claude API response")
	})
}

// GetModel returns the model name for a tier
func (c *ClaudeClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *ClaudeClient) Close() error {
	return nil
}
