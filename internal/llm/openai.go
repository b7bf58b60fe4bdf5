package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		config: config,
	}, nil
}

// Complete generates text content using the specified model tier
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier)
}

// CompleteJSON generates JSON content using the specified model tier.
// OpenAI's json_object response format is deliberately not set: it forces a
// top-level object, and callers expect top-level arrays. Fence cleanup
// handles the occasional markdown wrapper instead.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *OpenAIClient) generate(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	req := openai.ChatCompletionRequest{
		Model:       modelName,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	return withRetry(ctx, c.config.Retry, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
				return "", &RateLimitError{Provider: ProviderOpenAI, Cause: err}
			}
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *OpenAIClient) Close() error {
	return nil
}
