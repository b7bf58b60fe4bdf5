// Package config provides configuration loading and validation for the CLI
// and server. Values come from a JSON file merged with environment
// variables; flags win over both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all runtime settings. All fields are optional in the file;
// missing values fall back to environment variables or defaults.
type Config struct {
	// Vendor APIs
	CoreSignalAPIKey  string `json:"coresignal_api_key,omitempty"`
	CoreSignalBaseURL string `json:"coresignal_base_url,omitempty"`

	// LLM provider: "gemini", "openai", or "anthropic"
	LLMProvider     string `json:"llm_provider,omitempty"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey    string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`

	// Google Programmable Search
	SearchAPIKey string `json:"search_api_key,omitempty"`
	SearchCX     string `json:"search_cx,omitempty"`

	// Storage
	DatabaseURL  string `json:"database_url,omitempty"`
	ArtifactsDir string `json:"artifacts_dir,omitempty"`

	// Server
	ListenAddr string `json:"listen_addr,omitempty"`
	JWTSecret  string `json:"jwt_secret,omitempty"`

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty"` // Headless browser fallback for SPA sites
	Verbose    bool `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables. Call
// godotenv.Load first when a .env file should participate.
func FromEnv() Config {
	return Config{
		CoreSignalAPIKey:  os.Getenv("CORESIGNAL_API_KEY"),
		CoreSignalBaseURL: os.Getenv("CORESIGNAL_BASE_URL"),
		LLMProvider:       os.Getenv("LLM_PROVIDER"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		SearchAPIKey:      os.Getenv("SEARCH_API_KEY"),
		SearchCX:          os.Getenv("SEARCH_CX"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ArtifactsDir:      os.Getenv("ARTIFACTS_DIR"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. Bool fields are not merged; flags always win for those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.CoreSignalAPIKey == "" {
		result.CoreSignalAPIKey = defaults.CoreSignalAPIKey
	}
	if result.CoreSignalBaseURL == "" {
		result.CoreSignalBaseURL = defaults.CoreSignalBaseURL
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.AnthropicAPIKey == "" {
		result.AnthropicAPIKey = defaults.AnthropicAPIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchCX == "" {
		result.SearchCX = defaults.SearchCX
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ArtifactsDir == "" {
		result.ArtifactsDir = defaults.ArtifactsDir
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.JWTSecret == "" {
		result.JWTSecret = defaults.JWTSecret
	}

	return result
}

// Validate checks that the configuration is internally consistent. Required
// fields depend on the command, so this only rejects contradictions.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "", "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("config error: unknown llm_provider %q", c.LLMProvider)
	}

	if c.LLMAPIKey() == "" && c.LLMProvider != "" {
		return fmt.Errorf("config error: no API key configured for llm_provider %q", c.LLMProvider)
	}

	return nil
}

// LLMAPIKey returns the API key matching the configured provider. An empty
// provider defaults to Gemini.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GeminiAPIKey
	}
}
