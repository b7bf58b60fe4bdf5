// Package main provides the entry point for the talent sourcer CLI and
// HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/talent-sourcer/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sourcer",
	Short: "Candidate sourcing pipeline",
	Long:  "Talent sourcer discovers target companies for a domain, collects employee profiles from the people-data vendor, and ranks them against a search context.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (environment variables override)")
}

// loadAppConfig merges the optional config file with environment variables.
// Environment wins on conflicts.
func loadAppConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	env := config.FromEnv()
	merged := env.MergeWithDefaults(*cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
