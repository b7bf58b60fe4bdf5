package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/talent-sourcer/internal/config"
	"github.com/jonathan/talent-sourcer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the sourcing pipeline stages as session-scoped REST endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	// The server needs Postgres for sessions, caches, and evidence rows.
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	deps, cleanup, err := buildDeps(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	_ = cleanup // the server owns shutdown of its dependencies

	opts := server.Options{
		Addr:         serveAddr,
		ArtifactsDir: cfg.ArtifactsDir,
	}
	if cfg.ListenAddr != "" && !cmd.Flags().Changed("addr") {
		opts.Addr = cfg.ListenAddr
	}
	if cfg.JWTSecret != "" {
		jwtCfg, err := config.JWTConfigFromSecret(cfg.JWTSecret)
		if err != nil {
			return err
		}
		opts.JWT = jwtCfg
	}

	srv, err := server.New(opts, deps.DB, deps.Vendor, deps.LLM, deps.Searcher)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
