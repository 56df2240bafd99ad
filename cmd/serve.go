package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbhq/notabene/db"
	"github.com/nbhq/notabene/internal/api"
	"github.com/nbhq/notabene/internal/app"
	"github.com/nbhq/notabene/internal/config"
	"github.com/nbhq/notabene/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{})

	if err = db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	server, err := api.NewServer(a.Pipeline, a.Knowledge, a.Orchestrator, a.Transcripts, a.Tenants, a.Pool, api.Options{
		Addr:           cfg.ServerAddr,
		AllowedOrigins: cfg.CORSOrigins,
		RateBurst:      cfg.RateBurst,
		TrustProxy:     cfg.TrustProxy,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return server.Run(ctx)
}
