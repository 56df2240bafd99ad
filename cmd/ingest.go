package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/nbhq/notabene/internal/app"
	"github.com/nbhq/notabene/internal/config"
	"github.com/nbhq/notabene/internal/log"
)

var ingestTenant string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest markdown files into the knowledge base",
	Long: `Ingest reads one or more .md files, chunks them, embeds each chunk,
and stores the result. Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "tenant the documents belong to")
	_ = ingestCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := cmd.Context()
	logger := log.New(log.Config{})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	for _, path := range args {
		if err := ingestFile(ctx, a, path); err != nil {
			return err
		}
	}
	return nil
}

func ingestFile(ctx context.Context, a *app.App, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return fmt.Errorf("%s: only .md files are supported", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return fmt.Errorf("%s: not valid UTF-8 text", path)
	}

	fileName := filepath.Base(path)
	inserted, err := a.Pipeline.Replace(ctx, fileName, string(raw), ingestTenant)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("%s: %d chunks\n", fileName, inserted)
	return nil
}
