package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbhq/notabene/internal/app"
	"github.com/nbhq/notabene/internal/config"
	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/log"
)

var askTenant string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question about your notes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "tenant whose notes to search")
	_ = askCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx := cmd.Context()
	// Keep info noise out of the interactive output.
	logger := log.New(log.Config{Level: slog.LevelWarn})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	question := strings.Join(args, " ")
	history := []llm.Message{{Role: llm.RoleUser, Content: question}}

	// Stream the answer as it arrives; the final newline closes the turn.
	result, err := a.Orchestrator.Run(ctx, history, askTenant, func(text string) {
		fmt.Print(text)
	})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Println()

	if result.Steps > 1 {
		fmt.Fprintf(os.Stderr, "(%d steps)\n", result.Steps)
	}
	return nil
}
