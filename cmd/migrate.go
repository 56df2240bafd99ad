package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbhq/notabene/db"
	"github.com/nbhq/notabene/internal/config"
	"github.com/nbhq/notabene/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{})
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
