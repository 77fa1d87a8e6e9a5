package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planerhq/planer/internal/config"
	"github.com/planerhq/planer/internal/storage"
)

var (
	cfgPath string
	dbPath  string

	cfg   *config.Config
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "planer",
	Short: "AI-assisted plan and task tracker",
	Long: `Planer breaks goals down into actionable task lists with LLM assistance
and tracks their progress in a local SQLite database (or PostgreSQL).

Plans are generated interactively: the model analyzes your goal, asks for
clarification only when it genuinely needs it, and shows you a preview
before anything is saved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Backend = "sqlite"
			cfg.Database.Path = dbPath
		}

		store, err = storage.NewStorage(cmd.Context(), &storage.Config{
			Backend: cfg.Database.Backend,
			Path:    cfg.Database.Path,
			DSN:     cfg.Database.DSN,
		})
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides config)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
