package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/config"
	"github.com/adrata/dataops-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dataops-cli",
	Short: "Workspace maintenance toolkit",
	Long:  "Deduplicates identities, reclassifies pipeline records by engagement, merges external enrichment data, and repairs workspace integrity.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "dataops.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if err := cfg.Validate("db"); err != nil {
			return nil, err
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPostgres opens the postgres store specifically, for the subsystems that
// need raw pool access (workspace consolidation, id migration).
func initPostgres(ctx context.Context) (*store.PostgresStore, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("this command requires the postgres driver, got %s", cfg.Store.Driver)
	}
	if err := cfg.Validate("db"); err != nil {
		return nil, err
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
}

// workspaceID resolves the target workspace from the flag, falling back to
// config.
func workspaceID(cmd *cobra.Command) (string, error) {
	ws, _ := cmd.Flags().GetString("workspace")
	if ws == "" {
		ws = cfg.Workspace.ID
	}
	if ws == "" {
		return "", eris.New("workspace id is required (--workspace or ADRATA_WORKSPACE_ID)")
	}
	return ws, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
