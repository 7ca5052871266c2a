package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perseis-platform/ebisu/internal/config"
	"github.com/perseis-platform/ebisu/internal/db"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ebisu",
	Short: "Vessel registry ingestion and reconciliation engine",
	Long:  "Ingests per-jurisdiction vessel registry files, stages them into canonical intelligence reports, extracts typed records, and reconciles cross-source vessel confirmations.",
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

// openPool connects to the configured database and verifies the connection.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("no database_url configured (set store.database_url or EBISU_STORE_DATABASE_URL)")
	}

	pool, err := db.NewPool(ctx, dsn, cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
