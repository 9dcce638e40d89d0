package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradingcards/pkg/database"
	"tradingcards/pkg/logging"
	"tradingcards/pkg/utils"
)

type rootOptions struct {
	dbPath   string
	logLevel string
	noColor  bool
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cardctl",
		Short: "Manage the trading card catalog database",
		Long: `cardctl loads card data dumps into the catalog database, exports the
catalog with storefront stock as CSV and prints a short summary. It can also
query a running API server and stream its live stock updates.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (default $TCG_DB_PATH or ~/.tradingcards/trading_cards.db)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newImportCmd(opts),
		newExportCmd(opts),
		newStatsCmd(opts),
		newSearchCmd(),
		newWatchCmd(opts),
	)
	return root
}

func (o *rootOptions) logger() *slog.Logger {
	return logging.New(os.Stderr, utils.LogConfig{Level: o.logLevel, Format: "text"})
}

// openDB opens and migrates the catalog database.
func (o *rootOptions) openDB(ctx context.Context) (*sql.DB, error) {
	cfg := database.DefaultConfig()
	if o.dbPath != "" {
		cfg.Path = o.dbPath
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
