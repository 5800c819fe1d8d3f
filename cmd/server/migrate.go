package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/storefront-auth/internal/database"
)

// NewMigrateCmd creates the migrate subcommand and its up/down/status actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", database.MigrateUp),
		migrateAction("down", "Roll back the most recent migration", database.MigrateDown),
		migrateAction("status", "Show which migrations are applied", database.MigrateStatus),
	)
	return cmd
}

func migrateAction(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only the DSN is needed here, not the full service config.
			dsn := os.Getenv("DB_DSN")
			if dsn == "" {
				return oops.Code("CONFIG_INVALID").Errorf("DB_DSN environment variable is required")
			}

			ctx := cmd.Context()
			db, err := database.Open(ctx, dsn)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			if err := run(ctx, db); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate "+use).Wrap(err)
			}
			cmd.Printf("migrate %s: done\n", use)
			return nil
		},
	}
}
