package main

import (
	"github.com/spf13/cobra"

	"mediahook/db"
	"mediahook/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|version",
		Short:     "Apply, roll back or inspect the database schema",
		ValidArgs: []string{"up", "down", "version"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, log, closeLog, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			return database.RunMigrate(log, cfg.DatabaseURL, db.MigrationsFS, args[0])
		},
	}
}
