package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	migrations "github.com/hivecast/ingestd/db"
	"github.com/hivecast/ingestd/internal/db"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <" + strings.Join(db.MigrateCommands, "|") + "> [N]",
		Short: "Apply or roll back the database schema",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provideConfig(*configPath)
			if err != nil {
				return err
			}
			log := provideLogger(cfg)
			source, err := migrations.Migrations()
			if err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return db.RunMigrate(log, cfg.Postgres, source, args[0], args[1:])
		},
	}
}
