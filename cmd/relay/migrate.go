package main

import (
	"github.com/spf13/cobra"

	"github.com/edgard/contactrelay/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			db, err := database.NewDB(cfg.Database)
			if err != nil {
				log.Error("Migration failed", "driver", cfg.Database.Driver, "error", err)
				return err
			}
			database.CloseDB(db)

			log.Info("Database is up to date", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
