package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/pkg/migrations"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done, err := setup()
		if err != nil {
			return err
		}
		defer done()
		defer zap.S().Info("Db migrated")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Database.Type != "pgsql" {
			if err := s.InitialMigration(context.Background()); err != nil {
				zap.S().Fatalw("running initial migration", "error", err)
			}
			return nil
		}

		if err := migrations.MigrateStore(db, cfg); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		return nil
	},
}
