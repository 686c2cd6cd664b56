package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantdesk/quantjobs/internal/config"
	"github.com/quantdesk/quantjobs/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		sync := initLogger(cfg)
		defer sync()
		log := zap.S().Named("migrate")

		log.Infof("Using config: %s", cfg)

		log.Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			log.Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			log.Fatalf("running initial migration: %v", err)
		}

		log.Info("Db migrated")
		return nil
	},
}
