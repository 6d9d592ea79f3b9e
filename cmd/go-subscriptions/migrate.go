package main

import (
	"github.com/goliatone/go-job/queue/adapters/postgres"
	"github.com/goliatone/go-subscriptions/adapters/gojob"
	"github.com/goliatone/go-subscriptions/core"
	sqlstore "github.com/goliatone/go-subscriptions/store/sql"
	"github.com/spf13/cobra"
)

func newMigrateCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the storage schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), root.verbose)
			cfg, err := loadConfig(cmd.Context(), root, core.Config{})
			if err != nil {
				return err
			}
			client, err := openStorage(cmd.Context(), cfg.Persistence)
			if err != nil {
				return err
			}
			defer client.Close()
			if driver, _ := sqlstore.NormalizeDriver(cfg.Persistence.Driver); driver == sqlstore.DriverPostgres {
				if _, err := gojob.OpenRunQueue(cmd.Context(), client.DB().DB, postgres.DialectPostgres); err != nil {
					return err
				}
			}
			logger.Info("migrations applied", "driver", cfg.Persistence.Driver)
			return nil
		},
	}
}
