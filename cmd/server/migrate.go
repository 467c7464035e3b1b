package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded postgres and clickhouse schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Storage.Backend != "postgres" && !a.cfg.ClickHouse.Enabled {
			a.logger.Info("nothing to migrate: no persistent backend configured")
			return nil
		}
		return a.openStorage(cmd.Context(), true)
	},
}
