package main

import (
	"github.com/spf13/cobra"

	appLog "eventcal/internal/log"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and sync calendars from config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			appLog.Info("schema up to date", "driver", a.cfg.Database.Driver)
			return nil
		},
	}
}
