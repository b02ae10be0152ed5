package main

import (
	"github.com/spf13/cobra"

	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/metrics"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var calendar string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ICS feeds into the database once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			importer := ics.NewImporter(a.store, a.cfg.Import, a.cfg.Location(), metrics.New(config.MetricsConfig{}))
			if calendar == "" {
				return importer.ImportAll(ctx)
			}
			res, err := importer.ImportSlug(ctx, calendar)
			appLog.Info("import result", "calendar", res.Calendar, "saved", res.Saved, "failed", res.Failed)
			return err
		},
	}
	cmd.Flags().StringVar(&calendar, "calendar", "", "import only the calendar with this slug")
	return cmd
}
