package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"eventcal/internal/config"
	"eventcal/internal/ics"
	appLog "eventcal/internal/log"
	"eventcal/internal/metrics"
	"eventcal/internal/scheduler"
	"eventcal/internal/views"
	"eventcal/internal/web"
)

const stopTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar views and run the scheduled feed import",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, listen string) error {
	a, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if listen != "" {
		cfg.Listen = listen
	}

	m := metrics.New(cfg.Metrics)
	v := views.New(a.store, views.Options{
		EventsPerPage:     cfg.Pagination.Events,
		CategoriesPerPage: cfg.Pagination.Categories,
		LocationsPerPage:  cfg.Pagination.Locations,
		Location:          cfg.Location(),
	})

	if cfg.Import.Cron != "" {
		importer := ics.NewImporter(a.store, cfg.Import, cfg.Location(), m)
		sched, err := scheduler.New("ics-import", cfg.Import.Cron, cfg.Location(), importer.ImportAll)
		if err != nil {
			return err
		}
		sched.Start()
		sched.Trigger()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				appLog.Error("scheduler stop timed out", err)
			}
		}()
	} else {
		appLog.Info("scheduled import disabled")
	}

	// Reloads apply the log level and the calendar list; anything else
	// needs a restart.
	err = config.Watch(ctx, opts.configPath, func(next *config.Config) {
		appLog.SetLevel(logLevel(next, opts.debug))
		if err := a.syncCalendars(ctx, next); err != nil {
			appLog.Error("calendar re-sync failed", err)
		}
	})
	if err != nil {
		appLog.Error("config watch disabled", err, "path", opts.configPath)
	}

	return web.StartServer(ctx, cfg, v, m, opts.debug)
}
