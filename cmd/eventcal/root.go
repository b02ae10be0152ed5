package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/store"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "eventcal",
		Short:         "Calendar and event listings served over HTTP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./eventcal.yaml", "config file path (created with defaults if missing)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging and verbose HTTP router")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	return cmd
}

// app is what every subcommand starts from: loaded config and a migrated
// database with calendars synced from config.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	store *store.Store
}

func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	configureLogging(cfg, opts.debug)

	appLog.Info("effective config",
		"config_path", opts.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"database", cfg.Database.Driver,
		"import_cron", cfg.Import.Cron,
		"calendars", len(cfg.Calendars),
	)

	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		_ = store.Close(db)
		return nil, err
	}

	a := &app{cfg: cfg, db: db, store: store.New(db)}
	if err := a.syncCalendars(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if err := store.Close(a.db); err != nil {
		appLog.Error("close database failed", err)
	}
}

// syncCalendars upserts the calendars declared in cfg. Calendars removed
// from the file are left in place.
func (a *app) syncCalendars(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Calendars) == 0 {
		return nil
	}
	cals := make([]model.Calendar, 0, len(cfg.Calendars))
	for _, c := range cfg.Calendars {
		cals = append(cals, model.Calendar{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			URL:         c.URL,
		})
	}
	if err := a.store.SyncCalendars(ctx, cals); err != nil {
		return fmt.Errorf("sync calendars: %w", err)
	}
	appLog.Info("calendars synced", "count", len(cals))
	return nil
}

func configureLogging(cfg *config.Config, debug bool) {
	appLog.Configure(os.Stderr, appLog.Format(cfg.Log.Format), logLevel(cfg, debug))
}

func logLevel(cfg *config.Config, debug bool) appLog.Level {
	if debug {
		return appLog.LevelDebug
	}
	return appLog.ParseLevel(cfg.Log.Level)
}
