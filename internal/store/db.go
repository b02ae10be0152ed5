package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"eventcal/internal/config"
	"eventcal/internal/model"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the database described by settings.
func Open(settings config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch settings.Driver {
	case DriverPostgres:
		db, err := gorm.Open(postgres.Open(settings.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return db, nil

	case DriverSQLite, "":
		dsn := settings.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		// Every connection to ":memory:" is a fresh database, so the pool
		// must never grow past one.
		if dsn == ":memory:" {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get raw DB connection: %w", err)
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", settings.Driver)
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Calendar{},
		&model.EventCategory{},
		&model.EventLocation{},
		&model.Event{},
		&model.OccurringRule{},
		&model.RecurringRule{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
