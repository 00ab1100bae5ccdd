// Package store persists uploads in PostgreSQL (PostGIS) or SQLite through gorm.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database and migrates the schema. TranslateError is
// enabled so unique violations surface as gorm.ErrDuplicatedKey. Slow and
// failed queries go to the service logger at warn level.
func Open(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables. On PostgreSQL it also enables PostGIS and the
// tile table raster2pgsql appends to.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		for _, stmt := range []string{
			"CREATE EXTENSION IF NOT EXISTS postgis",
			"CREATE EXTENSION IF NOT EXISTS postgis_raster",
			"CREATE TABLE IF NOT EXISTS public.image_tiles (rid serial PRIMARY KEY, rast raster)",
		} {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
