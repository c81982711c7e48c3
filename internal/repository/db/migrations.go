package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func newMigrate(db *sql.DB, migrationsURL string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, err
	}

	if migrationsURL != "" {
		return migrate.NewWithDatabaseInstance(migrationsURL, "postgres", driver)
	}

	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

func MigrateUp(db *sql.DB, migrationsURL string) error {
	log.WithField("source", migrationsSource(migrationsURL)).Info("Migrating up")

	m, err := newMigrate(db, migrationsURL)
	if err != nil {
		return fmt.Errorf("db.MigrateUp: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db.MigrateUp: %w", err)
	}

	return nil
}

func MigrateDown(db *sql.DB, migrationsURL string) error {
	log.WithField("source", migrationsSource(migrationsURL)).Info("Migrating down")

	m, err := newMigrate(db, migrationsURL)
	if err != nil {
		return fmt.Errorf("db.MigrateDown: %w", err)
	}

	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db.MigrateDown: %w", err)
	}

	return nil
}

func migrationsSource(migrationsURL string) string {
	if migrationsURL == "" {
		return "embedded"
	}
	return migrationsURL
}
