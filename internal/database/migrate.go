// This file applies the SQL migrations for the email_templates schema on
// startup.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"

	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the schema up to the newest file in migrationsPath.
// A schema left dirty by an interrupted run is reported instead of retried;
// it needs a manual `migrate force` first.
func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("loading migrations from %s: %w", migrationsPath, err)
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		return fmt.Errorf("schema is dirty at version %d", version)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("schema up to date")
		return nil
	case err != nil:
		return fmt.Errorf("running migrations: %w", err)
	}

	version, _, _ := m.Version()
	slog.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}
