package storage

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// newMigrate opens the file source holding the leaderboard_ranks schema
func newMigrate(databaseURL, migrationsPath string) (*migrate.Migrate, error) {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard migrations at %s: %w", migrationsPath, err)
	}
	return m, nil
}

// RunMigrations creates or upgrades the leaderboard_ranks table used by the
// postgres sink. An up-to-date schema is not an error.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply leaderboard schema: %w", err)
	}
	return nil
}

// RollbackMigrations undoes the most recent schema step. Rolling back the
// first step drops leaderboard_ranks and every stored run with it.
func RollbackMigrations(databaseURL, migrationsPath string) error {
	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back leaderboard schema: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema step; 0 means the sink table
// has never been created.
func MigrationVersion(databaseURL, migrationsPath string) (version uint, dirty bool, err error) {
	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()

	version, dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("read leaderboard schema version: %w", err)
	}
	return version, dirty, nil
}
