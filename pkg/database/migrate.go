package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/noah-isme/academic-lifecycle-api/pkg/config"
)

// Migrator wraps golang-migrate for the schema under dir.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a migrator against the configured database.
func NewMigrator(cfg config.DatabaseConfig, dir string) (*Migrator, error) {
	if dir == "" {
		dir = "migrations"
	}
	m, err := migrate.New(fmt.Sprintf("file://%s", dir), URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations. No pending migration is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Down rolls back every migration.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Version reports the current schema version and dirty flag.
func (m *Migrator) Version() (uint, bool, error) {
	return m.m.Version()
}

// Force sets the schema version without running migrations.
func (m *Migrator) Force(version int) error {
	return m.m.Force(version)
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
