package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// MigrationError wraps a step failure with the version and step it occurred
// in. Migration failures are fatal to startup: the app must not run against a
// partially migrated schema.
type MigrationError struct {
	Version int
	Step    string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration to version %d failed at step %q: %v", e.Version, e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Migrator applies pending catalog procedures in ascending version order and
// advances the persisted version marker once all of them succeed.
type Migrator struct {
	store   *Store
	log     zerolog.Logger
	catalog []Migration
}

func NewMigrator(s *Store, log zerolog.Logger) *Migrator {
	return &Migrator{store: s, log: log, catalog: Catalog()}
}

// Run reads the persisted version (0 when absent), applies every catalog
// entry above it in order, then persists the catalog's maximum version. If
// any step fails the run aborts without persisting, so the next run restarts
// the failed version from its first step; the per-step guards make that safe.
func (m *Migrator) Run(ctx context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	current, err := m.store.version.read()
	if err != nil {
		return &MigrationError{Version: current, Step: "read version", Err: err}
	}
	target := 0
	for _, mig := range m.catalog {
		if mig.Version > target {
			target = mig.Version
		}
	}
	if current >= target {
		m.log.Debug().Int("version", current).Msg("schema up to date")
		return nil
	}
	m.log.Info().Int("from", current).Int("to", target).Msg("migrating schema")

	for _, mig := range m.catalog {
		if mig.Version <= current {
			continue
		}
		if err := m.applyVersion(ctx, mig); err != nil {
			return err
		}
	}

	if err := m.store.version.write(target); err != nil {
		return &MigrationError{Version: target, Step: "persist version", Err: err}
	}
	m.log.Info().Int("version", target).Msg("schema migrated")
	return nil
}

// applyVersion runs one procedure. Foreign-key enforcement is switched off
// for the whole procedure because rebuild steps transiently violate
// referential integrity; each step still runs in its own exclusive
// transaction, rolled back individually on failure.
func (m *Migrator) applyVersion(ctx context.Context, mig Migration) error {
	if _, err := m.store.db.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return &MigrationError{Version: mig.Version, Step: "disable foreign keys", Err: err}
	}
	defer func() {
		if _, err := m.store.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			m.log.Error().Err(err).Int("version", mig.Version).Msg("re-enabling foreign keys failed")
		}
	}()

	for _, step := range mig.Steps {
		if err := m.applyStep(ctx, mig.Version, step); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) applyStep(ctx context.Context, version int, step Step) error {
	tx, err := m.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: version, Step: step.Name, Err: err}
	}
	if err := step.Run(ctx, tx); err != nil {
		tx.Rollback()
		m.log.Error().Err(err).Int("version", version).Str("step", step.Name).Msg("migration step failed")
		return &MigrationError{Version: version, Step: step.Name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		m.log.Error().Err(err).Int("version", version).Str("step", step.Name).Msg("migration step commit failed")
		return &MigrationError{Version: version, Step: step.Name, Err: err}
	}
	m.log.Debug().Int("version", version).Str("step", step.Name).Msg("migration step applied")
	return nil
}
